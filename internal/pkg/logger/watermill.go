package logger

import "github.com/ThreeDotsLabs/watermill"

// Watermill bridges a Logger to watermill.LoggerAdapter.
func Watermill(log Logger) watermill.LoggerAdapter {
	return &watermillAdapter{log: log}
}

type watermillAdapter struct{ log Logger }

func (a *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(fieldsToArgs(fields), "error", err)...)
}
func (a *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, fieldsToArgs(fields)...)
}
func (a *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillAdapter{log: a.log.With(fieldsToArgs(fields)...)}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
