package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/telemetry"
)

// DeadLetterKey is the Redis list holding failed envelopes, newest first.
const DeadLetterKey = "notifications:dead-letter"

// LogSink logs the failure and reports it to Sentry.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) DeadLetter(ctx context.Context, env Envelope, cause error) {
	s.log.ErrorContext(ctx, "notification dead-lettered",
		"type", env.Message.Type,
		"recipients", len(env.Recipients),
		"queued_at", env.QueuedAt,
		"error", cause,
	)
	telemetry.CaptureError(ctx, cause, map[string]string{
		"component":         "notifications",
		"notification_type": string(env.Message.Type),
	})
}

// DeadLetterRecord is the JSON stored in the Redis list.
type DeadLetterRecord struct {
	Envelope Envelope  `json:"envelope"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

// RedisSink keeps the most recent failures in a capped Redis list so they
// can be inspected and replayed. It always logs through the wrapped sink.
type RedisSink struct {
	client redis.Cmdable
	max    int64
	next   DeadLetterSink
	log    logger.Logger
}

func NewRedisSink(client redis.Cmdable, max int64, next DeadLetterSink, log logger.Logger) *RedisSink {
	if max <= 0 {
		max = 1000
	}
	return &RedisSink{client: client, max: max, next: next, log: log}
}

func (s *RedisSink) DeadLetter(ctx context.Context, env Envelope, cause error) {
	if s.next != nil {
		s.next.DeadLetter(ctx, env, cause)
	}

	payload, err := json.Marshal(DeadLetterRecord{Envelope: env, Error: cause.Error(), FailedAt: time.Now()})
	if err != nil {
		s.log.ErrorContext(ctx, "encode dead letter", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, DeadLetterKey, payload)
	pipe.LTrim(ctx, DeadLetterKey, 0, s.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.WarnContext(ctx, "store dead letter in redis", "error", err)
	}
}

// RecentDeadLetters reads up to n stored failures, newest first.
func RecentDeadLetters(ctx context.Context, client redis.Cmdable, n int64) ([]DeadLetterRecord, error) {
	raw, err := client.LRange(ctx, DeadLetterKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	records := make([]DeadLetterRecord, 0, len(raw))
	for _, item := range raw {
		var rec DeadLetterRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
