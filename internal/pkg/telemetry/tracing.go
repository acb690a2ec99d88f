package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/xyz-asif/lostfound"

// Tracer returns the named tracer from the global provider. Without an
// installed SDK the spans are no-ops.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentationName + "/" + component)
}
