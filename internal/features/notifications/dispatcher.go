package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/metrics"
	"github.com/xyz-asif/lostfound/internal/pkg/telemetry"
)

// Topic carries dispatch envelopes from request handlers to the worker.
const Topic = "notifications.dispatch"

const handleTimeout = 15 * time.Second

var ErrDispatcherClosed = errors.New("notification dispatcher closed")

// Notifier is the fire-and-forget surface used by lifecycle code. Neither
// method reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, recipient primitive.ObjectID, msg Message)
	NotifyMany(ctx context.Context, recipients []primitive.ObjectID, msg Message)
}

// Store persists dispatched records.
type Store interface {
	CreateMany(ctx context.Context, notifications []Notification) error
}

// Pusher delivers a message to the recipients' devices.
type Pusher interface {
	Push(ctx context.Context, recipients []primitive.ObjectID, msg Message) error
}

// DeadLetterSink receives envelopes that could not be persisted.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, env Envelope, cause error)
}

// Dispatcher publishes envelopes onto an in-process watermill topic and
// persists them from a single subscriber goroutine. Each envelope gets one
// attempt; failures go to the dead-letter sink.
type Dispatcher struct {
	pubsub *gochannel.GoChannel
	store  Store
	pusher Pusher
	sink   DeadLetterSink
	log    logger.Logger
	tracer trace.Tracer
	now    func() time.Time

	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	closed  bool
}

type Option func(*Dispatcher)

func WithPusher(p Pusher) Option {
	return func(d *Dispatcher) { d.pusher = p }
}

func WithDeadLetterSink(s DeadLetterSink) Option {
	return func(d *Dispatcher) { d.sink = s }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher whose topic buffers up to buffer
// undelivered envelopes.
func NewDispatcher(store Store, log logger.Logger, buffer int64, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: buffer,
		}, logger.Watermill(log)),
		store:  store,
		log:    log.With("component", "notification_dispatcher"),
		tracer: telemetry.Tracer("notifications"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sink == nil {
		d.sink = NewLogSink(log)
	}
	return d
}

// Start subscribes the worker. Envelopes published before Start are dropped
// by the in-process transport, so call it before serving traffic. The
// subscription outlives ctx cancellation and ends only with Close, so
// requests still draining after a shutdown signal keep being persisted.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	if d.started {
		return nil
	}

	messages, err := d.pubsub.Subscribe(context.WithoutCancel(ctx), Topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic, err)
	}
	d.started = true

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for msg := range messages {
			d.handle(msg)
			msg.Ack()
		}
	}()

	d.log.Info("notification dispatcher started", "topic", Topic)
	return nil
}

// Close stops accepting envelopes and waits for the in-flight one.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	err := d.pubsub.Close()
	d.wg.Wait()
	return err
}

func (d *Dispatcher) Notify(ctx context.Context, recipient primitive.ObjectID, msg Message) {
	d.NotifyMany(ctx, []primitive.ObjectID{recipient}, msg)
}

// NotifyMany queues one record per distinct recipient. Zero ids are skipped.
func (d *Dispatcher) NotifyMany(ctx context.Context, recipients []primitive.ObjectID, msg Message) {
	recipients = uniqueIDs(recipients)
	if len(recipients) == 0 {
		return
	}

	env := Envelope{Recipients: recipients, Message: msg, QueuedAt: d.now()}
	payload, err := json.Marshal(env)
	if err != nil {
		d.deadLetter(ctx, env, fmt.Errorf("encode envelope: %w", err))
		return
	}

	m := message.NewMessage(watermill.NewUUID(), payload)
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(m.Metadata))
	if id := logger.RequestIDFrom(ctx); id != "" {
		m.Metadata.Set("request_id", id)
	}

	if err := d.pubsub.Publish(Topic, m); err != nil {
		d.deadLetter(ctx, env, fmt.Errorf("publish: %w", err))
	}
}

func (d *Dispatcher) handle(msg *message.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Metadata))
	if id := msg.Metadata.Get("request_id"); id != "" {
		ctx = logger.WithRequestID(ctx, id)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		d.log.ErrorContext(ctx, "dropping undecodable envelope", "message_id", msg.UUID, "error", err)
		metrics.NotificationsDeadLettered.Inc()
		return
	}

	ctx, span := d.tracer.Start(ctx, "notifications.dispatch", trace.WithAttributes(
		attribute.String("notification.type", string(env.Message.Type)),
		attribute.Int("notification.recipients", len(env.Recipients)),
	))
	defer span.End()

	records := env.Records(d.now())
	if err := d.store.CreateMany(ctx, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		d.deadLetter(ctx, env, err)
		return
	}
	metrics.NotificationsDispatched.WithLabelValues(string(env.Message.Type)).Add(float64(len(records)))

	if d.pusher != nil {
		if err := d.pusher.Push(ctx, env.Recipients, env.Message); err != nil {
			d.log.WarnContext(ctx, "push delivery failed", "type", env.Message.Type, "error", err)
		}
	}
}

func (d *Dispatcher) deadLetter(ctx context.Context, env Envelope, cause error) {
	metrics.NotificationsDeadLettered.Inc()
	d.sink.DeadLetter(ctx, env, cause)
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
