// Package dispatch fans an accepted submission out to every configured
// downstream service and aggregates their independent outcomes.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"formgate/internal/adapters/provider"
	"formgate/internal/platform/metrics"
	"formgate/internal/submission"
)

//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks Service

const defaultTimeout = 30 * time.Second

// Service is one downstream collaborator.
type Service interface {
	Name() string
	// Deliver hands the submission over and returns the provider-assigned ID.
	Deliver(ctx context.Context, s submission.Submission) (string, error)
}

// ServiceResult is one service's outcome as reported to the client.
type ServiceResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Result aggregates one dispatch. Success is true when at least one
// configured service succeeded.
type Result struct {
	Success      bool
	SubmissionID string
	Services     map[string]ServiceResult
}

type Dispatcher struct {
	services []Service
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	newID    func() string
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTimeout bounds the whole fan-out, retries included.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithIDGenerator replaces the UUIDv7 submission ID source.
func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) {
		if newID != nil {
			d.newID = newID
		}
	}
}

// New creates a dispatcher over services. Nil entries are ignored.
func New(services []Service, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		timeout: defaultTimeout,
		logger:  slog.Default(),
		tracer:  otel.Tracer("formgate/internal/dispatch"),
		newID:   newSubmissionID,
	}
	for _, svc := range services {
		if svc != nil {
			d.services = append(d.services, svc)
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Services returns the names of the configured services.
func (d *Dispatcher) Services() []string {
	names := make([]string, 0, len(d.services))
	for _, svc := range d.services {
		names = append(names, svc.Name())
	}
	return names
}

// Dispatch delivers s to every service concurrently. Failures are contained
// per service and never abort a sibling. Delivery is detached from ctx's
// cancellation so a client disconnect does not cut deliveries short.
func (d *Dispatcher) Dispatch(ctx context.Context, s submission.Submission) Result {
	id := d.newID()
	s = s.WithID(id)
	result := Result{SubmissionID: id, Services: make(map[string]ServiceResult, len(d.services))}

	if len(d.services) == 0 {
		d.logger.WarnContext(ctx, "no downstream services configured",
			"submission_id", id,
			"log_type", "config_absent",
		)
		d.observeSubmission(false)
		return result
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "dispatch.Dispatch", trace.WithAttributes(
		attribute.String("submission.id", id),
		attribute.Int("dispatch.services", len(d.services)),
	))
	defer span.End()

	outcomes := make([]ServiceResult, len(d.services))
	var g errgroup.Group
	for i, svc := range d.services {
		g.Go(func() error {
			outcomes[i] = d.deliver(ctx, svc, s)
			return nil
		})
	}
	_ = g.Wait()

	for i, svc := range d.services {
		result.Services[svc.Name()] = outcomes[i]
		result.Success = result.Success || outcomes[i].Success
	}

	if d.metrics != nil {
		d.metrics.ObserveDispatch(time.Since(start))
	}
	d.observeSubmission(result.Success)

	if !result.Success {
		span.SetStatus(codes.Error, "all deliveries failed")
		d.logger.ErrorContext(ctx, "all deliveries failed",
			"submission_id", id,
			"services", len(d.services),
		)
	}
	return result
}

func (d *Dispatcher) deliver(ctx context.Context, svc Service, s submission.Submission) (res ServiceResult) {
	name := svc.Name()
	ctx, span := d.tracer.Start(ctx, "dispatch.Deliver", trace.WithAttributes(
		attribute.String("dispatch.service", name),
		attribute.String("submission.id", s.ID()),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			d.logger.ErrorContext(ctx, "delivery panicked",
				"service", name,
				"submission_id", s.ID(),
				"error", err,
			)
			d.observeDelivery(name, false)
			res = ServiceResult{Error: "delivery failed"}
		}
	}()

	providerID, err := svc.Deliver(ctx, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(provider.GetCategory(err)))
		d.logger.ErrorContext(ctx, "delivery failed",
			"service", name,
			"submission_id", s.ID(),
			"category", provider.GetCategory(err),
			"error", err,
		)
		d.observeDelivery(name, false)
		return ServiceResult{Error: provider.PublicMessage(err)}
	}

	d.logger.InfoContext(ctx, "delivered",
		"service", name,
		"submission_id", s.ID(),
		"provider_id", providerID,
	)
	d.observeDelivery(name, true)
	return ServiceResult{Success: true, ID: providerID}
}

func (d *Dispatcher) observeDelivery(service string, success bool) {
	if d.metrics != nil {
		d.metrics.IncDelivery(service, success)
	}
}

func (d *Dispatcher) observeSubmission(success bool) {
	if d.metrics != nil {
		d.metrics.IncSubmission(success)
	}
}

// newSubmissionID returns a time-ordered random UUIDv7. It is for
// correlation only and carries no deduplication guarantee.
func newSubmissionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
