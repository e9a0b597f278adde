package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-trust/adapters/gologger"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

// Background maintenance jobs for the trust session. Token validation and
// reachability probes run off the request path so interactive calls never
// wait on a speculative network round trip.
const (
	JobIDProbeHomeServer       = "trust.connectivity.probe"
	JobIDValidateIdentityToken = "trust.identity.validate_token"
	JobIDValidateScalarToken   = "trust.widgets.validate_token"
)

// MaintenanceService is the slice of the session manager the worker needs.
type MaintenanceService interface {
	ValidateIdentityToken(ctx context.Context) error
	ValidateScalarToken(ctx context.Context) error
}

// ConnectivityRefresher forces a reachability check. The connectivity gate
// satisfies this directly.
type ConnectivityRefresher interface {
	HasInternetAccess(ctx context.Context, forcePing bool) bool
}

// RetryPolicy bounds retry behavior for maintenance deliveries.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// DefaultRetryPolicy suits periodic validation: a handful of retries with a
// short ceiling, then drop. Validation re-runs on the next schedule anyway.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		MaxDelay:    30 * time.Second,
	}
}

// Normalize clamps nack options to the policy for the given attempt number.
// Once MaxAttempts is reached the message is never requeued.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	if p.MaxDelay > 0 && opts.Delay > p.MaxDelay {
		opts.Delay = p.MaxDelay
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		opts.Requeue = false
		if p.DeadLetterOnMax {
			opts.DeadLetter = true
		}
	}
	return opts
}

// Scheduler enqueues trust maintenance jobs.
type Scheduler struct {
	enqueuer queue.Enqueuer
	logger   glog.Logger
}

func NewScheduler(enqueuer queue.Enqueuer, logger glog.Logger) *Scheduler {
	_, logger = gologger.Resolve("trust.jobs", nil, logger)
	return &Scheduler{enqueuer: enqueuer, logger: glog.Ensure(logger)}
}

// EnqueueProbe schedules a forced reachability probe.
func (s *Scheduler) EnqueueProbe(ctx context.Context) error {
	return s.enqueue(ctx, JobIDProbeHomeServer, nil)
}

// EnqueueIdentityValidation schedules a revalidation of the identity server
// token.
func (s *Scheduler) EnqueueIdentityValidation(ctx context.Context) error {
	return s.enqueue(ctx, JobIDValidateIdentityToken, nil)
}

// EnqueueScalarValidation schedules a revalidation of the integration
// manager token.
func (s *Scheduler) EnqueueScalarValidation(ctx context.Context) error {
	return s.enqueue(ctx, JobIDValidateScalarToken, nil)
}

func (s *Scheduler) enqueue(ctx context.Context, jobID string, params map[string]any) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg := &job.ExecutionMessage{
		JobID:          jobID,
		ScriptPath:     jobID,
		Parameters:     copyAnyMap(params),
		IdempotencyKey: jobID,
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
	if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("gojob: enqueue %s: %w", jobID, err)
	}
	s.logger.Debug("maintenance job enqueued", "job_id", jobID)
	return nil
}

// Worker drains maintenance deliveries one at a time. Validation errors nack
// with the retry policy applied; unknown job ids are acked and logged so a
// stale queue entry cannot wedge the session.
type Worker struct {
	dequeuer queue.Dequeuer
	service  MaintenanceService
	gate     ConnectivityRefresher
	policy   RetryPolicy
	logger   glog.Logger
}

func NewWorker(
	dequeuer queue.Dequeuer,
	service MaintenanceService,
	gate ConnectivityRefresher,
	policy RetryPolicy,
	logger glog.Logger,
) *Worker {
	_, logger = gologger.Resolve("trust.jobs", nil, logger)
	return &Worker{
		dequeuer: dequeuer,
		service:  service,
		gate:     gate,
		policy:   policy,
		logger:   glog.Ensure(logger),
	}
}

// ProcessNext blocks on the queue for one delivery and executes it.
func (w *Worker) ProcessNext(ctx context.Context) error {
	if w == nil || w.dequeuer == nil {
		return fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return fmt.Errorf("gojob: dequeue: %w", err)
	}
	if delivery == nil {
		return nil
	}
	return w.handle(ctx, delivery)
}

func (w *Worker) handle(ctx context.Context, delivery queue.Delivery) error {
	msg := delivery.Message()
	if msg == nil {
		return delivery.Ack(ctx)
	}

	jobErr := w.execute(ctx, msg)
	if jobErr == nil {
		return delivery.Ack(ctx)
	}

	attempt := attemptFromMessage(msg)
	opts := w.policy.Normalize(queue.NackOptions{
		Delay:   retryDelay(attempt),
		Requeue: true,
		Reason:  jobErr.Error(),
	}, attempt)
	w.logger.Warn("maintenance job failed",
		"job_id", msg.JobID,
		"attempt", attempt,
		"requeue", opts.Requeue,
		"error", jobErr,
	)
	if err := delivery.Nack(ctx, opts); err != nil {
		return fmt.Errorf("gojob: nack %s: %w", msg.JobID, err)
	}
	return nil
}

func (w *Worker) execute(ctx context.Context, msg *job.ExecutionMessage) error {
	switch strings.TrimSpace(msg.JobID) {
	case JobIDProbeHomeServer:
		if w.gate == nil {
			return fmt.Errorf("gojob: connectivity gate is not configured")
		}
		w.gate.HasInternetAccess(ctx, true)
		return nil
	case JobIDValidateIdentityToken:
		if w.service == nil {
			return fmt.Errorf("gojob: maintenance service is not configured")
		}
		return w.service.ValidateIdentityToken(ctx)
	case JobIDValidateScalarToken:
		if w.service == nil {
			return fmt.Errorf("gojob: maintenance service is not configured")
		}
		return w.service.ValidateScalarToken(ctx)
	default:
		w.logger.Warn("dropping unknown maintenance job", "job_id", msg.JobID)
		return nil
	}
}

// attemptFromMessage reads the delivery attempt recorded by the queue
// backend, defaulting to the first attempt.
func attemptFromMessage(msg *job.ExecutionMessage) int {
	if msg == nil || msg.Parameters == nil {
		return 1
	}
	switch v := msg.Parameters["attempt"].(type) {
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return 1
}

func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(attempt) * 5 * time.Second
	return delay
}

func copyAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// LoggingHook surfaces worker lifecycle events through the session logger.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	_, logger = gologger.Resolve("trust.jobs", nil, logger)
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.logger.Debug("maintenance job started", eventFields(event)...)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger.Debug("maintenance job succeeded", eventFields(event)...)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.logger.Error("maintenance job failed", eventFields(event)...)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger.Warn("maintenance job retrying", eventFields(event)...)
}

func eventFields(event worker.Event) []any {
	fields := []any{
		"attempt", event.Attempt,
		"delay", event.Delay,
		"duration", event.Duration,
	}
	if event.Message != nil {
		fields = append(fields, "job_id", event.Message.JobID)
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err)
	}
	return fields
}

var _ worker.Hook = (*LoggingHook)(nil)
