package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sms-ingress-server/internal/models"
	"sms-ingress-server/internal/queue"
	"sms-ingress-server/pkg/logger"

	"go.uber.org/zap"
)

// DefaultQueueAddTimeout bounds how long a request waits for the broker
const DefaultQueueAddTimeout = 4 * time.Second

// JobQueue accepts jobs for asynchronous delivery
type JobQueue interface {
	Add(ctx context.Context, job queue.Job) error
}

// JobOptionsOverride replaces individual default job options. Nil fields keep the default.
type JobOptionsOverride struct {
	Attempts        *int
	Backoff         *queue.Backoff
	Priority        *int
	RemoveOnFail    *bool
	KeepLogs        *int
	StackTraceLimit *int
}

// JobOptionsFor returns the delivery options for a service type merged with override
func JobOptionsFor(serviceType models.ServiceType, override *JobOptionsOverride) queue.JobOptions {
	opts := queue.JobOptions{
		Backoff:         queue.Backoff{Type: "exponential", Delay: 3000},
		KeepLogs:        3,
		StackTraceLimit: 3,
	}

	switch serviceType {
	case models.ServiceOTP:
		opts.Attempts = 7
		opts.Priority = 0
		opts.RemoveOnFail = true
	default:
		opts.Attempts = 18
		opts.Priority = 1
		opts.RemoveOnFail = false
	}

	if override == nil {
		return opts
	}
	if override.Attempts != nil {
		opts.Attempts = *override.Attempts
	}
	if override.Backoff != nil {
		opts.Backoff = *override.Backoff
	}
	if override.Priority != nil {
		opts.Priority = *override.Priority
	}
	if override.RemoveOnFail != nil {
		opts.RemoveOnFail = *override.RemoveOnFail
	}
	if override.KeepLogs != nil {
		opts.KeepLogs = *override.KeepLogs
	}
	if override.StackTraceLimit != nil {
		opts.StackTraceLimit = *override.StackTraceLimit
	}
	return opts
}

// QueueService hands jobs to the broker with a bounded wait
type QueueService struct {
	queue   JobQueue
	timeout time.Duration
}

// NewQueueService creates a new queue service
func NewQueueService(q JobQueue, timeout time.Duration) *QueueService {
	if timeout <= 0 {
		timeout = DefaultQueueAddTimeout
	}
	return &QueueService{queue: q, timeout: timeout}
}

// Timeout returns the longest Submit waits for the broker
func (s *QueueService) Timeout() time.Duration {
	return s.timeout
}

// Submit enqueues job for serviceType and waits at most Timeout for the
// broker to accept it. The broker call is not cancelled when the caller
// gives up, so a job reported as timed out may still be delivered.
func (s *QueueService) Submit(ctx context.Context, serviceType models.ServiceType, job *models.QueueJob, override *JobOptionsOverride) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", ErrBrokerFailure)
	}

	qjob := queue.Job{
		ID:      job.ID,
		Name:    string(serviceType),
		Data:    job,
		Options: JobOptionsFor(serviceType, override),
	}
	log := logger.Ctx(ctx).With(
		zap.String("job_id", job.ID),
		zap.String("service_type", string(serviceType)))

	// Buffered so the sender never blocks once nobody is waiting
	result := make(chan error, 1)
	started := time.Now()
	go func() {
		err := s.queue.Add(context.WithoutCancel(ctx), qjob)
		result <- err
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			log.Error("Failed to add job to queue", zap.Error(err))
			return fmt.Errorf("%w: %v", ErrBrokerFailure, err)
		}
		log.Debug("Job added to queue", zap.Duration("took", time.Since(started)))
		return nil
	case <-timer.C:
		log.Warn("Timed out adding job to queue", zap.Duration("timeout", s.timeout))
		go func() {
			err := <-result
			late := log.With(zap.Duration("took", time.Since(started)))
			switch {
			case err == nil:
				late.Warn("Job added to queue after timeout")
			case errors.Is(err, queue.ErrDuplicateJob):
				late.Warn("Late job rejected as duplicate", zap.Error(err))
			default:
				late.Error("Late job add failed", zap.Error(err))
			}
		}()
		return ErrQueueTimeout
	}
}
