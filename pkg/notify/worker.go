package notify

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

// Mailer delivers one email notification.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Publisher publishes one event to the message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, body string) error
}

// Config controls outbox worker behavior.
type Config struct {
	Concurrency   int           // Max concurrent workers. Default 2.
	MaxRetries    int           // Max delivery attempts per dispatch. Default 3.
	PollInterval  time.Duration // How often workers poll the outbox. Default 5s.
	ClaimTimeout  time.Duration // Max running time before a dispatch is considered stuck. Default 10m.
	RetentionDays int           // How long to keep delivered/failed dispatches. Default 7.
	Enabled       bool          // Whether delivery is active. Default true.
}

// DefaultConfig returns the default outbox configuration.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:   2,
		MaxRetries:    3,
		PollInterval:  5 * time.Second,
		ClaimTimeout:  10 * time.Minute,
		RetentionDays: 7,
		Enabled:       true,
	}
}

// ConfigFromEnv loads config from environment variables.
// REGISTRY_NOTIFY_CONCURRENCY, REGISTRY_NOTIFY_MAX_RETRIES,
// REGISTRY_NOTIFY_POLL_INTERVAL_SECONDS, REGISTRY_NOTIFY_RETENTION_DAYS,
// REGISTRY_NOTIFY_ENABLED
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("REGISTRY_NOTIFY_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("REGISTRY_NOTIFY_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("REGISTRY_NOTIFY_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("REGISTRY_NOTIFY_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}
	if v := os.Getenv("REGISTRY_NOTIFY_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}

// WorkerPool drains the outbox using a pool of goroutines.
type WorkerPool struct {
	store     *OutboxStore
	mailer    Mailer
	publisher Publisher
	cfg       *Config
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(store *OutboxStore, mailer Mailer, publisher Publisher, cfg *Config, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		store:     store,
		mailer:    mailer,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run starts the worker pool. It blocks until the context is cancelled,
// then waits for all workers to finish.
func (wp *WorkerPool) Run(ctx context.Context) {
	if wp.store == nil || !wp.cfg.Enabled {
		wp.logger.Info("notification worker pool disabled")
		return
	}

	wp.logger.Info("notification worker pool starting",
		"concurrency", wp.cfg.Concurrency,
		"maxRetries", wp.cfg.MaxRetries,
		"pollInterval", wp.cfg.PollInterval.String())

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		wp.cleanupLoop(ctx)
	}()

	for i := 0; i < wp.cfg.Concurrency; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			wp.workerLoop(ctx, workerID)
		}(i)
	}

	<-ctx.Done()
	wp.logger.Info("notification worker pool shutting down, waiting for workers to finish")
	wp.wg.Wait()
	wp.logger.Info("notification worker pool stopped")
}

func (wp *WorkerPool) workerLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(wp.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wp.processOne(ctx, workerID)
		}
	}
}

// processOne tries to claim and deliver a single dispatch.
func (wp *WorkerPool) processOne(ctx context.Context, workerID int) {
	d, err := wp.store.Claim(wp.cfg.MaxRetries)
	if err != nil {
		wp.logger.Error("failed to claim dispatch", "workerID", workerID, "error", err)
		return
	}
	if d == nil {
		return
	}

	err = wp.deliver(ctx, d)
	if err != nil {
		wp.logger.Error("dispatch delivery failed",
			"workerID", workerID,
			"dispatchID", d.ID,
			"kind", d.Kind,
			"attempt", d.AttemptCount,
			"error", err)
		if failErr := wp.store.Fail(d.ID, err.Error(), wp.cfg.MaxRetries); failErr != nil {
			wp.logger.Error("failed to mark dispatch as failed", "dispatchID", d.ID, "error", failErr)
		}
		return
	}

	if err := wp.store.Complete(d.ID); err != nil {
		wp.logger.Error("failed to mark dispatch as delivered", "dispatchID", d.ID, "error", err)
		return
	}
	wp.logger.Info("dispatch delivered",
		"workerID", workerID,
		"dispatchID", d.ID,
		"kind", d.Kind,
		"resourceID", d.ResourceID)
}

func (wp *WorkerPool) deliver(ctx context.Context, d *Dispatch) error {
	switch d.Kind {
	case KindEmail:
		if wp.mailer == nil {
			return nil // No mailer configured; drop silently.
		}
		return wp.mailer.Send(ctx, d.Recipient, d.Subject, d.Body)
	case KindEvent:
		if wp.publisher == nil {
			return nil
		}
		return wp.publisher.Publish(ctx, d.Recipient, d.Body)
	default:
		wp.logger.Warn("unknown dispatch kind", "dispatchID", d.ID, "kind", d.Kind)
		return nil
	}
}

// cleanupLoop periodically recovers stuck dispatches and removes old
// terminal ones.
func (wp *WorkerPool) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if wp.cfg.ClaimTimeout > 0 {
				recovered, err := wp.store.CleanupStuck(wp.cfg.ClaimTimeout)
				if err != nil {
					wp.logger.Error("failed to cleanup stuck dispatches", "error", err)
				} else if recovered > 0 {
					wp.logger.Info("recovered stuck dispatches", "count", recovered)
				}
			}

			if wp.cfg.RetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -wp.cfg.RetentionDays)
				deleted, err := wp.store.DeleteOlderThan(cutoff)
				if err != nil {
					wp.logger.Error("failed to delete old dispatches", "error", err)
				} else if deleted > 0 {
					wp.logger.Info("deleted old dispatches", "count", deleted)
				}
			}
		}
	}
}
