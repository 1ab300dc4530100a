package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/services"
)

// PendingCounter is the slice of the review service the digest needs
type PendingCounter interface {
	Stats(ctx context.Context) (*services.SubmissionStats, error)
}

// PendingDigestJob periodically emails the committee the pending count
type PendingDigestJob struct {
	counter  PendingCounter
	notifier services.Notifier
	log      *zap.Logger
}

func NewPendingDigestJob(counter PendingCounter, notifier services.Notifier, log *zap.Logger) *PendingDigestJob {
	return &PendingDigestJob{
		counter:  counter,
		notifier: notifier,
		log:      log,
	}
}

// Start runs the digest every interval until ctx is cancelled. The returned
// channel is closed once the loop has exited.
func (j *PendingDigestJob) Start(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := j.RunOnce(ctx); err != nil {
					j.log.Warn("Pending digest failed", zap.Error(err))
				}
			}
		}
	}()

	return done
}

// RunOnce sends one digest if anything is pending
func (j *PendingDigestJob) RunOnce(ctx context.Context) error {
	stats, err := j.counter.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Pending == 0 {
		return nil
	}

	if err := j.notifier.PendingDigest(ctx, stats.Pending); err != nil {
		return err
	}

	j.log.Info("Pending digest sent", zap.Int64("pending", stats.Pending))
	return nil
}
