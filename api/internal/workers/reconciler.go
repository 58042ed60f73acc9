package workers

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/irgordon/ak/api/internal/core/domain"
)

// Reconciler periodically realigns every profile's name list with its
// contents. It only runs when AK_RECONCILE_INTERVAL is set.
type Reconciler struct {
	store       domain.ProfileStore
	logger      *slog.Logger
	interval    time.Duration
	concurrency int // 🛡️ SLA: Limit concurrent gpg subprocesses
	jitter      time.Duration
}

func NewReconciler(store domain.ProfileStore, logger *slog.Logger, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:       store,
		logger:      logger.With("component", "reconciler"),
		interval:    interval,
		concurrency: 4,
		jitter:      500 * time.Millisecond,
	}
}

// Start blocks until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Reconciler started", slog.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce reconciles all profiles and returns how many succeeded.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	profiles, err := r.store.ListProfiles(ctx)
	if err != nil {
		r.logger.Error("Failed to list profiles", slog.Any("error", err))
		return 0
	}

	// 🛡️ SLA: Concurrency control via semaphore
	sem := make(chan struct{}, r.concurrency)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)

	for _, name := range profiles {
		wg.Add(1)

		go func(profile string) {
			defer wg.Done()

			// 🛡️ Jitter: Spread gpg invocations out
			if r.jitter > 0 {
				select {
				case <-time.After(time.Duration(rand.Int63n(int64(r.jitter)))):
				case <-ctx.Done():
					return
				}
			}

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if _, err := r.store.Reconcile(ctx, profile); err != nil {
				if errors.Is(err, domain.ErrContentsUnreadable) {
					r.logger.Info("Skipped profile with unreadable contents", slog.String("profile", profile))
					return
				}
				r.logger.Warn("Failed to reconcile profile", slog.String("profile", profile), slog.Any("error", err))
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	return ok
}
