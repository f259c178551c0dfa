package workflows

import (
	"context"
	"errors"
	"time"

	perrors "github.com/muhasabah-app/profilesync/internal/errors"
	"github.com/muhasabah-app/profilesync/internal/syncer"
)

// StartPeriodicSync runs a bidirectional private-half sync every interval
// while the loaded profile has EnableSync set. The timer stops when ctx is
// cancelled, on Logout/Close, or when StartPeriodicSync is called again
// (the previous timer is replaced). Leaking a timer across logins would
// sync one user's data under another's session.
func (f *Facade) StartPeriodicSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	f.StopPeriodicSync()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		cancel()
		close(done)
		return
	}
	f.periodicCancel = cancel
	f.periodicDone = done
	f.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.periodicTick(ctx)
			}
		}
	}()
}

// StopPeriodicSync cancels the background sync timer, waiting for an
// in-flight tick to finish.
func (f *Facade) StopPeriodicSync() {
	f.mu.Lock()
	cancel := f.periodicCancel
	done := f.periodicDone
	f.periodicCancel = nil
	f.periodicDone = nil
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (f *Facade) periodicTick(ctx context.Context) {
	userID := f.currentUser()
	if userID == "" {
		return
	}

	pub, err := f.store.GetPublicProfile(userID)
	if err != nil || !pub.PrivacySettings.EnableSync {
		return
	}

	result, err := f.engine.Sync(ctx, syncer.Options{
		UserID:    userID,
		Direction: syncer.Bidirectional,
		Halves:    syncer.PrivateHalf,
	})
	if err != nil {
		if !errors.Is(err, perrors.ErrCircuitOpen) && !errors.Is(err, context.Canceled) {
			f.log.Warnf("Periodic sync failed: %v", err)
		}
		return
	}

	f.notify(userID, result)
}
