package workflows

import "github.com/muhasabah-app/profilesync/internal/syncer"

// ChangeEvent describes a profile change that originated outside the local
// device, applied to the local cache by a sync.
type ChangeEvent struct {
	UserID         string
	PublicChanged  bool
	PrivateChanged bool
}

// OnExternalProfileChange registers a callback fired whenever a sync
// applies a remote-won change to the local cache. The returned function
// cancels the registration. Callbacks run on the syncing goroutine and
// should return quickly.
func (f *Facade) OnExternalProfileChange(fn func(ChangeEvent)) (cancel func()) {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()

	id := f.nextWatch
	f.nextWatch++
	f.watchers[id] = fn

	return func() {
		f.watchMu.Lock()
		defer f.watchMu.Unlock()
		delete(f.watchers, id)
	}
}

// notify fans a sync result out to watchers. Local-won pushes do not
// notify; only changes the remote brought in. Nothing is delivered after
// the facade closes.
func (f *Facade) notify(userID string, result *syncer.Result) {
	if !result.RemoteWonPublic && !result.RemoteWonPrivate {
		return
	}

	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}

	event := ChangeEvent{
		UserID:         userID,
		PublicChanged:  result.RemoteWonPublic,
		PrivateChanged: result.RemoteWonPrivate,
	}

	f.watchMu.Lock()
	watchers := make([]func(ChangeEvent), 0, len(f.watchers))
	for _, fn := range f.watchers {
		watchers = append(watchers, fn)
	}
	f.watchMu.Unlock()

	for _, fn := range watchers {
		fn(event)
	}
}
