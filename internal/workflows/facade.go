package workflows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	perrors "github.com/muhasabah-app/profilesync/internal/errors"
	"github.com/muhasabah-app/profilesync/internal/keys"
	logger "github.com/muhasabah-app/profilesync/internal/logging"
	"github.com/muhasabah-app/profilesync/internal/profile"
	"github.com/muhasabah-app/profilesync/internal/store"
	"github.com/muhasabah-app/profilesync/internal/syncer"
	"github.com/muhasabah-app/profilesync/internal/transport"
)

// inflightInit is the shared slot guarding profile creation-on-first-use.
// Whoever finds the slot empty performs the create; everyone else awaits
// the same result instead of racing a second remote fetch/create.
type inflightInit struct {
	done chan struct{}
	pub  *profile.PublicProfile
	err  error
}

// UpdateResult reports the documents and sync outcome of an Update call.
type UpdateResult struct {
	Public  *profile.PublicProfile
	Private *profile.PrivateProfile
	Sync    *syncer.Result
}

// Facade is the single entry point the application layer consumes: load,
// update, reset, key backup transfer and the privacy-filtered AI context
// projection.
type Facade struct {
	api    *transport.ProfileAPI
	store  *store.Store
	keys   *keys.Manager
	engine *syncer.Engine
	token  transport.TokenSource
	log    logger.Logger

	mu     sync.Mutex
	userID string
	init   *inflightInit
	closed bool

	periodicCancel context.CancelFunc
	periodicDone   chan struct{}

	watchMu   sync.Mutex
	watchers  map[int]func(ChangeEvent)
	nextWatch int
}

// New builds a facade over the engine's components.
func New(api *transport.ProfileAPI, st *store.Store, km *keys.Manager, engine *syncer.Engine, token transport.TokenSource, log logger.Logger) *Facade {
	return &Facade{
		api:      api,
		store:    st,
		keys:     km,
		engine:   engine,
		token:    token,
		log:      log,
		watchers: make(map[int]func(ChangeEvent)),
	}
}

// Load returns the user's public profile, creating it remotely on first
// use. An unauthenticated caller gets (nil, nil): no profile, no error.
// Concurrent Load/Update calls for a brand-new user share a single create;
// exactly one POST reaches the network.
func (f *Facade) Load(ctx context.Context, userID string) (*profile.PublicProfile, error) {
	if f.token() == "" {
		return nil, nil
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, perrors.ErrFacadeClosed
	}
	f.userID = userID
	f.mu.Unlock()

	pub, err := f.store.GetPublicProfile(userID)
	if err == nil {
		return pub, nil
	}
	if !errors.Is(err, perrors.ErrProfileNotFound) {
		return nil, err
	}

	pub, err = f.fetchOrCreate(ctx, userID)
	if err != nil && remoteUnavailable(err) {
		// Read path: a broken remote degrades to "no profile" instead of
		// failing the caller. Update and Sync still surface their errors.
		f.log.Warnf("Profile fetch failed, continuing without a profile: %v", err)
		return nil, nil
	}
	return pub, err
}

// remoteUnavailable reports whether err is a transport-layer failure, as
// opposed to a local, cancellation or validation one.
func remoteUnavailable(err error) bool {
	var statusErr *transport.StatusError
	return errors.As(err, &statusErr) ||
		errors.Is(err, perrors.ErrCircuitOpen) ||
		errors.Is(err, perrors.ErrRetriesExhausted) ||
		errors.Is(err, perrors.ErrTimeout)
}

// fetchOrCreate resolves "no local profile" through the shared init slot.
func (f *Facade) fetchOrCreate(ctx context.Context, userID string) (*profile.PublicProfile, error) {
	f.mu.Lock()
	if init := f.init; init != nil {
		// Initialization already in flight: await its result rather than
		// racing a second fetch/create.
		f.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-init.done:
			return init.pub, init.err
		}
	}

	init := &inflightInit{done: make(chan struct{})}
	f.init = init
	f.mu.Unlock()

	pub, err := f.doFetchOrCreate(ctx, userID)

	// Release the slot regardless of outcome so a failed init can be retried.
	f.mu.Lock()
	init.pub, init.err = pub, err
	close(init.done)
	f.init = nil
	f.mu.Unlock()

	return pub, err
}

func (f *Facade) doFetchOrCreate(ctx context.Context, userID string) (*profile.PublicProfile, error) {
	callOpts := transport.CallOptions{MaxRetries: -1}

	remote, err := f.api.FetchPublic(ctx, callOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if remote != nil {
		return f.adopt(remote)
	}

	now := time.Now().UTC()
	fresh := &profile.PublicProfile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		GeneralPreferences: profile.GeneralPreferences{
			InputMethod:         "text",
			ReflectionFrequency: "daily",
			Language:            "en",
		},
		PrivacySettings: profile.PrivacySettings{
			AllowPersonalization: true,
			EnableSync:           true,
		},
	}

	created, err := f.api.CreatePublic(ctx, fresh, callOpts)
	if err != nil {
		if errors.Is(err, perrors.ErrConflict) {
			// Another device created it first; the existing one wins.
			existing, fetchErr := f.api.FetchPublic(ctx, callOpts)
			if fetchErr != nil {
				return nil, fmt.Errorf("profile exists but could not be fetched: %w", fetchErr)
			}
			if existing == nil {
				return nil, perrors.ErrProfileNotFound
			}
			return f.adopt(existing)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	f.log.Infof("Created profile for %s", userID)
	return f.adopt(created)
}

// adopt writes a remote-sourced public profile into the local cache and
// aligns sync metadata with it.
func (f *Facade) adopt(pub *profile.PublicProfile) (*profile.PublicProfile, error) {
	if err := f.store.PutPublicProfile(pub); err != nil {
		return nil, err
	}
	meta, err := f.store.GetSyncMetadata(pub.UserID)
	if err != nil {
		return nil, err
	}
	meta.PublicVersion = pub.Version
	if err := f.store.PutSyncMetadata(meta); err != nil {
		return nil, err
	}
	return pub, nil
}

// Update validates and deep-merges the given patches into the current
// documents, then pushes the affected halves. Either patch may be nil.
func (f *Facade) Update(ctx context.Context, publicPatch, privatePatch map[string]any) (*UpdateResult, error) {
	if f.token() == "" {
		return nil, perrors.ErrNotAuthenticated
	}
	userID := f.currentUser()
	if userID == "" {
		return nil, fmt.Errorf("no profile loaded: %w", perrors.ErrNotAuthenticated)
	}
	if publicPatch == nil && privatePatch == nil {
		return nil, fmt.Errorf("nothing to update: %w", perrors.ErrValidation)
	}

	// Reject malformed patches before any network call.
	if publicPatch != nil {
		if err := profile.ValidatePublicPatch(publicPatch); err != nil {
			return nil, err
		}
	}
	if privatePatch != nil {
		if err := profile.ValidatePrivatePatch(privatePatch); err != nil {
			return nil, err
		}
	}

	pub, err := f.store.GetPublicProfile(userID)
	if errors.Is(err, perrors.ErrProfileNotFound) {
		// Absorb the race where another caller just created it.
		pub, err = f.fetchOrCreate(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	halves := syncer.BothHalves
	if publicPatch != nil {
		merged, err := profile.MergePublic(pub, publicPatch)
		if err != nil {
			return nil, err
		}
		if err := f.store.PutPublicProfile(merged); err != nil {
			return nil, err
		}
		pub = merged
	} else {
		halves = syncer.PrivateHalf
	}

	var priv *profile.PrivateProfile
	if privatePatch != nil {
		priv = f.store.GetPrivateProfile(userID)
		if priv == nil {
			meta, err := f.store.GetSyncMetadata(userID)
			if err != nil {
				return nil, err
			}
			priv = &profile.PrivateProfile{DeviceID: meta.DeviceID, Version: meta.PrivateVersion}
		}
		merged, err := profile.MergePrivate(priv, privatePatch)
		if err != nil {
			return nil, err
		}
		f.store.PutPrivateProfile(userID, merged)
		priv = merged
	} else if halves == syncer.BothHalves {
		halves = syncer.PublicHalf
	}

	result, err := f.engine.Sync(ctx, syncer.Options{
		UserID:    userID,
		Direction: syncer.Push,
		Halves:    halves,
	})
	if err != nil {
		return nil, err
	}

	return &UpdateResult{
		Public:  mustGetPublic(f.store, userID, pub),
		Private: f.store.GetPrivateProfile(userID),
		Sync:    result,
	}, nil
}

// Sync runs a reconciliation in the given direction and notifies watchers
// of remote-won changes.
func (f *Facade) Sync(ctx context.Context, direction syncer.Direction, priority bool) (*syncer.Result, error) {
	userID := f.currentUser()
	if userID == "" {
		return nil, fmt.Errorf("no profile loaded: %w", perrors.ErrNotAuthenticated)
	}

	result, err := f.engine.Sync(ctx, syncer.Options{
		UserID:    userID,
		Direction: direction,
		Priority:  priority,
	})
	if err != nil {
		return nil, err
	}

	f.notify(userID, result)
	return result, nil
}

// Reset deletes the remote profile (best-effort: local deletion proceeds
// even if the remote delete fails) and purges all local state and key
// material for the user.
func (f *Facade) Reset(ctx context.Context, userID string) error {
	// Recovery flow: bypass an open breaker deliberately.
	callOpts := transport.CallOptions{MaxRetries: -1, Priority: true}
	if err := f.api.DeletePublic(ctx, callOpts); err != nil {
		f.log.Warnf("Remote profile delete failed, continuing with local reset: %v", err)
	}

	if err := f.store.Purge(userID); err != nil {
		return fmt.Errorf("failed to purge local state: %w", err)
	}

	f.mu.Lock()
	if f.userID == userID {
		f.userID = ""
	}
	f.mu.Unlock()

	f.log.Infof("Profile reset for %s", userID)
	return nil
}

// AIContext returns the privacy-filtered projection of the loaded profile,
// or nil when no profile is loaded.
func (f *Facade) AIContext() *profile.AIContext {
	userID := f.currentUser()
	if userID == "" {
		return nil
	}
	pub, err := f.store.GetPublicProfile(userID)
	if err != nil {
		return nil
	}
	return profile.BuildAIContext(pub, f.store.GetPrivateProfile(userID))
}

// ExportKeyBackup wraps the user's key in a passphrase-protected envelope
// for out-of-band transfer to another device.
func (f *Facade) ExportKeyBackup(passphrase string) ([]byte, error) {
	userID := f.currentUser()
	if userID == "" {
		return nil, fmt.Errorf("no profile loaded: %w", perrors.ErrNotAuthenticated)
	}
	key, err := f.keys.GetOrCreateKey(userID)
	if err != nil {
		return nil, err
	}
	return keys.ExportForBackup(key, passphrase)
}

// ImportKeyBackup installs key material exported on another device.
func (f *Facade) ImportKeyBackup(envelope []byte, passphrase string) error {
	userID := f.currentUser()
	if userID == "" {
		return fmt.Errorf("no profile loaded: %w", perrors.ErrNotAuthenticated)
	}
	key, err := keys.ImportFromBackup(envelope, passphrase)
	if err != nil {
		return err
	}
	return f.keys.ImportKey(userID, key)
}

// Logout clears all cross-call shared state: the periodic sync timer, the
// circuit breaker table, the init slot and every in-memory plaintext
// document. Persisted caches remain for the next login.
func (f *Facade) Logout() {
	f.StopPeriodicSync()

	f.mu.Lock()
	f.userID = ""
	f.init = nil
	f.mu.Unlock()

	f.api.Reset()
	f.store.ClearPlaintext()
	f.log.Debugf("Logged out; shared sync state cleared")
}

// Close tears the facade down. Background pushes already handed to the
// engine complete and commit; only caller-facing callbacks stop.
func (f *Facade) Close() {
	f.Logout()

	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.watchMu.Lock()
	f.watchers = make(map[int]func(ChangeEvent))
	f.watchMu.Unlock()
}

func (f *Facade) currentUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

// mustGetPublic rereads the post-sync public profile, falling back to the
// pre-sync document if the cache read fails.
func mustGetPublic(st *store.Store, userID string, fallback *profile.PublicProfile) *profile.PublicProfile {
	pub, err := st.GetPublicProfile(userID)
	if err != nil {
		return fallback
	}
	return pub
}
