package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muhasabah-app/profilesync/internal/crypto"
	perrors "github.com/muhasabah-app/profilesync/internal/errors"
	"github.com/muhasabah-app/profilesync/internal/keys"
	logger "github.com/muhasabah-app/profilesync/internal/logging"
	"github.com/muhasabah-app/profilesync/internal/profile"
	"github.com/muhasabah-app/profilesync/internal/store"
	"github.com/muhasabah-app/profilesync/internal/transport"
)

// Direction selects how local and remote state reconcile.
//
// Bidirectional compares version counters; on equal versions the local
// value wins (last-writer-wins from the initiating device's perspective).
// Concurrent edits from two devices that start at the same base version can
// therefore silently drop one side's change; integrators needing stronger
// semantics must layer them above the engine.
type Direction string

const (
	// Pull makes a present remote value unconditionally replace local.
	Pull Direction = "pull"

	// Push bumps the local value and makes it canonical regardless of
	// remote state.
	Push Direction = "push"

	// Bidirectional compares versions: strictly newer remote wins,
	// otherwise local wins and is pushed.
	Bidirectional Direction = "bidirectional"
)

// Halves selects which profile halves a sync touches. Updates that patch
// only one half push only that half, and the periodic timer re-syncs the
// private half alone.
type Halves int

const (
	// BothHalves reconciles public then private.
	BothHalves Halves = iota

	// PublicHalf reconciles only the public profile.
	PublicHalf

	// PrivateHalf reconciles only the private profile, gated by the
	// locally cached public privacy settings.
	PrivateHalf
)

// Options configures one sync invocation.
type Options struct {
	// UserID scopes the sync to one user's profile pair.
	UserID string

	// Direction defaults to Bidirectional when empty.
	Direction Direction

	// Halves defaults to BothHalves.
	Halves Halves

	// Priority bypasses open circuit breakers; used by recovery flows.
	Priority bool
}

// Result reports what a sync invocation did. Errors holds non-fatal
// failures (such as an undecryptable remote blob) that degraded but did
// not abort the sync.
type Result struct {
	PublicSynced   bool
	PrivateSynced  bool
	PrivateSkipped bool

	// RemoteWonPublic / RemoteWonPrivate are set when a remote value
	// replaced the local cache, so callers can notify watchers.
	RemoteWonPublic  bool
	RemoteWonPrivate bool

	PublicVersion  int64
	PrivateVersion int64

	Errors []error
}

// Engine reconciles the local cache with the remote profile service.
type Engine struct {
	api   *transport.ProfileAPI
	store *store.Store
	keys  *keys.Manager
	log   logger.Logger

	now func() time.Time
}

// New builds a sync engine.
func New(api *transport.ProfileAPI, st *store.Store, km *keys.Manager, log logger.Logger) *Engine {
	return &Engine{
		api:   api,
		store: st,
		keys:  km,
		log:   log,
		now:   time.Now,
	}
}

// Sync reconciles both profile halves. The public half fully completes,
// including any remote push, before the private half begins: private-half
// decisions depend on the just-reconciled privacy settings. Transport
// failures on required operations abort with an error naming the half;
// decrypt failures degrade and are accumulated in Result.Errors.
func (e *Engine) Sync(ctx context.Context, opts Options) (*Result, error) {
	if opts.UserID == "" {
		return nil, fmt.Errorf("sync requires a user id: %w", perrors.ErrValidation)
	}
	direction := opts.Direction
	if direction == "" {
		direction = Bidirectional
	}

	result := &Result{}
	callOpts := transport.CallOptions{MaxRetries: -1, Priority: opts.Priority}

	meta, err := e.store.GetSyncMetadata(opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync metadata: %w", err)
	}

	var pub *profile.PublicProfile
	if opts.Halves == PrivateHalf {
		// Gate the private half on the cached public settings without
		// touching the public half remotely.
		pub, err = e.store.GetPublicProfile(opts.UserID)
		if err != nil && !errors.Is(err, perrors.ErrProfileNotFound) {
			return nil, fmt.Errorf("public half: %w", err)
		}
	} else {
		pub, err = e.syncPublic(ctx, direction, opts.UserID, meta, callOpts, result)
		if err != nil {
			return nil, fmt.Errorf("public half: %w", err)
		}
	}

	if pub == nil {
		// No profile anywhere; nothing to reconcile.
		return result, nil
	}

	switch {
	case opts.Halves == PublicHalf:
		// Private half not requested.
	case pub.PrivacySettings.LocalStorageOnly:
		e.log.Debugf("Private half skipped for %s: local storage only", opts.UserID)
		result.PrivateSkipped = true
		var committed bool
		if direction == Push {
			// The write still has to happen; only the network is off-limits.
			committed, err = e.commitPrivateLocal(opts.UserID, meta, result)
			if err != nil {
				return nil, fmt.Errorf("private half: %w", err)
			}
		}
		if opts.Halves == PrivateHalf && !committed {
			// The caller asked for the private half specifically; tell it why
			// nothing moved.
			result.Errors = append(result.Errors, fmt.Errorf("private half not synced: %w", perrors.ErrLocalOnly))
		}
	default:
		if err := e.syncPrivate(ctx, direction, opts.UserID, meta, callOpts, result); err != nil {
			return nil, fmt.Errorf("private half: %w", err)
		}
	}

	meta.LastSyncTime = e.now().UTC()
	if err := e.store.PutSyncMetadata(meta); err != nil {
		return nil, fmt.Errorf("failed to persist sync metadata: %w", err)
	}

	return result, nil
}

// syncPublic reconciles the public half and returns the canonical public
// profile, or nil when neither side has one.
func (e *Engine) syncPublic(ctx context.Context, direction Direction, userID string, meta *profile.SyncMetadata, callOpts transport.CallOptions, result *Result) (*profile.PublicProfile, error) {
	local, err := e.store.GetPublicProfile(userID)
	if err != nil && !errors.Is(err, perrors.ErrProfileNotFound) {
		return nil, err
	}

	switch direction {
	case Pull:
		remote, err := e.api.FetchPublic(ctx, callOpts)
		if err != nil {
			return nil, err
		}
		if remote == nil {
			return local, nil
		}
		if err := e.applyRemotePublic(remote, meta, result); err != nil {
			return nil, err
		}
		return remote, nil

	case Push:
		if local == nil {
			return nil, nil
		}
		if err := e.pushPublic(ctx, local, meta, callOpts, result); err != nil {
			return nil, err
		}
		return local, nil

	default: // Bidirectional
		remote, err := e.api.FetchPublic(ctx, callOpts)
		if err != nil {
			return nil, err
		}

		var localVersion int64
		if local != nil {
			localVersion = local.Version
		}

		if remote != nil && remote.Version > localVersion {
			if err := e.applyRemotePublic(remote, meta, result); err != nil {
				return nil, err
			}
			return remote, nil
		}
		if local == nil {
			return nil, nil
		}
		// Local is equal-or-newer (or remote absent): local wins.
		if err := e.pushPublic(ctx, local, meta, callOpts, result); err != nil {
			return nil, err
		}
		return local, nil
	}
}

func (e *Engine) applyRemotePublic(remote *profile.PublicProfile, meta *profile.SyncMetadata, result *Result) error {
	if err := e.store.PutPublicProfile(remote); err != nil {
		return err
	}
	meta.PublicVersion = remote.Version
	result.PublicSynced = true
	result.RemoteWonPublic = true
	result.PublicVersion = remote.Version
	e.log.Debugf("Public profile updated from remote (v%d)", remote.Version)
	return nil
}

// pushPublic bumps the local version, stamps the update time, and makes the
// local value canonical on both sides. A remote that lost the profile is
// recreated rather than failed.
func (e *Engine) pushPublic(ctx context.Context, local *profile.PublicProfile, meta *profile.SyncMetadata, callOpts transport.CallOptions, result *Result) error {
	local.Version++
	local.UpdatedAt = e.now().UTC()

	err := e.api.UpdatePublic(ctx, local, callOpts)
	if err != nil && errors.Is(err, perrors.ErrProfileNotFound) {
		_, err = e.api.CreatePublic(ctx, local, callOpts)
		if err != nil && errors.Is(err, perrors.ErrConflict) {
			// Someone else created it between our calls; our update still
			// carries the newer version, so replace it.
			err = e.api.UpdatePublic(ctx, local, callOpts)
		}
	}
	if err != nil {
		local.Version--
		return err
	}

	if err := e.store.PutPublicProfile(local); err != nil {
		return err
	}
	meta.PublicVersion = local.Version
	result.PublicSynced = true
	result.PublicVersion = local.Version
	e.log.Debugf("Public profile pushed (v%d)", local.Version)
	return nil
}

// commitPrivateLocal commits a pushed private profile for a LocalStorageOnly
// user without touching the network: the version bump and device stamp still
// apply, and the refreshed blob lands in the local cache so the document
// survives a restart. Returns false when there is nothing to commit.
func (e *Engine) commitPrivateLocal(userID string, meta *profile.SyncMetadata, result *Result) (bool, error) {
	local := e.store.GetPrivateProfile(userID)
	if local == nil {
		return false, nil
	}

	key, err := e.keys.GetOrCreateKey(userID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("private profile unavailable: %w", err))
		return false, nil
	}
	codec, err := crypto.NewCodec(key)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("private profile unavailable: %w", err))
		return false, nil
	}

	local.Version++
	local.LastModified = e.now().UTC()
	local.DeviceID = meta.DeviceID

	blob, err := codec.EncryptJSON(local, local.Version)
	if err != nil {
		return false, err
	}
	if err := e.store.PutEncryptedBlob(userID, blob); err != nil {
		return false, err
	}
	e.store.PutPrivateProfile(userID, local)
	meta.PrivateVersion = local.Version
	result.PrivateVersion = local.Version
	e.log.Debugf("Private profile committed locally (v%d)", local.Version)
	return true, nil
}

// syncPrivate reconciles the private half. The remote only ever sees the
// encrypted blob; comparison happens on the decrypted version counter and
// every push re-encrypts under a fresh nonce.
func (e *Engine) syncPrivate(ctx context.Context, direction Direction, userID string, meta *profile.SyncMetadata, callOpts transport.CallOptions, result *Result) error {
	key, err := e.keys.GetOrCreateKey(userID)
	if err != nil {
		// Private data unavailable; public half stays usable.
		result.Errors = append(result.Errors, fmt.Errorf("private profile unavailable: %w", err))
		return nil
	}
	codec, err := crypto.NewCodec(key)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("private profile unavailable: %w", err))
		return nil
	}

	local := e.loadLocalPrivate(userID, codec, result)

	switch direction {
	case Pull:
		remote, blob, ok := e.fetchRemotePrivate(ctx, codec, userID, callOpts, result)
		if !ok {
			return nil // remote unusable: keep local
		}
		if remote == nil {
			return nil
		}
		return e.applyRemotePrivate(userID, remote, blob, meta, result)

	case Push:
		if local == nil {
			return nil
		}
		return e.pushPrivate(ctx, codec, userID, local, meta, callOpts, result)

	default: // Bidirectional
		remote, blob, ok := e.fetchRemotePrivate(ctx, codec, userID, callOpts, result)
		if !ok {
			return nil // remote unusable: keep local, do not propagate corruption
		}

		var localVersion int64
		if local != nil {
			localVersion = local.Version
		}

		if remote != nil && remote.Version > localVersion {
			return e.applyRemotePrivate(userID, remote, blob, meta, result)
		}
		if local == nil {
			return nil
		}
		return e.pushPrivate(ctx, codec, userID, local, meta, callOpts, result)
	}
}

// loadLocalPrivate returns the in-memory plaintext, falling back to
// decrypting the locally cached blob (e.g. after a restart). A local blob
// that no longer decrypts is reported but does not abort the sync.
func (e *Engine) loadLocalPrivate(userID string, codec *crypto.Codec, result *Result) *profile.PrivateProfile {
	if priv := e.store.GetPrivateProfile(userID); priv != nil {
		return priv
	}

	blob, err := e.store.GetEncryptedBlob(userID)
	if err != nil || blob == nil {
		return nil
	}

	var priv profile.PrivateProfile
	if err := codec.DecryptJSON(blob, &priv); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("cached private profile unusable: %w", err))
		return nil
	}
	e.store.PutPrivateProfile(userID, &priv)
	return &priv
}

// fetchRemotePrivate fetches and decrypts the remote blob. ok is false when
// the remote value exists but cannot be used (decrypt failure), which
// callers treat as "keep local".
func (e *Engine) fetchRemotePrivate(ctx context.Context, codec *crypto.Codec, userID string, callOpts transport.CallOptions, result *Result) (*profile.PrivateProfile, *crypto.EncryptedBlob, bool) {
	blob, err := e.api.FetchEncrypted(ctx, userID, callOpts)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("failed to fetch remote private profile: %w", err))
		return nil, nil, false
	}
	if blob == nil {
		return nil, nil, true
	}

	var remote profile.PrivateProfile
	if err := codec.DecryptJSON(blob, &remote); err != nil {
		e.log.Warnf("Remote private profile for %s is unusable, keeping local value", userID)
		result.Errors = append(result.Errors, fmt.Errorf("remote private profile unusable: %w", err))
		return nil, nil, false
	}
	return &remote, blob, true
}

func (e *Engine) applyRemotePrivate(userID string, remote *profile.PrivateProfile, blob *crypto.EncryptedBlob, meta *profile.SyncMetadata, result *Result) error {
	if err := e.store.PutEncryptedBlob(userID, blob); err != nil {
		return err
	}
	e.store.PutPrivateProfile(userID, remote)
	meta.PrivateVersion = remote.Version
	result.PrivateSynced = true
	result.RemoteWonPrivate = true
	result.PrivateVersion = remote.Version
	e.log.Debugf("Private profile updated from remote (v%d)", remote.Version)
	return nil
}

// pushPrivate bumps, stamps and re-encrypts the local private profile under
// a fresh nonce before sending it.
func (e *Engine) pushPrivate(ctx context.Context, codec *crypto.Codec, userID string, local *profile.PrivateProfile, meta *profile.SyncMetadata, callOpts transport.CallOptions, result *Result) error {
	local.Version++
	local.LastModified = e.now().UTC()
	local.DeviceID = meta.DeviceID

	blob, err := codec.EncryptJSON(local, local.Version)
	if err != nil {
		local.Version--
		return err
	}

	if err := e.api.PutEncrypted(ctx, userID, blob, callOpts); err != nil {
		local.Version--
		return err
	}

	if err := e.store.PutEncryptedBlob(userID, blob); err != nil {
		return err
	}
	e.store.PutPrivateProfile(userID, local)
	meta.PrivateVersion = local.Version
	result.PrivateSynced = true
	result.PrivateVersion = local.Version
	e.log.Debugf("Private profile pushed (v%d)", local.Version)
	return nil
}
