package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/muhasabah-app/profilesync/internal/crypto"
	perrors "github.com/muhasabah-app/profilesync/internal/errors"
	"github.com/muhasabah-app/profilesync/internal/profile"
)

// ProfileAPI is the typed view of the profile service contract. Every call
// goes through the resilient client.
type ProfileAPI struct {
	client *Client
}

// NewProfileAPI wraps a resilient client with the profile service routes.
func NewProfileAPI(client *Client) *ProfileAPI {
	return &ProfileAPI{client: client}
}

// FetchPublic returns the remote public profile, or nil when the remote
// has none.
func (a *ProfileAPI) FetchPublic(ctx context.Context, opts CallOptions) (*profile.PublicProfile, error) {
	resp, err := a.client.Do(ctx, http.MethodGet, "/profile", nil, opts)
	if err != nil {
		if errors.Is(err, perrors.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var pub profile.PublicProfile
	if err := json.Unmarshal(resp.Body, &pub); err != nil {
		return nil, fmt.Errorf("failed to decode public profile: %w", err)
	}
	return &pub, nil
}

// CreatePublic creates the public profile. It prefers the dedicated create
// route and falls back to POST /profile when the route is absent. A 409
// surfaces as ErrConflict for the caller to recover by fetching.
func (a *ProfileAPI) CreatePublic(ctx context.Context, pub *profile.PublicProfile, opts CallOptions) (*profile.PublicProfile, error) {
	resp, err := a.client.Do(ctx, http.MethodPost, "/profile/create", pub, opts)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusMethodNotAllowed) {
			resp, err = a.client.Do(ctx, http.MethodPost, "/profile", pub, opts)
		}
		if err != nil {
			return nil, err
		}
	}

	var created profile.PublicProfile
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created profile: %w", err)
	}
	return &created, nil
}

// UpdatePublic replaces the remote public profile.
func (a *ProfileAPI) UpdatePublic(ctx context.Context, pub *profile.PublicProfile, opts CallOptions) error {
	_, err := a.client.Do(ctx, http.MethodPut, "/profile", pub, opts)
	return err
}

// DeletePublic removes the remote public profile and its encrypted blob.
// An already-absent profile is not an error.
func (a *ProfileAPI) DeletePublic(ctx context.Context, opts CallOptions) error {
	_, err := a.client.Do(ctx, http.MethodDelete, "/profile", nil, opts)
	if err != nil && errors.Is(err, perrors.ErrProfileNotFound) {
		return nil
	}
	return err
}

// FetchEncrypted returns the remote encrypted private blob, or nil when
// the remote has none.
func (a *ProfileAPI) FetchEncrypted(ctx context.Context, userID string, opts CallOptions) (*crypto.EncryptedBlob, error) {
	endpoint := fmt.Sprintf("/profile/%s/encrypted", url.PathEscape(userID))
	resp, err := a.client.Do(ctx, http.MethodGet, endpoint, nil, opts)
	if err != nil {
		if errors.Is(err, perrors.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var blob crypto.EncryptedBlob
	if err := json.Unmarshal(resp.Body, &blob); err != nil {
		return nil, fmt.Errorf("failed to decode encrypted blob: %w", err)
	}
	if blob.Ciphertext == "" {
		return nil, nil
	}
	return &blob, nil
}

// PutEncrypted replaces the remote encrypted private blob.
func (a *ProfileAPI) PutEncrypted(ctx context.Context, userID string, blob *crypto.EncryptedBlob, opts CallOptions) error {
	endpoint := fmt.Sprintf("/profile/%s/encrypted", url.PathEscape(userID))
	_, err := a.client.Do(ctx, http.MethodPut, endpoint, blob, opts)
	return err
}

// Reset clears the underlying client's breaker state.
func (a *ProfileAPI) Reset() {
	a.client.Reset()
}
