package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/muhasabah-app/profilesync/internal/crypto"
	perrors "github.com/muhasabah-app/profilesync/internal/errors"
	logger "github.com/muhasabah-app/profilesync/internal/logging"
	"github.com/muhasabah-app/profilesync/internal/profile"
)

func newTestAPI(t *testing.T, handler http.Handler) *ProfileAPI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, BaseDelay: time.Millisecond}, func() string { return "tok" }, logger.Logger{})
	return NewProfileAPI(client)
}

func TestFetchPublicAbsentIsNil(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	pub, err := api.FetchPublic(context.Background(), CallOptions{})
	if err != nil || pub != nil {
		t.Errorf("Expected (nil, nil) for 404, got (%v, %v)", pub, err)
	}
}

func TestFetchPublicDecodes(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(profile.PublicProfile{UserID: "user-1", Version: 3})
	}))

	pub, err := api.FetchPublic(context.Background(), CallOptions{})
	if err != nil {
		t.Fatalf("FetchPublic failed: %v", err)
	}
	if pub.UserID != "user-1" || pub.Version != 3 {
		t.Errorf("Unexpected profile %+v", pub)
	}
}

func TestCreatePublicFallsBackToPlainRoute(t *testing.T) {
	var createRouteHit, plainRouteHit bool
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/profile/create":
			createRouteHit = true
			http.NotFound(w, r)
		case "/profile":
			plainRouteHit = true
			var pub profile.PublicProfile
			_ = json.NewDecoder(r.Body).Decode(&pub)
			json.NewEncoder(w).Encode(pub)
		}
	}))

	created, err := api.CreatePublic(context.Background(), &profile.PublicProfile{UserID: "user-1", Version: 1}, CallOptions{})
	if err != nil {
		t.Fatalf("CreatePublic failed: %v", err)
	}
	if !createRouteHit || !plainRouteHit {
		t.Error("Expected the dedicated route to be tried before the fallback")
	}
	if created.UserID != "user-1" {
		t.Errorf("Unexpected created profile %+v", created)
	}
}

func TestCreatePublicConflict(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := api.CreatePublic(context.Background(), &profile.PublicProfile{UserID: "user-1"}, CallOptions{})
	if !errors.Is(err, perrors.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
}

func TestFetchEncrypted(t *testing.T) {
	t.Run("AbsentIsNil", func(t *testing.T) {
		api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		blob, err := api.FetchEncrypted(context.Background(), "user-1", CallOptions{})
		if err != nil || blob != nil {
			t.Errorf("Expected (nil, nil), got (%v, %v)", blob, err)
		}
	})

	t.Run("EmptyCiphertextIsNil", func(t *testing.T) {
		api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(crypto.EncryptedBlob{})
		}))
		blob, err := api.FetchEncrypted(context.Background(), "user-1", CallOptions{})
		if err != nil || blob != nil {
			t.Errorf("Expected (nil, nil) for empty blob, got (%v, %v)", blob, err)
		}
	})

	t.Run("EscapesUserID", func(t *testing.T) {
		var gotPath string
		api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			json.NewEncoder(w).Encode(crypto.EncryptedBlob{Ciphertext: "Yw==", IV: "aXY=", Version: 1})
		}))
		if _, err := api.FetchEncrypted(context.Background(), "user/1", CallOptions{}); err != nil {
			t.Fatalf("FetchEncrypted failed: %v", err)
		}
		if gotPath != "/profile/user%2F1/encrypted" {
			t.Errorf("Expected escaped path, got %q", gotPath)
		}
	})
}

func TestDeletePublicAbsentIsNotError(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	if err := api.DeletePublic(context.Background(), CallOptions{}); err != nil {
		t.Errorf("Expected absent profile delete to succeed, got %v", err)
	}
}
