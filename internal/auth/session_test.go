package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/brettbeeson/notsolong/internal/api"
)

// sessionBackend is a scriptable fake of the auth endpoints.
type sessionBackend struct {
	mux          *http.ServeMux
	server       *httptest.Server
	userCalls    int32
	logoutCalls  int32
	logoutBody   atomic.Value
	refreshCode  int32
	refreshCalls int32
}

func newSessionBackend(t *testing.T) *sessionBackend {
	t.Helper()
	b := &sessionBackend{mux: http.NewServeMux()}
	b.refreshCode = http.StatusOK

	b.mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var input api.LoginInput
		json.NewDecoder(r.Body).Decode(&input)
		if input.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials."})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access":  "access-1",
			"refresh": "refresh-1",
			"user":    api.User{Email: input.Email},
		})
	})
	b.mux.HandleFunc("/auth/registration/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"tokens": api.Tokens{Access: "access-1", Refresh: "refresh-1"},
			"user":   api.User{Email: "new@user.dev"},
		})
	})
	b.mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.userCalls, 1)
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated."})
			return
		}
		json.NewEncoder(w).Encode(api.User{Email: "a@b.c", Username: "reader"})
	})
	b.mux.HandleFunc("/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.logoutCalls, 1)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		b.logoutBody.Store(body["refresh"])
		w.WriteHeader(http.StatusOK)
	})
	b.mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.refreshCalls, 1)
		code := int(atomic.LoadInt32(&b.refreshCode))
		if code != http.StatusOK {
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{"detail": "refresh rejected"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access": "access-2"})
	})

	b.server = httptest.NewServer(b.mux)
	t.Cleanup(b.server.Close)
	return b
}

func newTestManager(t *testing.T, backend *sessionBackend) (*Manager, *MemoryStore, *api.Client) {
	t.Helper()
	store := NewMemoryStore()
	client := api.NewClient(backend.server.URL, nil, store, nil)
	return NewManager(client, store, nil, 0), store, client
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Login", func(t *testing.T) {
		t.Run("Success Applies Session Atomically", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, store, client := newTestManager(t, backend)

			err := manager.Login(ctx, api.LoginInput{Email: "a@b.c", Password: "hunter2"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if manager.State() != StateAuthenticated {
				t.Errorf("expected authenticated, got %v", manager.State())
			}
			if tokens := manager.Tokens(); tokens == nil || tokens.Access != "access-1" {
				t.Errorf("expected tokens in memory, got %+v", tokens)
			}
			if stored := store.Get(); stored == nil || stored.Refresh != "refresh-1" {
				t.Errorf("expected tokens persisted, got %+v", stored)
			}
			if client.AuthToken() != "access-1" {
				t.Errorf("expected default header set, got %q", client.AuthToken())
			}
			if user := manager.User(); user == nil || user.Username != "reader" {
				t.Errorf("expected fresh profile after login, got %+v", user)
			}
		})

		t.Run("Failure Leaves State Untouched", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, store, client := newTestManager(t, backend)

			err := manager.Login(ctx, api.LoginInput{Email: "a@b.c", Password: "wrong"})
			if err == nil {
				t.Fatal("expected an error")
			}
			if manager.State() != StateUnauthenticated {
				t.Errorf("expected unauthenticated, got %v", manager.State())
			}
			if store.Get() != nil || client.AuthToken() != "" {
				t.Error("expected nothing persisted after failed login")
			}
		})
	})

	t.Run("Register Handles Nested Token Shape", func(t *testing.T) {
		backend := newSessionBackend(t)
		manager, _, _ := newTestManager(t, backend)

		if err := manager.Register(ctx, api.RegisterInput{Email: "new@user.dev", Password1: "x", Password2: "x"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tokens := manager.Tokens(); tokens == nil || tokens.Access != "access-1" {
			t.Errorf("expected tokens from the nested shape, got %+v", tokens)
		}
	})

	t.Run("Hydrate", func(t *testing.T) {
		t.Run("With Stored Tokens", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, store, _ := newTestManager(t, backend)
			store.Set(api.Tokens{Access: "access-1", Refresh: "refresh-1"})

			manager.Hydrate(ctx)

			if manager.State() != StateAuthenticated {
				t.Errorf("expected authenticated after hydration, got %v", manager.State())
			}
			if user := manager.User(); user == nil || user.Email != "a@b.c" {
				t.Errorf("expected profile loaded, got %+v", user)
			}
		})

		t.Run("Without Stored Tokens", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, _, _ := newTestManager(t, backend)

			manager.Hydrate(ctx)

			if manager.State() != StateUnauthenticated {
				t.Errorf("expected unauthenticated, got %v", manager.State())
			}
			if got := atomic.LoadInt32(&backend.userCalls); got != 0 {
				t.Errorf("expected no profile fetch without tokens, got %d", got)
			}
		})

		t.Run("Beyond-Recovery Failure Clears Tokens", func(t *testing.T) {
			backend := newSessionBackend(t)
			atomic.StoreInt32(&backend.refreshCode, http.StatusUnauthorized)
			manager, store, client := newTestManager(t, backend)

			// The profile fetch 401s with an empty Authorization header and
			// the follow-up refresh is rejected too.
			store.Set(api.Tokens{Access: "", Refresh: "refresh-1"})

			manager.Hydrate(ctx)

			if manager.State() != StateUnauthenticated {
				t.Errorf("expected unauthenticated, got %v", manager.State())
			}
			if store.Get() != nil {
				t.Error("expected store cleared")
			}
			if client.AuthToken() != "" {
				t.Errorf("expected header cleared, got %q", client.AuthToken())
			}
		})

		t.Run("Expired Access Recovers Via Refresh", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, store, _ := newTestManager(t, backend)
			store.Set(api.Tokens{Access: "", Refresh: "refresh-1"})

			manager.Hydrate(ctx)

			if manager.State() != StateAuthenticated {
				t.Errorf("expected recovery through the refresh path, got %v", manager.State())
			}
			if tokens := manager.Tokens(); tokens == nil || tokens.Access != "access-2" {
				t.Errorf("expected the rotated access token, got %+v", tokens)
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("Clears Locally And Revokes", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, store, client := newTestManager(t, backend)
			manager.Login(ctx, api.LoginInput{Email: "a@b.c", Password: "hunter2"})

			manager.Logout(ctx)

			if manager.State() != StateUnauthenticated {
				t.Errorf("expected unauthenticated, got %v", manager.State())
			}
			if store.Get() != nil || client.AuthToken() != "" {
				t.Error("expected local session fully cleared")
			}
			if got := atomic.LoadInt32(&backend.logoutCalls); got != 1 {
				t.Errorf("expected 1 revoke call, got %d", got)
			}
			if got, _ := backend.logoutBody.Load().(string); got != "refresh-1" {
				t.Errorf("expected the refresh token in the revoke body, got %q", got)
			}
		})

		t.Run("Revoke Failure Does Not Reverse Logout", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, store, _ := newTestManager(t, backend)
			manager.Login(ctx, api.LoginInput{Email: "a@b.c", Password: "hunter2"})

			backend.server.Close() // backend gone: revoke must fail

			manager.Logout(ctx)

			if manager.State() != StateUnauthenticated {
				t.Errorf("expected unauthenticated even with revoke failure, got %v", manager.State())
			}
			if store.Get() != nil {
				t.Error("expected store cleared even with revoke failure")
			}
		})
	})

	t.Run("Background Refresh", func(t *testing.T) {
		t.Run("Success Rotates Access Only", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, store, client := newTestManager(t, backend)
			manager.Login(ctx, api.LoginInput{Email: "a@b.c", Password: "hunter2"})

			manager.refreshOnce(ctx)

			if tokens := manager.Tokens(); tokens == nil || tokens.Access != "access-2" || tokens.Refresh != "refresh-1" {
				t.Errorf("expected rotated access with the same refresh, got %+v", tokens)
			}
			if stored := store.Get(); stored == nil || stored.Access != "access-2" {
				t.Errorf("expected rotation persisted, got %+v", stored)
			}
			if client.AuthToken() != "access-2" {
				t.Errorf("expected header rotated, got %q", client.AuthToken())
			}
		})

		t.Run("Rejected Refresh Forces Logout", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, store, _ := newTestManager(t, backend)
			manager.Login(ctx, api.LoginInput{Email: "a@b.c", Password: "hunter2"})

			atomic.StoreInt32(&backend.refreshCode, http.StatusUnauthorized)
			manager.refreshOnce(ctx)

			if manager.State() != StateUnauthenticated {
				t.Errorf("expected logout on rejected refresh, got %v", manager.State())
			}
			if store.Get() != nil {
				t.Error("expected store cleared")
			}
		})

		t.Run("Transient Failure Keeps Session", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, _, _ := newTestManager(t, backend)
			manager.Login(ctx, api.LoginInput{Email: "a@b.c", Password: "hunter2"})

			atomic.StoreInt32(&backend.refreshCode, http.StatusBadGateway)
			manager.refreshOnce(ctx)

			if manager.State() != StateAuthenticated {
				t.Errorf("expected session intact on a transient failure, got %v", manager.State())
			}
			if tokens := manager.Tokens(); tokens == nil || tokens.Access != "access-1" {
				t.Errorf("expected tokens unchanged, got %+v", tokens)
			}
		})

		t.Run("No-Op When Unauthenticated", func(t *testing.T) {
			backend := newSessionBackend(t)
			manager, _, _ := newTestManager(t, backend)

			manager.refreshOnce(ctx)

			if got := atomic.LoadInt32(&backend.refreshCalls); got != 0 {
				t.Errorf("expected no refresh call without a session, got %d", got)
			}
		})
	})

	t.Run("UpdateProfile No-Op When Unauthenticated", func(t *testing.T) {
		backend := newSessionBackend(t)
		manager, _, _ := newTestManager(t, backend)

		username := "reader"
		user, err := manager.UpdateProfile(ctx, api.UserUpdate{Username: &username})
		if user != nil || err != nil {
			t.Errorf("expected nil, nil when unauthenticated, got %v %v", user, err)
		}
	})
}
