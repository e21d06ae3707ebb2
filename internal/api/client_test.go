package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brettbeeson/notsolong/internal/shared"
)

// memStore is an in-memory TokenStore for exercising the refresh path.
type memStore struct {
	mu     sync.Mutex
	tokens *Tokens
}

func (s *memStore) Get() *Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return nil
	}
	copied := *s.tokens
	return &copied
}

func (s *memStore) Set(tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = &tokens
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	return nil
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("New", func(t *testing.T) {
		t.Run("With Empty BaseURL", func(t *testing.T) {
			client := NewClient("", nil, nil, nil)
			if client.baseURL != "http://localhost:8000/api" {
				t.Errorf("expected default baseURL, got %s", client.baseURL)
			}
			if client.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})

		t.Run("With Nil Store", func(t *testing.T) {
			client := NewClient("http://example.com", nil, nil, nil)
			if client.store == nil {
				t.Error("expected fallback store")
			}
			if got := client.store.Get(); got != nil {
				t.Errorf("expected nil tokens from noop store, got %+v", got)
			}
		})
	})

	t.Run("Authorization Header", func(t *testing.T) {
		t.Run("Sent When Token Set", func(t *testing.T) {
			var gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				json.NewEncoder(w).Encode(User{Email: "a@b.c"})
			}))
			defer server.Close()

			client := NewClient(server.URL, nil, nil, nil)
			client.SetAuthToken("tok-1")

			if _, err := client.CurrentUser(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotAuth != "Bearer tok-1" {
				t.Errorf("expected Bearer tok-1, got %q", gotAuth)
			}
		})

		t.Run("Absent When Token Cleared", func(t *testing.T) {
			var gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				json.NewEncoder(w).Encode(User{Email: "a@b.c"})
			}))
			defer server.Close()

			client := NewClient(server.URL, nil, nil, nil)
			client.SetAuthToken("tok-1")
			client.SetAuthToken("")

			if _, err := client.CurrentUser(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotAuth != "" {
				t.Errorf("expected no Authorization header, got %q", gotAuth)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Retries Once After Refresh", func(t *testing.T) {
			var refreshCalls, userCalls int32
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&refreshCalls, 1)
				json.NewEncoder(w).Encode(map[string]string{"access": "new-access"})
			})
			mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&userCalls, 1)
				if r.Header.Get("Authorization") != "Bearer new-access" {
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
					return
				}
				json.NewEncoder(w).Encode(User{Email: "a@b.c"})
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			store := &memStore{}
			store.Set(Tokens{Access: "stale", Refresh: "refresh-1"})
			client := NewClient(server.URL, nil, store, nil)
			client.SetAuthToken("stale")

			user, err := client.CurrentUser(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Email != "a@b.c" {
				t.Errorf("expected profile after retry, got %+v", user)
			}
			if got := atomic.LoadInt32(&refreshCalls); got != 1 {
				t.Errorf("expected 1 refresh call, got %d", got)
			}
			if got := atomic.LoadInt32(&userCalls); got != 2 {
				t.Errorf("expected original + retry, got %d calls", got)
			}
			if client.AuthToken() != "new-access" {
				t.Errorf("expected header updated to new-access, got %q", client.AuthToken())
			}
			if stored := store.Get(); stored == nil || stored.Access != "new-access" || stored.Refresh != "refresh-1" {
				t.Errorf("expected rotated access persisted with same refresh, got %+v", stored)
			}
		})

		t.Run("Concurrent 401s Share One Refresh", func(t *testing.T) {
			var refreshCalls int32
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&refreshCalls, 1)
				time.Sleep(50 * time.Millisecond)
				json.NewEncoder(w).Encode(map[string]string{"access": "new-access"})
			})
			mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer new-access" {
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
					return
				}
				json.NewEncoder(w).Encode(User{Email: "a@b.c"})
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			store := &memStore{}
			store.Set(Tokens{Access: "stale", Refresh: "refresh-1"})
			client := NewClient(server.URL, nil, store, nil)
			client.SetAuthToken("stale")

			const workers = 5
			errs := make(chan error, workers)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := client.CurrentUser(ctx)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
			if got := atomic.LoadInt32(&refreshCalls); got != 1 {
				t.Errorf("expected exactly 1 refresh for %d concurrent 401s, got %d", workers, got)
			}
		})

		t.Run("Failure Propagates Original 401 And Clears Session", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "refresh token revoked"})
			})
			mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			store := &memStore{}
			store.Set(Tokens{Access: "stale", Refresh: "refresh-1"})
			client := NewClient(server.URL, nil, store, nil)
			client.SetAuthToken("stale")

			_, err := client.CurrentUser(ctx)
			if err == nil {
				t.Fatal("expected an error")
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if apiErr.Status != http.StatusUnauthorized || apiErr.Detail != "token expired" {
				t.Errorf("expected the ORIGINAL 401, got %+v", apiErr)
			}
			if client.AuthToken() != "" {
				t.Errorf("expected header cleared, got %q", client.AuthToken())
			}
			if store.Get() != nil {
				t.Error("expected store cleared after failed refresh")
			}
		})

		t.Run("Refresh Endpoint Is Never Intercepted", func(t *testing.T) {
			var refreshCalls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&refreshCalls, 1)
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "bad refresh"})
			}))
			defer server.Close()

			store := &memStore{}
			store.Set(Tokens{Access: "stale", Refresh: "refresh-1"})
			client := NewClient(server.URL, nil, store, nil)

			if _, err := client.RefreshToken(ctx, "refresh-1"); err == nil {
				t.Fatal("expected an error")
			}
			if got := atomic.LoadInt32(&refreshCalls); got != 1 {
				t.Errorf("expected a single, unintercepted refresh request, got %d", got)
			}
		})

		t.Run("No Stored Refresh Token", func(t *testing.T) {
			var refreshCalls int32
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&refreshCalls, 1)
			})
			mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			client := NewClient(server.URL, nil, &memStore{}, nil)
			client.SetAuthToken("stale")

			_, err := client.CurrentUser(ctx)
			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
				t.Fatalf("expected the original 401, got %v", err)
			}
			if got := atomic.LoadInt32(&refreshCalls); got != 0 {
				t.Errorf("expected no refresh attempt without a stored token, got %d", got)
			}
		})
	})

	t.Run("Random Title 404 Mapping", func(t *testing.T) {
		notFound := func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "no titles"})
		}

		t.Run("Empty Exclude Means Empty Category", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(notFound))
			defer server.Close()

			client := NewClient(server.URL, nil, nil, nil)
			bundle, err := client.RandomTitle(ctx, CategoryBook, nil)
			if !errors.Is(err, shared.ErrNoTitles) {
				t.Errorf("expected ErrNoTitles, got %v", err)
			}
			if bundle != nil {
				t.Errorf("expected nil bundle, got %+v", bundle)
			}
		})

		t.Run("Non-Empty Exclude Means Exhausted", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(notFound))
			defer server.Close()

			client := NewClient(server.URL, nil, nil, nil)
			bundle, err := client.RandomTitle(ctx, CategoryBook, []int{1, 2})
			if err != nil {
				t.Errorf("expected nil error for the exhausted sentinel, got %v", err)
			}
			if bundle != nil {
				t.Errorf("expected nil bundle, got %+v", bundle)
			}
		})
	})

	t.Run("Title Count", func(t *testing.T) {
		var gotCategory string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/titles/count/" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			gotCategory = r.URL.Query().Get("category")
			json.NewEncoder(w).Encode(map[string]int{"count": 42})
		}))
		defer server.Close()

		client := NewClient(server.URL, nil, nil, nil)

		count, err := client.TitleCount(ctx, CategoryMovie)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 42 {
			t.Errorf("expected count 42, got %d", count)
		}
		if gotCategory != string(CategoryMovie) {
			t.Errorf("expected category filter %q, got %q", CategoryMovie, gotCategory)
		}

		if _, err := client.TitleCount(ctx, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotCategory != "" {
			t.Errorf("expected no category filter for the total, got %q", gotCategory)
		}
	})
}
