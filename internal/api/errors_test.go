package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrors(t *testing.T) {
	t.Run("Parse", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			body   string
			want   string
		}{
			{
				name:   "Detail Message",
				status: 401,
				body:   `{"detail": "Invalid credentials."}`,
				want:   "Invalid credentials.",
			},
			{
				name:   "Field Error With Label",
				status: 400,
				body:   `{"display_name": ["This field is required."]}`,
				want:   "Display name: This field is required.",
			},
			{
				name:   "Non Field Errors Without Label",
				status: 400,
				body:   `{"non_field_errors": ["Passwords do not match."]}`,
				want:   "Passwords do not match.",
			},
			{
				name:   "String Field Value",
				status: 400,
				body:   `{"email": "Enter a valid email address."}`,
				want:   "Email: Enter a valid email address.",
			},
			{
				name:   "Unparseable Body",
				status: 502,
				body:   `<html>bad gateway</html>`,
				want:   "request failed with status 502",
			},
			{
				name:   "Empty Body",
				status: 500,
				body:   ``,
				want:   "request failed with status 500",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				apiErr := parseError(tt.status, []byte(tt.body))
				if apiErr.Status != tt.status {
					t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
				}
				if got := apiErr.Error(); got != tt.want {
					t.Errorf("expected %q, got %q", tt.want, got)
				}
			})
		}

		t.Run("Detail Wins Over Fields", func(t *testing.T) {
			apiErr := parseError(400, []byte(`{"detail": "Top-level problem.", "email": ["Bad email."]}`))
			if got := apiErr.Error(); got != "Top-level problem." {
				t.Errorf("expected detail to take precedence, got %q", got)
			}
		})
	})

	t.Run("Status Predicates", func(t *testing.T) {
		notFound := parseError(http.StatusNotFound, nil)
		wrapped := fmt.Errorf("fetching title: %w", notFound)

		if !IsNotFound(wrapped) {
			t.Error("expected IsNotFound through wrapping")
		}
		if IsUnauthorized(wrapped) {
			t.Error("did not expect IsUnauthorized for a 404")
		}
		if IsNotFound(errors.New("plain")) {
			t.Error("did not expect IsNotFound for a non-API error")
		}
		if IsNotFound(nil) {
			t.Error("did not expect IsNotFound for nil")
		}
	})

	t.Run("ErrorMessage", func(t *testing.T) {
		if got := ErrorMessage(nil, "fallback"); got != "fallback" {
			t.Errorf("expected fallback for nil, got %q", got)
		}
		if got := ErrorMessage(parseError(401, []byte(`{"detail": "Expired."}`)), "fallback"); got != "Expired." {
			t.Errorf("expected detail, got %q", got)
		}
		if got := ErrorMessage(errors.New("dial tcp: refused"), "fallback"); got != "dial tcp: refused" {
			t.Errorf("expected the raw error text, got %q", got)
		}
	})
}
