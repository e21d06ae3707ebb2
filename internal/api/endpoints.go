package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/brettbeeson/notsolong/internal/shared"
)

// RandomTitle fetches a random title bundle, optionally filtered by category
// and excluding the given ids.
//
// A 404 carries meaning here: with no exclusions it means the category has
// zero titles ([shared.ErrNoTitles]); with exclusions it means only recently
// seen titles remain, reported as a nil bundle with a nil error so callers
// can mark the feed exhausted without treating it as a failure.
func (c *Client) RandomTitle(ctx context.Context, category Category, exclude []int) (*TitleBundle, error) {
	query := url.Values{}
	if category != "" {
		query.Set("category", string(category))
	}
	if len(exclude) > 0 {
		ids := make([]string, len(exclude))
		for i, id := range exclude {
			ids[i] = strconv.Itoa(id)
		}
		query.Set("exclude", strings.Join(ids, ","))
	}

	var bundle TitleBundle
	if err := c.do(ctx, http.MethodGet, "/titles/random/", query, nil, &bundle); err != nil {
		if IsNotFound(err) {
			if len(exclude) == 0 {
				return nil, shared.ErrNoTitles
			}
			return nil, nil
		}
		return nil, err
	}

	bundle.Normalize()
	return &bundle, nil
}

// TitleSummary fetches the bundle for a specific title.
//
// A 404 means the title was deleted since it was last seen and is surfaced
// as [shared.ErrTitleNotFound].
func (c *Client) TitleSummary(ctx context.Context, id int) (*TitleBundle, error) {
	var bundle TitleBundle
	path := fmt.Sprintf("/titles/%d/summary/", id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &bundle); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: id %d", shared.ErrTitleNotFound, id)
		}
		return nil, err
	}

	bundle.Normalize()
	return &bundle, nil
}

// TitleCount reports how many titles exist, optionally filtered by category.
func (c *Client) TitleCount(ctx context.Context, category Category) (int, error) {
	query := url.Values{}
	if category != "" {
		query.Set("category", string(category))
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/titles/count/", query, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// CreateTitle submits a new title.
func (c *Client) CreateTitle(ctx context.Context, input TitleInput) (*Title, error) {
	var title Title
	if err := c.do(ctx, http.MethodPost, "/titles/", nil, input, &title); err != nil {
		return nil, err
	}
	return &title, nil
}

// CreateRecap submits a new recap for a title.
func (c *Client) CreateRecap(ctx context.Context, titleID int, text string) (*Recap, error) {
	body := map[string]any{"title": titleID, "text": text}
	var recap Recap
	if err := c.do(ctx, http.MethodPost, "/recaps/", nil, body, &recap); err != nil {
		return nil, err
	}
	return &recap, nil
}

// VoteRecap casts a vote on a recap. Valid values are -1, 0 (retract), and 1.
func (c *Client) VoteRecap(ctx context.Context, id, value int) (*Recap, error) {
	if value < -1 || value > 1 {
		return nil, fmt.Errorf("%w: vote value %d", shared.ErrInvalidArgument, value)
	}

	body := map[string]int{"value": value}
	var recap Recap
	path := fmt.Sprintf("/recaps/%d/vote/", id)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &recap); err != nil {
		return nil, err
	}
	return &recap, nil
}

// UpdateRecap replaces the text of an existing recap.
func (c *Client) UpdateRecap(ctx context.Context, id int, text string) (*Recap, error) {
	body := map[string]string{"text": text}
	var recap Recap
	path := fmt.Sprintf("/recaps/%d/", id)
	if err := c.do(ctx, http.MethodPatch, path, nil, body, &recap); err != nil {
		return nil, err
	}
	return &recap, nil
}

// DeleteRecap removes a recap.
func (c *Client) DeleteRecap(ctx context.Context, id int) error {
	path := fmt.Sprintf("/recaps/%d/", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, input LoginInput) (*AuthSession, error) {
	var session AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/login/", nil, input, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Register creates an account and returns the resulting session.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*AuthSession, error) {
	var session AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/registration/", nil, input, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// LoginWithGoogle exchanges a Google OAuth access token for a session.
func (c *Client) LoginWithGoogle(ctx context.Context, accessToken string) (*AuthSession, error) {
	body := map[string]string{"access_token": accessToken}
	var session AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/google/", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Logout asks the backend to revoke the refresh token.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	body := map[string]string{}
	if refresh != "" {
		body["refresh"] = refresh
	}
	return c.do(ctx, http.MethodPost, "/auth/logout/", nil, body, nil)
}

// RefreshToken exchanges a refresh token for a new access token.
//
// This is the one endpoint the client's 401 interception never touches.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	body := map[string]string{"refresh": refresh}
	var out struct {
		Access string `json:"access"`
	}
	if err := c.do(ctx, http.MethodPost, refreshPath, nil, body, &out); err != nil {
		return "", err
	}
	return out.Access, nil
}

// CurrentUser fetches the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/user/", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser patches profile fields and returns the server's copy, which is
// authoritative.
func (c *Client) UpdateUser(ctx context.Context, update UserUpdate) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPatch, "/auth/user/", nil, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RequestPasswordReset asks the backend to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/password/reset/", nil, body, nil)
}

// ConfirmPasswordReset completes a password reset started by email.
func (c *Client) ConfirmPasswordReset(ctx context.Context, uid, token, newPassword string) error {
	body := map[string]string{
		"uid":           uid,
		"token":         token,
		"new_password1": newPassword,
		"new_password2": newPassword,
	}
	return c.do(ctx, http.MethodPost, "/auth/password/reset/confirm/", nil, body, nil)
}
