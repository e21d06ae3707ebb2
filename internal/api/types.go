package api

import (
	"encoding/json"
	"sort"
	"time"
)

// Category identifies the kind of work a title refers to.
type Category string

const (
	CategoryBook    Category = "book"
	CategoryMovie   Category = "movie"
	CategoryPodcast Category = "podcast"
	CategorySpeech  Category = "speech"
	CategoryOther   Category = "other"
)

// Categories lists all known categories in display order.
var Categories = []Category{CategoryBook, CategoryMovie, CategoryPodcast, CategorySpeech, CategoryOther}

// ValidCategory reports whether s names a known category. The empty string
// means "all categories" and is valid.
func ValidCategory(s string) bool {
	if s == "" {
		return true
	}
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Tokens is the access/refresh token pair issued by the backend.
//
// The access token is short-lived and sent on every authenticated request;
// the refresh token is long-lived and exchanged for new access tokens.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// User represents the authenticated user's profile.
type User struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Title represents a work that recaps are written about.
type Title struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recap is a community-submitted summary of a title.
type Recap struct {
	ID              int       `json:"id"`
	Title           *Title    `json:"title,omitempty"`
	User            *User     `json:"user,omitempty"`
	Text            string    `json:"text"`
	Score           int       `json:"score"`
	Upvotes         int       `json:"upvotes"`
	Downvotes       int       `json:"downvotes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	CurrentUserVote *int      `json:"current_user_vote,omitempty"`
}

// TitleBundle is the payload returned by the title summary and random-title
// endpoints: a title, its highest-scored recap, and the rest.
type TitleBundle struct {
	Title       Title   `json:"title"`
	TopRecap    *Recap  `json:"top_recap"`
	OtherRecaps []Recap `json:"other_recaps"`
}

// Recaps returns the bundle's recaps in display order, top recap first.
func (b *TitleBundle) Recaps() []Recap {
	if b == nil {
		return nil
	}
	recaps := make([]Recap, 0, len(b.OtherRecaps)+1)
	if b.TopRecap != nil {
		recaps = append(recaps, *b.TopRecap)
	}
	recaps = append(recaps, b.OtherRecaps...)
	return recaps
}

// Normalize sorts OtherRecaps by score, then upvotes, then recency.
func (b *TitleBundle) Normalize() {
	sort.SliceStable(b.OtherRecaps, func(i, j int) bool {
		a, c := b.OtherRecaps[i], b.OtherRecaps[j]
		if a.Score != c.Score {
			return a.Score > c.Score
		}
		if a.Upvotes != c.Upvotes {
			return a.Upvotes > c.Upvotes
		}
		return a.CreatedAt.After(c.CreatedAt)
	})
}

// AuthSession is the atomic result of a successful login, registration, or
// OAuth exchange. It is always applied as a unit, never partially.
type AuthSession struct {
	User   User
	Tokens Tokens
}

// UnmarshalJSON accepts both session payload shapes the backend produces:
// login returns access/refresh at the top level, registration nests them
// under a "tokens" object.
func (s *AuthSession) UnmarshalJSON(data []byte) error {
	var payload struct {
		Access  string  `json:"access"`
		Refresh string  `json:"refresh"`
		Tokens  *Tokens `json:"tokens"`
		User    User    `json:"user"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	s.User = payload.User
	if payload.Tokens != nil {
		s.Tokens = *payload.Tokens
	} else {
		s.Tokens = Tokens{Access: payload.Access, Refresh: payload.Refresh}
	}
	return nil
}

// TitleInput is the payload for creating a new title.
type TitleInput struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Author   string   `json:"author,omitempty"`
}

// LoginInput is the payload for password login. TurnstileToken carries the
// optional bot-challenge response.
type LoginInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	TurnstileToken string `json:"turnstile_token,omitempty"`
}

// RegisterInput is the payload for account registration.
type RegisterInput struct {
	Email          string `json:"email"`
	Password1      string `json:"password1"`
	Password2      string `json:"password2"`
	Username       string `json:"username,omitempty"`
	TurnstileToken string `json:"turnstile_token,omitempty"`
}

// UserUpdate holds the editable profile fields. Nil fields are omitted from
// the PATCH body so the server only touches what was provided.
type UserUpdate struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
}
