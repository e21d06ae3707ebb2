package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// OAuthResult is the outcome of one authorization-code flow: either a
// provider token or the error that ended the flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler receives the provider redirect on a localhost callback,
// verifies the state token and exchanges the authorization code. It
// implements [Handler] so it can be registered with a [Router].
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	once    sync.Once
	served  atomic.Bool
}

// NewOAuthHandler creates a callback handler bound to the given OAuth2
// config. The state token must be random per flow; it is compared against
// the redirect's state parameter to reject forged callbacks.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP processes the provider redirect. Repeat hits after the first
// are rejected so a reloaded browser tab cannot replay the code exchange.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.served.Swap(true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	code, err := h.parseCallback(r)
	if err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(context.Background(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, signInCompletePage)
}

// parseCallback validates the redirect query and returns the authorization code.
func (h *OAuthHandler) parseCallback(r *http.Request) (string, error) {
	query := r.URL.Query()

	if query.Get("state") != h.state {
		return "", fmt.Errorf("invalid state parameter")
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("authorization failed: %s - %s",
			query.Get("error"), query.Get("error_description"))
	}

	return code, nil
}

// Send delivers the flow result. Only the first call wins; the channel is
// closed afterwards so late readers see the zero result.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel that receives exactly one [OAuthResult].
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const signInCompletePage = `
<!DOCTYPE html>
<html>
<head>
    <title>Not So Long</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #1a1a2e; color: #eaeaea; }
        .card { text-align: center; background: #16213e; padding: 2.5rem 3rem;
                border-radius: 10px; }
        h1 { color: #e94560; margin: 0 0 0.75rem 0; }
        p { color: #a0a0b0; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Signed in</h1>
        <p>Head back to the terminal to keep reading.</p>
    </div>
</body>
</html>
`
