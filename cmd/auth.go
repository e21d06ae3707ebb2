package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/server"
	"github.com/brettbeeson/notsolong/internal/shared"
)

// AuthLogin signs in with email and password and persists the session tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")

	if email == "" || password == "" {
		return fmt.Errorf("%w: --email and --password are required", shared.ErrMissingArgument)
	}

	r.logger.Infof("signing in as %v", email)

	if err := r.session.Login(ctx, api.LoginInput{Email: email, Password: password}); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, api.ErrorMessage(err, "sign-in failed"))
	}

	r.writePlainln("✓ Signed in")
	if user := r.session.User(); user != nil {
		r.writePlain("Email: %s\n", user.Email)
		if user.Username != "" {
			r.writePlain("Username: %s\n", user.Username)
		}
	}
	return nil
}

// AuthRegister creates a new account and signs in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")
	username := cmd.String("username")

	if email == "" || password == "" {
		return fmt.Errorf("%w: --email and --password are required", shared.ErrMissingArgument)
	}

	input := api.RegisterInput{
		Email:     email,
		Password1: password,
		Password2: password,
		Username:  username,
	}
	if err := r.session.Register(ctx, input); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, api.ErrorMessage(err, "registration failed"))
	}

	r.writePlainln("✓ Account created and signed in")
	return nil
}

// AuthGoogle signs in via Google OAuth.
//
// Starts a local HTTP server, opens the browser for consent, exchanges the
// code for a Google access token, and trades that token for a backend
// session.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Google
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Google client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	token, err := r.doOAuth(ctx, oauthConfig)
	if err != nil {
		return err
	}

	if err := r.session.LoginWithGoogle(ctx, token.AccessToken); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, api.ErrorMessage(err, "Google sign-in failed"))
	}

	r.writePlainln("✓ Signed in with Google")
	return nil
}

// AuthLogout revokes the refresh token and clears the local session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.session.Hydrate(ctx)
	if !r.session.Authenticated() {
		r.writePlainln("Not signed in.")
		return nil
	}

	r.session.Logout(ctx)
	r.writePlainln("✓ Signed out")
	return nil
}

// AuthWhoami prints the signed-in user's profile.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	user := r.session.User()
	if useJSON {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Account")
	r.writePlain("Email: %s\n", user.Email)
	if user.Username != "" {
		r.writePlain("Username: %s\n", user.Username)
	}
	return nil
}

// AuthUpdate changes the signed-in user's profile fields.
func (r *Runner) AuthUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	var update api.UserUpdate
	if cmd.IsSet("username") {
		username := cmd.String("username")
		update.Username = &username
	}
	if cmd.IsSet("email") {
		email := cmd.String("email")
		update.Email = &email
	}
	if update.Username == nil && update.Email == nil {
		return fmt.Errorf("%w: nothing to update, pass --username or --email", shared.ErrMissingArgument)
	}

	user, err := r.session.UpdateProfile(ctx, update)
	if err != nil {
		return fmt.Errorf("failed to update profile: %s", api.ErrorMessage(err, "update failed"))
	}

	r.writePlainln("✓ Profile updated")
	if user != nil && user.Username != "" {
		r.writePlain("Username: %s\n", user.Username)
	}
	return nil
}

// AuthReset requests a password reset email, or completes one when --uid and
// --token are provided.
func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	uid := cmd.String("uid")
	token := cmd.String("token")

	if uid != "" || token != "" {
		password := cmd.String("password")
		if uid == "" || token == "" || password == "" {
			return fmt.Errorf("%w: --uid, --token and --password are all required to complete a reset", shared.ErrMissingArgument)
		}
		if err := r.session.CompletePasswordReset(ctx, uid, token, password); err != nil {
			return fmt.Errorf("failed to reset password: %s", api.ErrorMessage(err, "reset failed"))
		}
		r.writePlainln("✓ Password changed. Sign in with `nsl auth login`.")
		return nil
	}

	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email is required", shared.ErrMissingArgument)
	}
	if err := r.session.RequestPasswordReset(ctx, email); err != nil {
		return fmt.Errorf("failed to request reset: %s", api.ErrorMessage(err, "request failed"))
	}

	r.writePlainln("✓ Reset email sent to %s (check spam too)", email)
	return nil
}

// doOAuth runs the local-callback OAuth flow and returns the provider token.
func (r *Runner) doOAuth(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Google sign-in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
