// Package auth loads and stores the user's OAuth token for the Google backends.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"todo/internal/config"
)

// OAuth scopes requested at login. One token serves both Google backends.
const (
	TasksScope     = "https://www.googleapis.com/auth/tasks"
	DatastoreScope = "https://www.googleapis.com/auth/datastore"
)

// Scopes is the full scope list requested by `todo login`.
var Scopes = []string{TasksScope, DatastoreScope}

var (
	// ErrNoOAuthClient matches errors from a missing or unusable oauth_client.json.
	ErrNoOAuthClient = errors.New("oauth client not configured")
	// ErrNotLoggedIn matches errors from a missing or unusable token.json.
	ErrNotLoggedIn = errors.New("not logged in")
)

// OAuthConfig reads oauth_client.json from the config directory.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read oauth_client.json: %w", ErrNoOAuthClient, err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid oauth_client.json: %w", ErrNoOAuthClient, err)
	}
	return oauthConfig, nil
}

// LoadToken reads token.json from the config directory.
func LoadToken(cfg *config.Config) (*oauth2.Token, error) {
	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read token.json: %w", ErrNotLoggedIn, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token.json: %w", ErrNotLoggedIn, err)
	}
	return &token, nil
}

// SaveToken saves an OAuth token to a file with mode 0600.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// HTTPClient returns an HTTP client that authenticates with the stored token
// and refreshes it as needed. Requires oauth_client.json and token.json.
func HTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}

	// Create token source that auto-refreshes
	tokenSource := oauthConfig.TokenSource(ctx, token)
	return oauth2.NewClient(ctx, tokenSource), nil
}

// TokenValid checks if the stored token is usable.
// Valid means: parseable, contains a non-empty refresh token, and can be
// refreshed against the OAuth client.
func TokenValid(ctx context.Context, cfg *config.Config) bool {
	token, err := LoadToken(cfg)
	if err != nil || token.RefreshToken == "" {
		return false
	}
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Try to get a valid token - this will refresh if needed
	_, err = oauthConfig.TokenSource(ctx, token).Token()
	return err == nil
}
