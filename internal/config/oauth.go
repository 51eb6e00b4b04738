package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type OAuthConfig struct {
	// GoogleLoginConfig is nil when Google sign-in is not configured.
	GoogleLoginConfig *oauth2.Config
}

func (o OAuthConfig) GoogleEnabled() bool { return o.GoogleLoginConfig != nil }

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s source) loadOAuth() OAuthConfig {
	clientID := s.get("GOOGLE_CLIENT_ID", "")
	clientSecret := s.get("GOOGLE_CLIENT_SECRET", "")
	if clientID == "" || clientSecret == "" {
		return OAuthConfig{}
	}

	return OAuthConfig{GoogleLoginConfig: &oauth2.Config{
		RedirectURL:  s.get("GOOGLE_REDIRECT_URL", "http://localhost:5000/api/auth/google/callback"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}}
}

// GetGoogleUserInfo fetches the profile of the user who granted tok.
func GetGoogleUserInfo(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*GoogleUser, error) {
	return fetchGoogleUser(ctx, cfg.Client(ctx, tok), googleUserInfoURL)
}

func fetchGoogleUser(ctx context.Context, client *http.Client, url string) (*GoogleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: status %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if user.Email == "" {
		return nil, fmt.Errorf("google profile has no email")
	}
	return &user, nil
}
