package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// OAuthProviderConfig holds OAuth client credentials for a single provider.
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// oauthClient holds the configured providers and fetches profile data from
// their user-info APIs.
type oauthClient struct {
	cfgs      map[string]*oauth2.Config
	http      *http.Client
	githubAPI string
	googleAPI string
}

// newOAuthClient builds configs for providers that have both a client ID and
// secret; others stay disabled.
func newOAuthClient(providers map[string]OAuthProviderConfig) *oauthClient {
	cfgs := make(map[string]*oauth2.Config)
	for name, p := range providers {
		if p.ClientID == "" || p.ClientSecret == "" {
			continue
		}
		var endpoint oauth2.Endpoint
		var scopes []string
		switch name {
		case "github":
			endpoint = github.Endpoint
			scopes = []string{"user:email"}
		case "google":
			endpoint = google.Endpoint
			scopes = []string{"openid", "email", "profile"}
		default:
			continue
		}
		cfgs[name] = &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		}
	}
	return &oauthClient{
		cfgs:      cfgs,
		http:      &http.Client{Timeout: 10 * time.Second},
		githubAPI: "https://api.github.com",
		googleAPI: "https://www.googleapis.com",
	}
}

func (o *oauthClient) config(provider string) (*oauth2.Config, bool) {
	cfg, ok := o.cfgs[provider]
	return cfg, ok
}

// userInfo returns the verified email and display name for the token's owner.
func (o *oauthClient) userInfo(ctx context.Context, provider, accessToken string) (email, name string, err error) {
	switch provider {
	case "github":
		return o.githubUser(ctx, accessToken)
	case "google":
		return o.googleUser(ctx, accessToken)
	}
	return "", "", fmt.Errorf("unsupported provider: %s", provider)
}

func (o *oauthClient) githubUser(ctx context.Context, accessToken string) (string, string, error) {
	var info struct {
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := o.getJSON(ctx, o.githubAPI+"/user", accessToken, &info); err != nil {
		return "", "", err
	}

	// GitHub omits private emails from /user; ask /user/emails for the primary one.
	if info.Email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := o.getJSON(ctx, o.githubAPI+"/user/emails", accessToken, &emails); err != nil {
			return "", "", err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				info.Email = e.Email
				break
			}
		}
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	return info.Email, name, nil
}

func (o *oauthClient) googleUser(ctx context.Context, accessToken string) (string, string, error) {
	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := o.getJSON(ctx, o.googleAPI+"/oauth2/v2/userinfo", accessToken, &info); err != nil {
		return "", "", err
	}
	if !info.VerifiedEmail {
		return "", info.Name, nil
	}
	return info.Email, info.Name, nil
}

func (o *oauthClient) getJSON(ctx context.Context, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "skillswap/1.0")

	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("api get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("api returned %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	return nil
}
