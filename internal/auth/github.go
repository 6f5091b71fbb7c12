package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"AuthPortalwebserver/internal/domain"
)

const (
	OAuthStateCookieName = "authportal_oauth_state"

	githubAPIBase = "https://api.github.com"
)

// GitHubOAuth runs the authorization code flow against GitHub and resolves
// the signed-in account to an ExternalIdentity.
type GitHubOAuth struct {
	Config  *oauth2.Config
	APIBase string
}

func NewGitHubOAuth(clientID, clientSecret, redirectURL string) *GitHubOAuth {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &GitHubOAuth{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		APIBase: githubAPIBase,
	}
}

func NewOAuthState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (g *GitHubOAuth) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GitHubOAuth) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	if g == nil || g.Config == nil {
		return nil, fmt.Errorf("github: %w", ErrProviderNotConfigured)
	}
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("missing authorization code")
	}

	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github exchange: %w", err)
	}
	client := g.Config.Client(ctx, tok)

	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := g.getJSON(ctx, client, "/user", &profile); err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, errors.New("github: missing user id")
	}

	ident := &ExternalIdentity{
		Provider: domain.ProviderGitHub,
		Subject:  strconv.FormatInt(profile.ID, 10),
		Name:     strings.TrimSpace(profile.Name),
	}
	if ident.Name == "" {
		ident.Name = profile.Login
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			ident.Email = normalizeEmail(e.Email)
			ident.EmailVerified = true
			break
		}
	}
	if ident.Email == "" {
		ident.Email = normalizeEmail(profile.Email)
	}
	return ident, nil
}

func (g *GitHubOAuth) getJSON(ctx context.Context, client *http.Client, path string, dst any) error {
	base := g.APIBase
	if base == "" {
		base = githubAPIBase
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst); err != nil {
		return fmt.Errorf("github %s: decode: %w", path, err)
	}
	return nil
}
