/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubUserEndpoint = "https://api.github.com/user"

// Identity is what the identity provider knows about a logged-in person.
type Identity struct {
	Login string
	Name  string
}

// IdentityProvider abstracts the OAuth dance so handlers and tests don't talk
// to GitHub directly.
type IdentityProvider interface {
	// LoginURL is where the browser is sent to authenticate.
	LoginURL() string
	// Exchange turns the authorization code from the OAuth callback into the
	// identity of the person who authenticated.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// GithubProvider implements IdentityProvider against GitHub OAuth.
type GithubProvider struct {
	config *oauth2.Config
}

func NewGithubProvider(clientID, clientSecret, redirectURI string) *GithubProvider {
	return &GithubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     github.Endpoint,
		},
	}
}

func (p *GithubProvider) LoginURL() string {
	return p.config.AuthCodeURL("")
}

func (p *GithubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code, %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubUserEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building user info request, %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("%s %s", token.TokenType, token.AccessToken))
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching user info, %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching user info, unexpected status %d", resp.StatusCode)
	}
	info := struct {
		Login string `json:"login"`
		Name  string `json:"name"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding user info, %w", err)
	}
	return &Identity{Login: strings.ToLower(info.Login), Name: info.Name}, nil
}

// LocalProvider stands in when no GitHub application is configured. Everyone
// who logs in becomes the same deterministic identity, which is only useful
// for development and tests.
type LocalProvider struct{}

func (LocalProvider) LoginURL() string {
	return "/api/auth/callback"
}

func (LocalProvider) Exchange(_ context.Context, _ string) (*Identity, error) {
	return &Identity{Login: "test-user", Name: "Test User"}, nil
}
