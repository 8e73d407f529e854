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

package apis

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	RoleAdmin      = "admin"
	RoleCompetitor = "competitor"
)

// User is an individual account. The login is lowercase and doubles as both
// partition and row key. A user belongs to at most one team; the user's Team
// field is the source of truth for membership, the team's roster is a
// denormalized copy.
type User struct {
	Login   string  `json:"login"`
	APIKey  string  `json:"api_key"`
	Team    *string `json:"team,omitempty"`
	Role    string  `json:"role"`
	Blocked bool    `json:"blocked"`
}

// NewUser mints a competitor account with a fresh API key.
func NewUser(login string) *User {
	return &User{
		Login:  login,
		APIKey: uuid.NewString(),
		Role:   RoleCompetitor,
	}
}

func (u *User) PartitionKey() string { return u.Login }
func (u *User) RowKey() string       { return u.Login }

// RotateAPIKey invalidates every previously issued auth token for this user.
// The auth token is a credential, not a session, so rotation is the only
// revocation mechanism.
func (u *User) RotateAPIKey() {
	u.APIKey = uuid.NewString()
}

type authTokenClaims struct {
	Login  string `json:"login"`
	APIKey string `json:"api_key"`
}

// AuthToken returns the bearer token for this user: the base64 of a JSON
// document carrying the login and api key.
func (u *User) AuthToken() string {
	content, _ := json.Marshal(authTokenClaims{Login: u.Login, APIKey: u.APIKey})
	return base64.StdEncoding.EncodeToString(content)
}

// UserFromAuthToken decodes a bearer token into an unverified user claim. The
// caller must compare the api key against the stored user before trusting it.
func UserFromAuthToken(token string) (*User, error) {
	content, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decoding auth token, %w", err)
	}
	claims := authTokenClaims{}
	if err := json.Unmarshal(content, &claims); err != nil {
		return nil, fmt.Errorf("unmarshaling auth token, %w", err)
	}
	return &User{Login: claims.Login, APIKey: claims.APIKey}, nil
}

// UserView is the API projection of a user. The api key is only ever exposed
// through the dedicated auth endpoints, re-encoded as a bearer token.
type UserView struct {
	Login   string  `json:"login"`
	Team    *string `json:"team,omitempty"`
	Role    string  `json:"role"`
	Blocked bool    `json:"blocked"`
}

func (u *User) View() UserView {
	return UserView{Login: u.Login, Team: u.Team, Role: u.Role, Blocked: u.Blocked}
}
