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

// Package auth resolves request credentials into stored users and manages the
// auth cookie. Tokens are bearer credentials: possession of a token whose api
// key matches the stored user is the whole check, and rotating the api key is
// the only revocation mechanism.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/logging"
	"github.com/mailraid/mailraid/pkg/storage"
)

const (
	// CookieName carries the auth token for browser clients. API clients use
	// the Authorization header instead.
	CookieName = "Auth"
	// cookieMaxAge is one day, matching the intended session length.
	cookieMaxAge = 86400
)

// Authenticate resolves the request's credential into a stored user. Every
// failure mode (no token, malformed token, unknown login, blocked user, stale
// api key) resolves to a nil user rather than an error: an invalid credential
// and no credential look identical to callers.
func Authenticate(ctx context.Context, store storage.Store, req *http.Request) (*apis.User, error) {
	token := TokenFromRequest(req)
	if token == "" {
		return nil, nil
	}
	claim, err := apis.UserFromAuthToken(token)
	if err != nil {
		logging.FromContext(ctx).Warnf("ignoring unparseable auth token, %s", err)
		return nil, nil
	}
	user, err := store.GetUser(ctx, claim.Login)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Blocked || user.APIKey != claim.APIKey {
		return nil, nil
	}
	return user, nil
}

// TokenFromRequest extracts the auth token from the Authorization header or,
// failing that, the auth cookie.
func TokenFromRequest(req *http.Request) string {
	if header := req.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := req.Cookie(CookieName); err == nil {
		if token, err := url.QueryUnescape(cookie.Value); err == nil {
			return token
		}
	}
	return ""
}

// SetCookie attaches the auth token to the response for browser clients.
func SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/api",
		MaxAge:   cookieMaxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the auth cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/api",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
