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

package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/auth"
	"github.com/mailraid/mailraid/pkg/fake"
	"github.com/mailraid/mailraid/pkg/test"
)

var (
	ctx   context.Context
	store *fake.Store
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth")
}

var _ = BeforeEach(func() {
	ctx = context.Background()
	store = fake.NewStore()
})

var _ = Describe("Authenticate", func() {
	withBearer := func(token string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	It("should resolve a valid bearer token to the stored user", func() {
		user := test.User()
		Expect(store.UpsertUser(ctx, user)).To(Succeed())

		resolved, err := auth.Authenticate(ctx, store, withBearer(user.AuthToken()))
		Expect(err).To(BeNil())
		Expect(resolved.Login).To(Equal(user.Login))
	})

	It("should resolve a valid auth cookie to the stored user", func() {
		user := test.User()
		Expect(store.UpsertUser(ctx, user)).To(Succeed())

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: url.QueryEscape(user.AuthToken())})
		resolved, err := auth.Authenticate(ctx, store, req)
		Expect(err).To(BeNil())
		Expect(resolved.Login).To(Equal(user.Login))
	})

	It("should treat anonymous requests as no user", func() {
		resolved, err := auth.Authenticate(ctx, store, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
		Expect(err).To(BeNil())
		Expect(resolved).To(BeNil())
	})

	It("should treat a malformed token as no user", func() {
		resolved, err := auth.Authenticate(ctx, store, withBearer("not a token"))
		Expect(err).To(BeNil())
		Expect(resolved).To(BeNil())
	})

	It("should treat an unknown login as no user", func() {
		resolved, err := auth.Authenticate(ctx, store, withBearer(test.User().AuthToken()))
		Expect(err).To(BeNil())
		Expect(resolved).To(BeNil())
	})

	It("should not resolve a blocked user", func() {
		user := test.User(func(u *apis.User) { u.Blocked = true })
		Expect(store.UpsertUser(ctx, user)).To(Succeed())

		resolved, err := auth.Authenticate(ctx, store, withBearer(user.AuthToken()))
		Expect(err).To(BeNil())
		Expect(resolved).To(BeNil())
	})

	It("should not resolve a token carrying a stale api key", func() {
		user := test.User()
		stale := user.AuthToken()
		user.RotateAPIKey()
		Expect(store.UpsertUser(ctx, user)).To(Succeed())

		resolved, err := auth.Authenticate(ctx, store, withBearer(stale))
		Expect(err).To(BeNil())
		Expect(resolved).To(BeNil())
	})

	It("should surface storage errors", func() {
		user := test.User()
		Expect(store.UpsertUser(ctx, user)).To(Succeed())
		store.NextError.Set(errors.New("throttled"))

		_, err := auth.Authenticate(ctx, store, withBearer(user.AuthToken()))
		Expect(err).ToNot(BeNil())
	})
})

var _ = Describe("LocalProvider", func() {
	It("should mint the development identity", func() {
		identity, err := auth.LocalProvider{}.Exchange(ctx, "any-code")
		Expect(err).To(BeNil())
		Expect(identity.Login).To(Equal("test-user"))
	})
})
