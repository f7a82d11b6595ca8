package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("Auth Handler", func() {
	var (
		handler *Handler
		service *Service
	)

	ginkgo.BeforeEach(func() {
		service = NewService(
			newMockAccountRepository(),
			NewJWTTokenGenerator("handler-test-secret-that-is-long-enough", time.Hour),
			NewMemoryBlacklist(),
			bcrypt.MinCost,
			logger.Discard(),
		)
		handler = NewHandler(service)
	})

	post := func(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h(w, req)
		return w
	}

	login := func() AuthResponse {
		w := post(handler.Login, `{"email":"sales@example.com","password":"correct_password"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		var resp AuthResponse
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		return resp
	}

	ginkgo.It("should register with 201 and never accept a client role", func() {
		w := post(handler.Register, `{"name":"Eve","email":"eve@example.com","password":"password123","role":"ADMIN"}`)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusCreated))
		var resp AuthResponse
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		gomega.Expect(resp.User.Role).To(gomega.Equal(RoleSales))
		gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
	})

	ginkgo.It("should answer 400 on malformed JSON", func() {
		w := post(handler.Login, `{"email":`)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(json.Valid(w.Body.Bytes())).To(gomega.BeTrue())
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeInvalidBody)))
	})

	ginkgo.It("should answer 401 on bad credentials", func() {
		w := post(handler.Login, `{"email":"sales@example.com","password":"nope"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring("Invalid email or password"))
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var protected http.Handler

		ginkgo.BeforeEach(func() {
			protected = handler.AuthMiddleware(http.HandlerFunc(handler.Me))
		})

		ginkgo.It("should reject requests without a token", func() {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeMissingToken)))
		})

		ginkgo.It("should attach the principal and serve /auth/me", func() {
			resp := login()

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			req.Header.Set("Authorization", "Bearer "+resp.Token)
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			var view UserView
			gomega.Expect(json.NewDecoder(w.Body).Decode(&view)).To(gomega.Succeed())
			gomega.Expect(view.Email).To(gomega.Equal("sales@example.com"))
		})

		ginkgo.It("should reject a token after logout", func() {
			resp := login()

			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			req.Header.Set("Authorization", "Bearer "+resp.Token)
			w := httptest.NewRecorder()
			handler.Logout(w, req)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))

			req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			req.Header.Set("Authorization", "Bearer "+resp.Token)
			w = httptest.NewRecorder()
			protected.ServeHTTP(w, req)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeTokenRevoked)))
		})
	})

	ginkgo.Describe("AuthenticateRequest", func() {
		ginkgo.It("should read the query token only when allowed", func() {
			resp := login()
			req := httptest.NewRequest(http.MethodGet, "/ws?token="+resp.Token, nil)

			_, err := handler.AuthenticateRequest(req, false)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrMissingToken))

			p, err := handler.AuthenticateRequest(req, true)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p.Email).To(gomega.Equal("sales@example.com"))
		})
	})

	ginkgo.It("should expose the principal through context helpers", func() {
		ctx := ContextWithPrincipal(context.Background(), &Principal{ID: 3})
		p, ok := PrincipalFromContext(ctx)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(p.ID).To(gomega.Equal(int64(3)))

		_, ok = PrincipalFromContext(context.Background())
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})
