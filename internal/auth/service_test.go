package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock account repository for testing
type mockAccountRepository struct {
	mu            sync.Mutex
	byID          map[int64]*Account
	nextID        int64
	errorToReturn error
}

func newMockAccountRepository() *mockAccountRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	repo := &mockAccountRepository{byID: map[int64]*Account{}, nextID: 1}
	for _, a := range []*Account{
		{Name: "Sales Rep", Email: "sales@example.com", Role: RoleSales, IsActive: true},
		{Name: "Admin", Email: "admin@example.com", Role: RoleAdmin, IsActive: true},
		{Name: "Former Rep", Email: "inactive@example.com", Role: RoleSales, IsActive: false},
	} {
		a.PasswordHash = string(hash)
		_ = repo.Create(context.Background(), a)
	}
	return repo
}

func (m *mockAccountRepository) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockAccountRepository) GetByID(_ context.Context, id int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccountRepository) Create(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errorToReturn != nil {
		return m.errorToReturn
	}
	for _, a := range m.byID {
		if a.Email == account.Email {
			return internal.ErrEmailTaken
		}
	}
	account.ID = m.nextID
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	m.nextID++
	cp := *account
	m.byID[account.ID] = &cp
	return nil
}

func (m *mockAccountRepository) deactivate(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].IsActive = false
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockAccountRepository
		tokenGen *JWTTokenGenerator
		ctx      context.Context
		lg       *slog.Logger
		secret   = "test-access-secret-that-is-long-enough"
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		lg = logger.Discard()
		mockRepo = newMockAccountRepository()
		tokenGen = NewJWTTokenGenerator(secret, 15*time.Minute)
		service = NewService(mockRepo, tokenGen, NewMemoryBlacklist(), bcrypt.MinCost, lg)
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create a SALES user and return a token", func() {
			resp, err := service.Register(ctx, RegisterDTO{
				Name:     "  New Rep ",
				Email:    "New.Rep@Example.com",
				Password: "password123",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
			gomega.Expect(resp.User.Role).To(gomega.Equal(RoleSales))
			gomega.Expect(resp.User.Email).To(gomega.Equal("new.rep@example.com"))
			gomega.Expect(resp.User.Name).To(gomega.Equal("New Rep"))
			gomega.Expect(resp.ExpiresAt).To(gomega.BeTemporally("~", time.Now().Add(15*time.Minute), 5*time.Second))
		})

		ginkgo.It("should reject a duplicate email regardless of case", func() {
			_, err := service.Register(ctx, RegisterDTO{
				Name:     "Copy",
				Email:    "SALES@example.com",
				Password: "password123",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrEmailTaken))
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(400))
		})

		ginkgo.It("should return validation errors for a short password", func() {
			_, err := service.Register(ctx, RegisterDTO{
				Name:     "Short",
				Email:    "short@example.com",
				Password: "abc",
			})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("password"))
		})

		ginkgo.It("should wrap repository failures as internal errors", func() {
			mockRepo.errorToReturn = errors.New("connection reset")

			_, err := service.Register(ctx, RegisterDTO{
				Name:     "Any",
				Email:    "any@example.com",
				Password: "password123",
			})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(500))
		})
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return a token carrying the user id and role", func() {
				resp, err := service.Authenticate(ctx, LoginDTO{
					Email:    "Admin@Example.com",
					Password: "correct_password",
				})

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				claims, err := service.ValidateAccessToken(ctx, resp.Token)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.UserID).To(gomega.Equal(resp.User.ID))
				gomega.Expect(claims.Role).To(gomega.Equal(RoleAdmin))
				gomega.Expect(claims.ID).ToNot(gomega.BeEmpty())
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should return the same error for unknown email and wrong password", func() {
				_, errUnknown := service.Authenticate(ctx, LoginDTO{Email: "ghost@example.com", Password: "whatever"})
				_, errWrong := service.Authenticate(ctx, LoginDTO{Email: "sales@example.com", Password: "wrong_password"})

				gomega.Expect(errUnknown).To(gomega.MatchError(internal.ErrInvalidCredentials))
				gomega.Expect(errWrong).To(gomega.MatchError(internal.ErrInvalidCredentials))
				gomega.Expect(errUnknown.Error()).To(gomega.Equal(errWrong.Error()))
			})

			ginkgo.It("should reject an inactive user with the right password", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "inactive@example.com", Password: "correct_password"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrUserInactive))
			})

			ginkgo.It("should not reveal inactivity when the password is wrong", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "inactive@example.com", Password: "nope"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})
		})

		ginkgo.Context("when input validation fails", func() {
			ginkgo.It("should return validation error for empty email", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "", Password: "password"})

				gomega.Expect(err).To(gomega.HaveOccurred())
				gomega.Expect(err.Error()).To(gomega.ContainSubstring("email is required"))
			})
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should revoke the token", func() {
			resp, err := service.Authenticate(ctx, LoginDTO{Email: "sales@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.Logout(ctx, resp.Token)).To(gomega.Succeed())

			_, err = service.ValidateAccessToken(ctx, resp.Token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenRevoked))
		})

		ginkgo.It("should reject an already revoked token", func() {
			resp, _ := service.Authenticate(ctx, LoginDTO{Email: "sales@example.com", Password: "correct_password"})
			gomega.Expect(service.Logout(ctx, resp.Token)).To(gomega.Succeed())

			gomega.Expect(service.Logout(ctx, resp.Token)).To(gomega.MatchError(internal.ErrTokenRevoked))
		})
	})

	ginkgo.Describe("Resolve", func() {
		ginkgo.It("should return the principal for a valid token", func() {
			resp, _ := service.Authenticate(ctx, LoginDTO{Email: "sales@example.com", Password: "correct_password"})

			p, err := service.Resolve(ctx, resp.Token)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p.ID).To(gomega.Equal(resp.User.ID))
			gomega.Expect(p.Role).To(gomega.Equal(RoleSales))
			gomega.Expect(p.Name).To(gomega.Equal("Sales Rep"))
		})

		ginkgo.It("should reject tokens of users deactivated after login", func() {
			resp, _ := service.Authenticate(ctx, LoginDTO{Email: "sales@example.com", Password: "correct_password"})
			mockRepo.deactivate(resp.User.ID)

			_, err := service.Resolve(ctx, resp.Token)

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(401))
		})

		ginkgo.It("should reject tokens of users that no longer exist", func() {
			token, _, err := tokenGen.GenerateAccessToken(999, RoleAdmin)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Resolve(ctx, token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("JWTTokenGenerator", func() {
		ginkgo.It("should reject tokens signed with another secret", func() {
			other := NewJWTTokenGenerator("another-secret-that-is-long-enough!!", time.Minute)
			token, _, err := other.GenerateAccessToken(1, RoleSales)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokenGen.ValidateToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should report expired tokens", func() {
			expired := &JWTTokenGenerator{Secret: []byte(secret), AccessTokenTTL: -time.Minute, Issuer: "lead-management"}
			token, _, err := expired.GenerateAccessToken(1, RoleSales)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokenGen.ValidateToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("should reject garbage", func() {
			_, err := tokenGen.ValidateToken("not-a-jwt")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})
})
