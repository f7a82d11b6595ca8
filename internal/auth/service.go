package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGenerator
	revoker        TokenRevoker
	bcryptCost     int
	dummyHash      string
	logger         *slog.Logger
}

// NewService creates a new auth service
func NewService(repo RepositoryAPI, tokenGen TokenGenerator, revoker TokenRevoker, bcryptCost int, logger *slog.Logger) *Service {
	if revoker == nil {
		revoker = NewMemoryBlacklist()
	}
	// compared against when the email is unknown so both failure paths cost a bcrypt round
	dummy, err := HashPassword("lead-management-dummy-password", bcryptCost)
	if err != nil {
		logger.Warn("failed to prepare dummy password hash", "error", err)
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		revoker:        revoker,
		bcryptCost:     bcryptCost,
		dummyHash:      dummy,
		logger:         logger,
	}
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = internal.DefaultAccessTokenDuration
	}
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: ttl,
		Issuer:         "lead-management",
	}
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, dto.Email)
	if err != nil && !errors.Is(err, internal.ErrUserNotFound) {
		s.logger.ErrorContext(ctx, "register: email lookup failed", "error", err)
		return nil, internal.NewInternalError("failed to register user", err)
	}
	if existing != nil {
		return nil, internal.ErrEmailTaken
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	account := &Account{
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: hash,
		Role:         RoleSales,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, internal.ErrEmailTaken) {
			return nil, internal.ErrEmailTaken
		}
		s.logger.ErrorContext(ctx, "register: failed to create user", "error", err)
		return nil, internal.NewInternalError("failed to register user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", account.ID, "role", account.Role)
	return s.issue(account)
}

// Authenticate validates credentials and returns a token. Unknown email and
// wrong password produce the same error.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByEmail(ctx, NormalizeEmail(dto.Email))
	if err != nil && !errors.Is(err, internal.ErrUserNotFound) {
		s.logger.ErrorContext(ctx, "login: email lookup failed", "error", err)
		return nil, internal.NewInternalError("failed to authenticate", err)
	}

	if account == nil {
		_ = VerifyPassword(s.dummyHash, dto.Password)
		return nil, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(account.PasswordHash, dto.Password); err != nil {
		s.logger.WarnContext(ctx, "login: password mismatch", "user_id", account.ID)
		return nil, internal.ErrInvalidCredentials
	}

	if !account.IsActive {
		return nil, internal.ErrUserInactive
	}

	return s.issue(account)
}

func (s *Service) issue(account *Account) (*AuthResponse, error) {
	token, expiresAt, err := s.tokenGenerator.GenerateAccessToken(account.ID, account.Role)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}
	return &AuthResponse{
		User:      account.ToView(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.ValidateAccessToken(ctx, token)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		s.logger.ErrorContext(ctx, "logout: failed to revoke token", "user_id", claims.UserID, "error", err)
		return internal.NewInternalError("failed to revoke token", err)
	}

	s.logger.InfoContext(ctx, "user logged out", "user_id", claims.UserID)
	return nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "token revocation lookup failed", "error", err)
		return nil, internal.NewInternalError("failed to validate token", err)
	}
	if revoked {
		return nil, internal.ErrTokenRevoked
	}
	return claims, nil
}

// Resolve turns a bearer token into a principal. The user row is reloaded so
// role changes and deactivation apply to tokens that are already issued.
func (s *Service) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.ValidateAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if !account.IsActive {
		return nil, internal.NewUnauthorizedError("User account is inactive", internal.ErrCodeUserInactive)
	}
	return account.Principal(), nil
}

func (s *Service) Me(ctx context.Context, userID int64) (*UserView, error) {
	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := account.ToView()
	return &view, nil
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, role Role) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.AccessTokenTTL)

	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 || claims.ExpiresAt == nil {
		return nil, internal.ErrInvalidToken
	}

	return claims, nil
}
