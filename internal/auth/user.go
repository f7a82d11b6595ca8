package auth

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error)
	Authenticate(ctx context.Context, dto LoginDTO) (*AuthResponse, error)
	Logout(ctx context.Context, token string) error
	ValidateAccessToken(ctx context.Context, token string) (*Claims, error)
	Resolve(ctx context.Context, token string) (*Principal, error)
	Me(ctx context.Context, userID int64) (*UserView, error)
}

type RepositoryAPI interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	Create(ctx context.Context, account *Account) error
}

// RequestAuthenticator resolves a principal for transports that cannot use
// the regular middleware, such as the websocket upgrade.
type RequestAuthenticator interface {
	AuthenticateRequest(r *http.Request, allowQueryToken bool) (*Principal, error)
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
