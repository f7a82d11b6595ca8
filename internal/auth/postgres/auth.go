package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/database"
	userDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", auth.NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return toAccount(&u), nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return toAccount(&u), nil
}

func (r *Repository) Create(ctx context.Context, account *auth.Account) error {
	u := &userDatamodel.User{
		Email:        auth.NormalizeEmail(account.Email),
		Name:         account.Name,
		PasswordHash: account.PasswordHash,
		Role:         account.Role.String(),
		IsActive:     account.IsActive,
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return internal.ErrEmailTaken
		}
		return err
	}

	account.ID = u.ID
	account.Email = u.Email
	account.CreatedAt = u.CreatedAt
	account.UpdatedAt = u.UpdatedAt
	return nil
}

func toAccount(u *userDatamodel.User) *auth.Account {
	return &auth.Account{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         auth.Role(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
