package user

import (
	"context"
	"time"

	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/common/pagination"
	userDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/user"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the user shape embedded in leads, history and activities.
type Summary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) IsAdmin() bool {
	return u.Role == auth.RoleAdmin
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

type ListFilter struct {
	Role   auth.Role
	Active *bool
	pagination.Params
}

// Changes holds the columns PATCH /users/{id} may write. Nil means untouched.
type Changes struct {
	Name     *string
	Role     *auth.Role
	IsActive *bool
}

func (c Changes) Empty() bool {
	return c.Name == nil && c.Role == nil && c.IsActive == nil
}

type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*User, int64, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, id int64, changes Changes) (*User, error)
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      auth.Role(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// SummaryFromDataModel tolerates a nil relation, which gorm leaves when a
// preload target row is missing.
func SummaryFromDataModel(u *userDatamodel.User) *Summary {
	if u == nil {
		return nil
	}
	return &Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}
