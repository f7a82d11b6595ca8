package user

import (
	"strings"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/common/validation"
)

type UpdateUserDTO struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// ToChanges validates the body and converts it to repository changes.
func (d UpdateUserDTO) ToChanges() (Changes, error) {
	var c Changes

	v := validation.NewValidator()
	if d.Name != nil {
		name := strings.TrimSpace(*d.Name)
		v.Field("name", name).Required().MaxLength(100)
		c.Name = &name
	}
	if d.Role != nil {
		role, err := auth.ParseRole(*d.Role)
		if err != nil {
			v.Fail("role", "role must be one of "+strings.Join(auth.RoleNames(auth.AllRoles), ", "), internal.ErrCodeInvalidRole)
		} else {
			c.Role = &role
		}
	}
	c.IsActive = d.IsActive

	if err := v.Validate(); err != nil {
		return Changes{}, err
	}
	if c.Empty() {
		return Changes{}, internal.NewValidationError("no updatable fields provided", internal.ErrCodeValidationFailed)
	}
	return c, nil
}
