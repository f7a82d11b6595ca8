package source

import (
	"strings"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/core/common/validation"
)

type SourceResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateSourceDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Normalize upper-cases the name so "cold call" and "COLD_CALL" collide.
func (d *CreateSourceDTO) Normalize() {
	d.Name = strings.ToUpper(strings.Join(strings.Fields(d.Name), "_"))
	d.Description = strings.TrimSpace(d.Description)
}

func (d CreateSourceDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(50)
	v.Field("description", d.Description).MaxLength(255)
	return v.Validate()
}

type UpdateSourceDTO struct {
	IsActive *bool `json:"is_active"`
}

func (d UpdateSourceDTO) Validate() *internal.AppError {
	if d.IsActive == nil {
		return internal.NewValidationFieldError("is_active", "is_active is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
