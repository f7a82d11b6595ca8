package activity

import (
	"strings"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/core/common/validation"
)

type CreateActivityDTO struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (d *CreateActivityDTO) Normalize() {
	d.Type = strings.ToUpper(strings.TrimSpace(d.Type))
	d.Content = strings.TrimSpace(d.Content)
}

func (d CreateActivityDTO) Validate() *internal.AppError {
	allowed := make([]string, len(ManualTypes))
	for i, t := range ManualTypes {
		allowed[i] = string(t)
	}

	v := validation.NewValidator()
	v.Field("type", d.Type).Required().OneOf(internal.ErrCodeInvalidActivity, allowed...)
	v.Field("content", d.Content).Required().MaxLength(MaxContentLength)
	return v.Validate()
}
