package lead

import (
	"strings"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/core/common/phone"
	"github.com/frahmantamala/lead-management/internal/core/common/validation"
)

const (
	maxNameLength  = 100
	maxEmailLength = 255
	maxPhoneLength = 32
	maxTextLength  = 255
	maxNotesLength = 5000
)

type CreateLeadDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Status    string `json:"status"`
	Source    string `json:"source"`
	Notes     string `json:"notes"`
	OwnerID   *int64 `json:"owner_id"`
}

// UpdateLeadDTO carries only the keys present in the PATCH body. Bookkeeping
// keys such as id, timestamps and relation objects have no field here and are
// dropped by the decoder.
type UpdateLeadDTO struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Status    *string `json:"status"`
	Source    *string `json:"source"`
	Notes     *string `json:"notes"`
	OwnerID   *int64  `json:"owner_id"`
	Version   *int64  `json:"version"`
}

// TransferLeadDTO accepts newOwnerId as well as owner_id.
type TransferLeadDTO struct {
	NewOwnerID int64  `json:"newOwnerId"`
	OwnerID    int64  `json:"owner_id"`
	Version    *int64 `json:"version"`
}

func (d TransferLeadDTO) Target() int64 {
	if d.NewOwnerID > 0 {
		return d.NewOwnerID
	}
	return d.OwnerID
}

func (d *CreateLeadDTO) Normalize(region string) {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = normalizePhone(d.Phone, region)
	d.Company = strings.TrimSpace(d.Company)
	d.Status = strings.ToUpper(strings.TrimSpace(d.Status))
	d.Source = strings.TrimSpace(d.Source)
	if d.Status == "" {
		d.Status = string(StatusNew)
	}
}

func (d CreateLeadDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("first_name", d.FirstName).Required().MaxLength(maxNameLength)
	v.Field("last_name", d.LastName).MaxLength(maxNameLength)
	v.Field("email", d.Email).MaxLength(maxEmailLength).Email()
	v.Field("phone", d.Phone).MaxLength(maxPhoneLength)
	v.Field("company", d.Company).MaxLength(maxTextLength)
	v.Field("source", d.Source).MaxLength(maxTextLength)
	v.Field("notes", d.Notes).MaxLength(maxNotesLength)
	v.Field("status", d.Status).OneOf(internal.ErrCodeInvalidStatus, StatusNames()...)
	if d.Email == "" && d.Phone == "" {
		v.Fail("email", "either email or phone is required", internal.ErrCodeMissingContact)
	}
	return v.Validate()
}

func (d *UpdateLeadDTO) Normalize(region string) {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(d.FirstName)
	trim(d.LastName)
	trim(d.Company)
	trim(d.Source)
	if d.Email != nil {
		*d.Email = strings.ToLower(strings.TrimSpace(*d.Email))
	}
	if d.Phone != nil {
		*d.Phone = normalizePhone(*d.Phone, region)
	}
	if d.Status != nil {
		*d.Status = strings.ToUpper(strings.TrimSpace(*d.Status))
	}
}

func (d UpdateLeadDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.FirstName != nil {
		v.Field("first_name", d.FirstName).Required().MaxLength(maxNameLength)
	}
	v.Field("last_name", d.LastName).MaxLength(maxNameLength)
	v.Field("email", d.Email).MaxLength(maxEmailLength).Email()
	v.Field("phone", d.Phone).MaxLength(maxPhoneLength)
	v.Field("company", d.Company).MaxLength(maxTextLength)
	v.Field("source", d.Source).MaxLength(maxTextLength)
	v.Field("notes", d.Notes).MaxLength(maxNotesLength)
	if d.Status != nil {
		v.Field("status", d.Status).Required().OneOf(internal.ErrCodeInvalidStatus, StatusNames()...)
	}
	if d.OwnerID != nil && *d.OwnerID <= 0 {
		v.Fail("owner_id", "owner_id must be a positive id", internal.ErrCodeInvalidID)
	}
	return v.Validate()
}

// normalizePhone returns E.164 when the number parses and the trimmed input otherwise.
func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if e164, err := phone.Normalize(raw, region); err == nil {
		return e164
	}
	return raw
}
