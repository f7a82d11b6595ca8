package lead

import (
	"time"

	userDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/user"
)

type Lead struct {
	ID          int64     `gorm:"primaryKey"`
	FirstName   string    `gorm:"column:first_name;not null"`
	LastName    string    `gorm:"column:last_name"`
	Email       string    `gorm:"column:email;index"`
	Phone       string    `gorm:"column:phone"`
	Company     string    `gorm:"column:company"`
	Status      string    `gorm:"column:status;not null;index"`
	Source      string    `gorm:"column:source;index"`
	Notes       string    `gorm:"column:notes"`
	OwnerID     int64     `gorm:"column:owner_id;not null;index"`
	CreatedByID int64     `gorm:"column:created_by_id;not null"`
	UpdatedByID int64     `gorm:"column:updated_by_id;not null"`
	Version     int64     `gorm:"column:version;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Owner     *userDatamodel.User `gorm:"foreignKey:OwnerID"`
	CreatedBy *userDatamodel.User `gorm:"foreignKey:CreatedByID"`
	UpdatedBy *userDatamodel.User `gorm:"foreignKey:UpdatedByID"`
}

func (Lead) TableName() string {
	return "leads"
}

// LeadHistory is append-only. It deliberately has no foreign key to leads so
// the audit trail survives lead deletion.
type LeadHistory struct {
	ID        int64     `gorm:"primaryKey"`
	LeadID    int64     `gorm:"column:lead_id;not null;index"`
	UserID    int64     `gorm:"column:user_id;not null"`
	Action    string    `gorm:"column:action;not null"`
	Field     string    `gorm:"column:field;not null"`
	OldValue  *string   `gorm:"column:old_value"`
	NewValue  *string   `gorm:"column:new_value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`

	User *userDatamodel.User `gorm:"foreignKey:UserID"`
}

func (LeadHistory) TableName() string {
	return "lead_history"
}
