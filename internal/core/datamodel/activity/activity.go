package activity

import (
	"time"

	userDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/user"
)

type Activity struct {
	ID        int64     `gorm:"primaryKey"`
	LeadID    int64     `gorm:"column:lead_id;not null;index"`
	UserID    int64     `gorm:"column:user_id;not null"`
	Type      string    `gorm:"column:type;not null"`
	Content   string    `gorm:"column:content;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`

	User *userDatamodel.User `gorm:"foreignKey:UserID"`
}

func (Activity) TableName() string {
	return "activities"
}
