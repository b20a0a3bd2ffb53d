package purchasecache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Entry is the most recent purchase recorded for a buyer email.
type Entry struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	Email      string         `gorm:"type:text;not null;uniqueIndex"`
	PurchaseID string         `gorm:"type:text"`
	SellableID string         `gorm:"type:text"`
	Quantity   int            `gorm:"not null;default:1"`
	Payload    datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (Entry) TableName() string { return "purchase_cache" }
