package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category 商品分类，可通过 ParentID 形成两级以上的树。
type Category struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string  `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Slug     string  `gorm:"size:160;uniqueIndex;not null" json:"slug"`
	ParentID *string `gorm:"type:varchar(36);index" json:"parent_id"`
	IsActive bool    `gorm:"not null" json:"is_active"`

	Children []Category `gorm:"-" json:"children,omitempty"`
}

func (Category) TableName() string { return "categories" }

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
