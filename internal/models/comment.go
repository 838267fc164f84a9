package models

import (
	"time"
)

// Comment is an immutable comment on a trade. Comments survive trade
// edits and are removed only when the trade itself is deleted.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TradeID   string    `gorm:"size:36;not null;index" json:"tradeId"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Content   string    `gorm:"size:500;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for Comment model
func (Comment) TableName() string {
	return "comments"
}
