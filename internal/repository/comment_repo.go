package repository

import (
	"github.com/options-journal/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is the PostgreSQL-backed CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new GormCommentRepository
func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// Create creates a new comment
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// ListByTrade retrieves a trade's comments, oldest first
func (r *GormCommentRepository) ListByTrade(tradeID string) ([]models.Comment, error) {
	var comments []models.Comment
	result := r.db.Where("trade_id = ?", tradeID).Order("created_at ASC").Find(&comments)
	return comments, result.Error
}

// DeleteByTrade removes all comments for a trade (trade deletion cascade)
func (r *GormCommentRepository) DeleteByTrade(tradeID string) error {
	return r.db.Delete(&models.Comment{}, "trade_id = ?", tradeID).Error
}
