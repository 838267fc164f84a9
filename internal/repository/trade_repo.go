package repository

import (
	"errors"

	"github.com/options-journal/internal/models"
	"gorm.io/gorm"
)

// GormTradeRepository is the PostgreSQL-backed TradeRepository
type GormTradeRepository struct {
	db *gorm.DB
}

// NewGormTradeRepository creates a new GormTradeRepository
func NewGormTradeRepository(db *gorm.DB) *GormTradeRepository {
	return &GormTradeRepository{db: db}
}

// Create creates a new trade
func (r *GormTradeRepository) Create(trade *models.Trade) error {
	return r.db.Create(trade).Error
}

// GetByID retrieves a trade by ID
func (r *GormTradeRepository) GetByID(id string) (*models.Trade, error) {
	var trade models.Trade
	result := r.db.First(&trade, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, result.Error
	}
	return &trade, nil
}

// Update saves the full trade record
func (r *GormTradeRepository) Update(trade *models.Trade) error {
	result := r.db.Save(trade)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTradeNotFound
	}
	return nil
}

// Delete removes a trade by ID
func (r *GormTradeRepository) Delete(id string) error {
	result := r.db.Delete(&models.Trade{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTradeNotFound
	}
	return nil
}

// applyFilter adds the feed filter conditions to a query
func applyFilter(q *gorm.DB, filter models.FeedFilter) *gorm.DB {
	switch filter {
	case models.FilterOpen:
		return q.Where("status = ?", models.TradeStatusOpen)
	case models.FilterClosed:
		return q.Where("status = ?", models.TradeStatusClosed)
	case models.FilterWinners:
		return q.Where("pnl IS NOT NULL AND pnl > 0")
	case models.FilterLosers:
		return q.Where("pnl IS NOT NULL AND pnl < 0")
	default:
		return q
	}
}

// List retrieves all trades matching the filter
func (r *GormTradeRepository) List(filter models.FeedFilter) ([]models.Trade, error) {
	var trades []models.Trade
	result := applyFilter(r.db, filter).Order("created_at DESC").Find(&trades)
	return trades, result.Error
}

// ListShared retrieves shared trades matching the filter
func (r *GormTradeRepository) ListShared(filter models.FeedFilter) ([]models.Trade, error) {
	var trades []models.Trade
	result := applyFilter(r.db.Where("shared = ?", true), filter).
		Order("created_at DESC").
		Find(&trades)
	return trades, result.Error
}

// ListByUser retrieves a user's trades matching the filter
func (r *GormTradeRepository) ListByUser(userID uint, filter models.FeedFilter) ([]models.Trade, error) {
	var trades []models.Trade
	result := applyFilter(r.db.Where("user_id = ?", userID), filter).
		Order("created_at DESC").
		Find(&trades)
	return trades, result.Error
}

// ListOpenByUser retrieves a user's open trades (roll candidates)
func (r *GormTradeRepository) ListOpenByUser(userID uint) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("user_id = ? AND status = ?", userID, models.TradeStatusOpen).
		Order("created_at DESC").
		Find(&trades)
	return trades, result.Error
}

// ListByPosition retrieves all trades in a position chain, oldest first
func (r *GormTradeRepository) ListByPosition(positionID string) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("position_id = ?", positionID).
		Order("created_at ASC").
		Find(&trades)
	return trades, result.Error
}

// ListExpired retrieves closed trades without expiration data whose
// option legs have expired. Leg expirations live inside the jsonb
// column, so candidates are narrowed in SQL and legs checked in Go.
func (r *GormTradeRepository) ListExpired(asOf string) ([]models.Trade, error) {
	var candidates []models.Trade
	result := r.db.Where("status = ? AND expiration_stock_price IS NULL", models.TradeStatusClosed).
		Order("created_at DESC").
		Find(&candidates)
	if result.Error != nil {
		return nil, result.Error
	}

	expired := make([]models.Trade, 0, len(candidates))
	for _, t := range candidates {
		if t.HasExpiredOptionLeg(asOf) {
			expired = append(expired, t)
		}
	}
	return expired, nil
}

// ToggleLike flips set membership of userID in the trade's likes
func (r *GormTradeRepository) ToggleLike(tradeID string, userID uint) (bool, error) {
	var liked bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var trade models.Trade
		if err := tx.First(&trade, "id = ?", tradeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTradeNotFound
			}
			return err
		}

		if trade.Likes.Contains(userID) {
			next := make(models.UserIDList, 0, len(trade.Likes)-1)
			for _, id := range trade.Likes {
				if id != userID {
					next = append(next, id)
				}
			}
			trade.Likes = next
			liked = false
		} else {
			trade.Likes = append(trade.Likes, userID)
			liked = true
		}

		return tx.Model(&models.Trade{}).Where("id = ?", tradeID).
			Update("likes", trade.Likes).Error
	})
	return liked, err
}

// ToggleShare flips the shared flag and returns the new value
func (r *GormTradeRepository) ToggleShare(tradeID string) (bool, error) {
	var shared bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var trade models.Trade
		if err := tx.First(&trade, "id = ?", tradeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTradeNotFound
			}
			return err
		}
		shared = !trade.Shared
		return tx.Model(&models.Trade{}).Where("id = ?", tradeID).
			Update("shared", shared).Error
	})
	return shared, err
}

// IncrementCommentCount bumps the denormalized comment counter
func (r *GormTradeRepository) IncrementCommentCount(tradeID string) error {
	result := r.db.Model(&models.Trade{}).Where("id = ?", tradeID).
		Update("comment_count", gorm.Expr("comment_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTradeNotFound
	}
	return nil
}

// SetExpirationData stores the expiration valuation results
func (r *GormTradeRepository) SetExpirationData(tradeID string, stockPrice, theoreticalValue, missedPnl float64) (*models.Trade, error) {
	result := r.db.Model(&models.Trade{}).Where("id = ?", tradeID).Updates(map[string]interface{}{
		"expiration_stock_price": stockPrice,
		"theoretical_exit_value": theoreticalValue,
		"missed_pnl":             missedPnl,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTradeNotFound
	}
	return r.GetByID(tradeID)
}

// Roll closes the parent and creates the successor in one transaction.
// The status guard on the parent update makes concurrent rolls of the
// same trade lose with ErrTradeNotOpen instead of double-closing.
func (r *GormTradeRepository) Roll(parentID string, patch ClosePatch, successor *models.Trade) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Trade{}).
			Where("id = ? AND status = ?", parentID, models.TradeStatusOpen).
			Updates(map[string]interface{}{
				"status":                 models.TradeStatusClosed,
				"exit_price":             patch.ExitPrice,
				"exit_date":              patch.ExitDate,
				"pnl":                    patch.Pnl,
				"pnl_percent":            patch.PnlPercent,
				"position_id":            patch.PositionID,
				"expiration_stock_price": nil,
				"theoretical_exit_value": nil,
				"missed_pnl":             nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Trade{}).Where("id = ?", parentID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrTradeNotFound
			}
			return ErrTradeNotOpen
		}

		return tx.Create(successor).Error
	})
}
