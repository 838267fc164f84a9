// Package repository defines the persistence interfaces for the trade
// journal. Implementations include PostgreSQL via gorm (source of
// truth) and in-memory (for tests and development).
package repository

import (
	"errors"

	"github.com/options-journal/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrTradeNotFound   = errors.New("trade not found")
	ErrCommentNotFound = errors.New("comment not found")
	// ErrTradeNotOpen is returned by Roll when the parent trade is no
	// longer OPEN at commit time (already closed or rolled concurrently).
	ErrTradeNotOpen = errors.New("trade is not open")
)

// UserRepository handles user data access
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	ExistsByUsername(username string) (bool, error)
	List() ([]models.User, error)
}

// ClosePatch carries the server-computed fields applied to a parent
// trade when it is closed as part of a roll.
type ClosePatch struct {
	ExitPrice  float64
	ExitDate   string
	Pnl        float64
	PnlPercent float64
	PositionID string
}

// TradeRepository handles trade data access. All list operations
// return trades ordered by creation time descending.
type TradeRepository interface {
	Create(trade *models.Trade) error
	GetByID(id string) (*models.Trade, error)
	Update(trade *models.Trade) error
	Delete(id string) error

	List(filter models.FeedFilter) ([]models.Trade, error)
	ListShared(filter models.FeedFilter) ([]models.Trade, error)
	ListByUser(userID uint, filter models.FeedFilter) ([]models.Trade, error)
	ListOpenByUser(userID uint) ([]models.Trade, error)
	ListByPosition(positionID string) ([]models.Trade, error)
	// ListExpired returns the expiration-valuation worklist: closed
	// trades without expiration data whose option legs expired on or
	// before asOf (YYYY-MM-DD).
	ListExpired(asOf string) ([]models.Trade, error)

	// ToggleLike flips the user's membership in the trade's like set
	// and returns the resulting state (true = now liked).
	ToggleLike(tradeID string, userID uint) (bool, error)
	// ToggleShare flips the shared flag and returns the new value.
	ToggleShare(tradeID string) (bool, error)
	IncrementCommentCount(tradeID string) error
	SetExpirationData(tradeID string, stockPrice, theoreticalValue, missedPnl float64) (*models.Trade, error)

	// Roll atomically closes the parent trade with patch and creates
	// the successor. The parent must still be OPEN when the update is
	// applied; otherwise ErrTradeNotOpen is returned and nothing is
	// committed.
	Roll(parentID string, patch ClosePatch, successor *models.Trade) error
}

// CommentRepository handles comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	ListByTrade(tradeID string) ([]models.Comment, error)
	DeleteByTrade(tradeID string) error
}
