package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/options-journal/internal/models"
	"github.com/options-journal/internal/repository"
	"github.com/options-journal/pkg/keygen"
)

var (
	ErrInvalidTicker    = errors.New("invalid ticker")
	ErrInvalidStrategy  = errors.New("invalid strategy")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrNoLegs           = errors.New("trade must have at least one leg")
	ErrExitDateRequired = errors.New("exit date is required for closed options trades")
	ErrNotTradeOwner    = errors.New("not the owner of this trade")
	ErrTradeNotClosed   = errors.New("trade must be closed to calculate expiration value")
	ErrInvalidComment   = errors.New("comment must be between 1 and 500 characters")
)

// QuoteProvider supplies current underlying prices. Implemented by
// QuoteService; narrowed to an interface so the trade service can be
// tested without network access.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// TradeService handles trade journal operations
type TradeService struct {
	tradeRepo   repository.TradeRepository
	commentRepo repository.CommentRepository
	quotes      QuoteProvider
}

// NewTradeService creates a new TradeService
func NewTradeService(
	tradeRepo repository.TradeRepository,
	commentRepo repository.CommentRepository,
	quotes QuoteProvider,
) *TradeService {
	return &TradeService{
		tradeRepo:   tradeRepo,
		commentRepo: commentRepo,
		quotes:      quotes,
	}
}

// TradeRequest carries client-supplied trade fields. Computed fields
// (pnl, expiration tracking, chain links) are never accepted here.
type TradeRequest struct {
	Ticker     string              `json:"ticker" binding:"required,min=1,max=10"`
	Strategy   models.StrategyType `json:"strategy" binding:"required"`
	Status     models.TradeStatus  `json:"status"`
	Legs       []models.TradeLeg   `json:"legs" binding:"required,min=1"`
	EntryPrice float64             `json:"entryPrice"`
	ExitPrice  *float64            `json:"exitPrice"`
	Quantity   int                 `json:"quantity" binding:"required,min=1"`
	EntryDate  string              `json:"entryDate" binding:"required"`
	ExitDate   string              `json:"exitDate"`
	Notes      string              `json:"notes"`
	MaxProfit  *float64            `json:"maxProfit"`
	MaxLoss    *float64            `json:"maxLoss"`
	Shared     bool                `json:"shared"`
}

// newTradeFromRequest validates a request and builds an unsaved trade.
// Realized P&L is computed only for CLOSED trades with an exit price;
// otherwise both fields stay absent.
func newTradeFromRequest(userID uint, req *TradeRequest) (*models.Trade, error) {
	if strings.TrimSpace(req.Ticker) == "" {
		return nil, ErrInvalidTicker
	}
	if !req.Strategy.Valid() {
		return nil, ErrInvalidStrategy
	}
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if len(req.Legs) == 0 {
		return nil, ErrNoLegs
	}

	status := req.Status
	if status == "" {
		status = models.TradeStatusOpen
	}

	// Empty exit dates are treated as absent.
	var exitDate *string
	if d := strings.TrimSpace(req.ExitDate); d != "" {
		exitDate = &d
	}
	if status == models.TradeStatusClosed && req.Strategy != models.StrategyStock && exitDate == nil {
		return nil, ErrExitDateRequired
	}

	if expected := req.Strategy.ExpectedLegs(); expected > 0 && len(req.Legs) != expected {
		log.Printf("[INFO] trade %s %s has %d legs, catalog expects %d",
			req.Ticker, req.Strategy, len(req.Legs), expected)
	}

	trade := &models.Trade{
		ID:             keygen.NewTradeID(),
		UserID:         userID,
		Ticker:         strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Strategy:       req.Strategy,
		Status:         status,
		Legs:           models.Legs(req.Legs),
		EntryPrice:     req.EntryPrice,
		ExitPrice:      req.ExitPrice,
		Quantity:       req.Quantity,
		EntryDate:      req.EntryDate,
		ExitDate:       exitDate,
		Notes:          req.Notes,
		MaxProfit:      req.MaxProfit,
		MaxLoss:        req.MaxLoss,
		Shared:         req.Shared,
		Likes:          models.UserIDList{},
		AdjustmentType: models.AdjustmentOpen,
		CreatedAt:      time.Now(),
	}

	if status == models.TradeStatusClosed && req.ExitPrice != nil {
		pnl, pnlPercent := RealizedPnL(req.EntryPrice, *req.ExitPrice, req.Quantity, req.Strategy)
		trade.Pnl = &pnl
		trade.PnlPercent = &pnlPercent
	}

	return trade, nil
}

// CreateTrade validates and persists a new trade
func (s *TradeService) CreateTrade(userID uint, req *TradeRequest) (*models.Trade, error) {
	trade, err := newTradeFromRequest(userID, req)
	if err != nil {
		return nil, err
	}
	if err := s.tradeRepo.Create(trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// UpdateTrade replaces a trade's client-editable fields. Any edit
// invalidates the expiration valuation, so those fields are cleared
// and EditedAt is stamped.
func (s *TradeService) UpdateTrade(userID uint, tradeID string, req *TradeRequest) (*models.Trade, error) {
	existing, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrNotTradeOwner
	}

	updated, err := newTradeFromRequest(userID, req)
	if err != nil {
		return nil, err
	}

	// Carry over identity and server-owned state.
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.Likes = existing.Likes
	updated.CommentCount = existing.CommentCount
	updated.Shared = existing.Shared
	updated.PositionID = existing.PositionID
	updated.AdjustmentType = existing.AdjustmentType
	updated.ParentTradeID = existing.ParentTradeID

	now := time.Now()
	updated.EditedAt = &now
	updated.ExpirationStockPrice = nil
	updated.TheoreticalExitValue = nil
	updated.MissedPnl = nil

	if err := s.tradeRepo.Update(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTrade removes a trade and its comments
func (s *TradeService) DeleteTrade(userID uint, tradeID string) error {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return err
	}
	if trade.UserID != userID {
		return ErrNotTradeOwner
	}
	if err := s.tradeRepo.Delete(tradeID); err != nil {
		return err
	}
	return s.commentRepo.DeleteByTrade(tradeID)
}

// GetTrade retrieves a single trade
func (s *TradeService) GetTrade(tradeID string) (*models.Trade, error) {
	return s.tradeRepo.GetByID(tradeID)
}

// Feed returns all trades matching the filter
func (s *TradeService) Feed(filter models.FeedFilter) ([]models.Trade, error) {
	return s.tradeRepo.List(filter)
}

// SharedFeed returns shared trades matching the filter (community feed)
func (s *TradeService) SharedFeed(filter models.FeedFilter) ([]models.Trade, error) {
	return s.tradeRepo.ListShared(filter)
}

// UserTrades returns one user's trades matching the filter
func (s *TradeService) UserTrades(userID uint, filter models.FeedFilter) ([]models.Trade, error) {
	return s.tradeRepo.ListByUser(userID, filter)
}

// ExpiredTrades returns the expiration-valuation worklist
func (s *TradeService) ExpiredTrades() ([]models.Trade, error) {
	return s.tradeRepo.ListExpired(time.Now().Format("2006-01-02"))
}

// ToggleLike flips the caller's like on a trade
func (s *TradeService) ToggleLike(userID uint, tradeID string) (bool, error) {
	return s.tradeRepo.ToggleLike(tradeID, userID)
}

// ToggleShare flips a trade's visibility; owner only
func (s *TradeService) ToggleShare(userID uint, tradeID string) (bool, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return false, err
	}
	if trade.UserID != userID {
		return false, ErrNotTradeOwner
	}
	return s.tradeRepo.ToggleShare(tradeID)
}

// Comments returns a trade's comments, oldest first
func (s *TradeService) Comments(tradeID string) ([]models.Comment, error) {
	if _, err := s.tradeRepo.GetByID(tradeID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByTrade(tradeID)
}

// AddComment creates a comment and bumps the trade's comment counter
func (s *TradeService) AddComment(userID uint, tradeID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if len(content) == 0 || len(content) > 500 {
		return nil, ErrInvalidComment
	}
	if _, err := s.tradeRepo.GetByID(tradeID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        keygen.NewCommentID(),
		TradeID:   tradeID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, err
	}
	if err := s.tradeRepo.IncrementCommentCount(tradeID); err != nil {
		return nil, err
	}
	return comment, nil
}

// Stats aggregates dashboard statistics, optionally scoped to a user.
// Win rate is winners over closed trades; trades without realized P&L
// count as closed but contribute 0 to the total.
func (s *TradeService) Stats(userID *uint) (*models.UserStats, error) {
	var (
		trades []models.Trade
		err    error
	)
	if userID != nil {
		trades, err = s.tradeRepo.ListByUser(*userID, models.FilterAll)
	} else {
		trades, err = s.tradeRepo.List(models.FilterAll)
	}
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{TotalTrades: len(trades)}
	var winners int
	for i := range trades {
		t := &trades[i]
		switch t.Status {
		case models.TradeStatusOpen:
			stats.OpenTrades++
		case models.TradeStatusClosed:
			stats.ClosedTrades++
			if t.Pnl != nil {
				stats.TotalPnl += *t.Pnl
				if *t.Pnl > 0 {
					winners++
				}
				if stats.BestTrade == nil || *t.Pnl > *stats.BestTrade.Pnl {
					stats.BestTrade = t
				}
				if stats.WorstTrade == nil || *t.Pnl < *stats.WorstTrade.Pnl {
					stats.WorstTrade = t
				}
			}
		}
	}
	if stats.ClosedTrades > 0 {
		stats.WinRate = float64(winners) / float64(stats.ClosedTrades) * 100
	}
	return stats, nil
}

// CalculateExpiration values a closed trade at expiration using the
// current underlying price and records the missed P&L against the
// actual exit. The only valuation step with an external dependency.
func (s *TradeService) CalculateExpiration(ctx context.Context, tradeID string) (*models.Trade, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status != models.TradeStatusClosed {
		return nil, ErrTradeNotClosed
	}

	quote, err := s.quotes.GetQuote(ctx, trade.Ticker)
	if err != nil {
		return nil, err
	}

	theoreticalValue, err := TheoreticalExpirationValue(trade, quote.Price)
	if err != nil {
		return nil, err
	}

	exitPrice := 0.0
	if trade.ExitPrice != nil {
		exitPrice = *trade.ExitPrice
	}
	missed := MissedPnL(theoreticalValue, exitPrice, trade.Quantity)

	return s.tradeRepo.SetExpirationData(tradeID, quote.Price, theoreticalValue, missed)
}
