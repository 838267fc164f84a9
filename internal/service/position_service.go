package service

import (
	"errors"
	"time"

	"github.com/options-journal/internal/models"
	"github.com/options-journal/internal/repository"
	"github.com/options-journal/pkg/keygen"
)

var (
	ErrParentExitPriceRequired = errors.New("parent exit price is required for rolling")
	ErrCannotRollClosed        = errors.New("can only roll open trades")
)

// PositionService maintains position chains: the linkage between an
// original trade and the successors created by rolling it.
type PositionService struct {
	tradeRepo repository.TradeRepository
}

// NewPositionService creates a new PositionService
func NewPositionService(tradeRepo repository.TradeRepository) *PositionService {
	return &PositionService{tradeRepo: tradeRepo}
}

// RollRequest carries the parent's closing terms plus the successor
// trade's fields.
type RollRequest struct {
	TradeRequest
	ParentExitPrice *float64 `json:"parentExitPrice" binding:"required"`
	ParentExitDate  string   `json:"parentExitDate"`
}

// RollResult holds both sides of a committed roll
type RollResult struct {
	ClosedParent *models.Trade `json:"closedParent"`
	NewTrade     *models.Trade `json:"newTrade"`
}

// EnsurePositionID returns the trade's position chain id, deriving a
// fresh one from the ticker when absent. Legacy trades created before
// chain tracking get their id lazily on first roll.
func EnsurePositionID(trade *models.Trade) string {
	if trade.PositionID != nil && *trade.PositionID != "" {
		return *trade.PositionID
	}
	return keygen.NewPositionID(trade.Ticker)
}

// Roll closes the parent trade at the provided exit price and creates
// the successor as one atomic unit. The successor is validated before
// any write, and the repository re-checks the parent is still OPEN at
// commit time, so a failed or concurrent roll leaves the parent open.
func (s *PositionService) Roll(userID uint, parentTradeID string, req *RollRequest) (*RollResult, error) {
	parent, err := s.tradeRepo.GetByID(parentTradeID)
	if err != nil {
		return nil, err
	}
	if parent.UserID != userID {
		return nil, ErrNotTradeOwner
	}
	if parent.Status != models.TradeStatusOpen {
		return nil, ErrCannotRollClosed
	}
	if req.ParentExitPrice == nil {
		return nil, ErrParentExitPriceRequired
	}

	exitDate := req.ParentExitDate
	if exitDate == "" {
		exitDate = time.Now().Format("2006-01-02")
	}

	positionID := EnsurePositionID(parent)
	pnl, pnlPercent := RealizedPnL(parent.EntryPrice, *req.ParentExitPrice, parent.Quantity, parent.Strategy)

	successor, err := newTradeFromRequest(userID, &req.TradeRequest)
	if err != nil {
		return nil, err
	}
	successor.AdjustmentType = models.AdjustmentRoll
	successor.PositionID = &positionID
	successor.ParentTradeID = &parent.ID
	// A roll never changes visibility.
	successor.Shared = parent.Shared

	patch := repository.ClosePatch{
		ExitPrice:  *req.ParentExitPrice,
		ExitDate:   exitDate,
		Pnl:        pnl,
		PnlPercent: pnlPercent,
		PositionID: positionID,
	}
	if err := s.tradeRepo.Roll(parent.ID, patch, successor); err != nil {
		return nil, err
	}

	closedParent, err := s.tradeRepo.GetByID(parent.ID)
	if err != nil {
		return nil, err
	}
	return &RollResult{ClosedParent: closedParent, NewTrade: successor}, nil
}

// Chain returns all trades sharing a position id, oldest first
func (s *PositionService) Chain(positionID string) ([]models.Trade, error) {
	return s.tradeRepo.ListByPosition(positionID)
}

// OpenPositions returns a user's open trades (roll candidates)
func (s *PositionService) OpenPositions(userID uint) ([]models.Trade, error) {
	return s.tradeRepo.ListOpenByUser(userID)
}
