package repository

import (
	"sort"
	"sync"

	"github.com/options-journal/internal/models"
)

// MemoryStore implements the repository interfaces with in-memory maps.
// Used for tests and for running without PostgreSQL. Values are copied
// on the way in and out to avoid external mutation.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uint]*models.User
	trades   map[string]*models.Trade
	comments map[string]*models.Comment
	nextUser uint
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]*models.User),
		trades:   make(map[string]*models.Trade),
		comments: make(map[string]*models.Comment),
		nextUser: 1,
	}
}

// Users returns the UserRepository view of the store
func (s *MemoryStore) Users() UserRepository { return (*memoryUsers)(s) }

// Trades returns the TradeRepository view of the store
func (s *MemoryStore) Trades() TradeRepository { return (*memoryTrades)(s) }

// Comments returns the CommentRepository view of the store
func (s *MemoryStore) Comments() CommentRepository { return (*memoryComments)(s) }

type memoryUsers MemoryStore

func (s *memoryUsers) Create(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == 0 {
		user.ID = s.nextUser
		s.nextUser++
	} else if user.ID >= s.nextUser {
		s.nextUser = user.ID + 1
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memoryUsers) GetByID(id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memoryUsers) GetByUsername(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memoryUsers) ExistsByUsername(username string) (bool, error) {
	_, err := s.GetByUsername(username)
	if err == ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *memoryUsers) List() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type memoryTrades MemoryStore

func (s *memoryTrades) Create(trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyTrade(trade)
	s.trades[trade.ID] = cp
	return nil
}

func (s *memoryTrades) GetByID(id string) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, ErrTradeNotFound
	}
	return copyTrade(t), nil
}

func (s *memoryTrades) Update(trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[trade.ID]; !ok {
		return ErrTradeNotFound
	}
	s.trades[trade.ID] = copyTrade(trade)
	return nil
}

func (s *memoryTrades) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[id]; !ok {
		return ErrTradeNotFound
	}
	delete(s.trades, id)
	return nil
}

func matchesFilter(t *models.Trade, filter models.FeedFilter) bool {
	switch filter {
	case models.FilterOpen:
		return t.Status == models.TradeStatusOpen
	case models.FilterClosed:
		return t.Status == models.TradeStatusClosed
	case models.FilterWinners:
		return t.IsWinner()
	case models.FilterLosers:
		return t.IsLoser()
	default:
		return true
	}
}

// collect snapshots matching trades sorted by creation time descending.
// Callers must hold at least the read lock.
func (s *memoryTrades) collect(keep func(*models.Trade) bool) []models.Trade {
	trades := make([]models.Trade, 0)
	for _, t := range s.trades {
		if keep(t) {
			trades = append(trades, *copyTrade(t))
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].CreatedAt.After(trades[j].CreatedAt)
	})
	return trades
}

func (s *memoryTrades) List(filter models.FeedFilter) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(t *models.Trade) bool {
		return matchesFilter(t, filter)
	}), nil
}

func (s *memoryTrades) ListShared(filter models.FeedFilter) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(t *models.Trade) bool {
		return t.Shared && matchesFilter(t, filter)
	}), nil
}

func (s *memoryTrades) ListByUser(userID uint, filter models.FeedFilter) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(t *models.Trade) bool {
		return t.UserID == userID && matchesFilter(t, filter)
	}), nil
}

func (s *memoryTrades) ListOpenByUser(userID uint) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(t *models.Trade) bool {
		return t.UserID == userID && t.Status == models.TradeStatusOpen
	}), nil
}

func (s *memoryTrades) ListByPosition(positionID string) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.collect(func(t *models.Trade) bool {
		return t.PositionID != nil && *t.PositionID == positionID
	})
	// Chains are displayed oldest first.
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].CreatedAt.Before(trades[j].CreatedAt)
	})
	return trades, nil
}

func (s *memoryTrades) ListExpired(asOf string) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(t *models.Trade) bool {
		return t.Status == models.TradeStatusClosed &&
			t.ExpirationStockPrice == nil &&
			t.HasExpiredOptionLeg(asOf)
	}), nil
}

func (s *memoryTrades) ToggleLike(tradeID string, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[tradeID]
	if !ok {
		return false, ErrTradeNotFound
	}

	if t.Likes.Contains(userID) {
		next := make(models.UserIDList, 0, len(t.Likes)-1)
		for _, id := range t.Likes {
			if id != userID {
				next = append(next, id)
			}
		}
		t.Likes = next
		return false, nil
	}
	t.Likes = append(t.Likes, userID)
	return true, nil
}

func (s *memoryTrades) ToggleShare(tradeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[tradeID]
	if !ok {
		return false, ErrTradeNotFound
	}
	t.Shared = !t.Shared
	return t.Shared, nil
}

func (s *memoryTrades) IncrementCommentCount(tradeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	t.CommentCount++
	return nil
}

func (s *memoryTrades) SetExpirationData(tradeID string, stockPrice, theoreticalValue, missedPnl float64) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[tradeID]
	if !ok {
		return nil, ErrTradeNotFound
	}
	t.ExpirationStockPrice = &stockPrice
	t.TheoreticalExitValue = &theoreticalValue
	t.MissedPnl = &missedPnl
	return copyTrade(t), nil
}

func (s *memoryTrades) Roll(parentID string, patch ClosePatch, successor *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.trades[parentID]
	if !ok {
		return ErrTradeNotFound
	}
	if parent.Status != models.TradeStatusOpen {
		return ErrTradeNotOpen
	}

	parent.Status = models.TradeStatusClosed
	exitPrice, exitDate := patch.ExitPrice, patch.ExitDate
	pnl, pnlPercent, positionID := patch.Pnl, patch.PnlPercent, patch.PositionID
	parent.ExitPrice = &exitPrice
	parent.ExitDate = &exitDate
	parent.Pnl = &pnl
	parent.PnlPercent = &pnlPercent
	parent.PositionID = &positionID
	parent.ExpirationStockPrice = nil
	parent.TheoreticalExitValue = nil
	parent.MissedPnl = nil

	s.trades[successor.ID] = copyTrade(successor)
	return nil
}

type memoryComments MemoryStore

func (s *memoryComments) Create(comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *comment
	s.comments[comment.ID] = &cp
	return nil
}

func (s *memoryComments) ListByTrade(tradeID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.TradeID == tradeID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *memoryComments) DeleteByTrade(tradeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.comments {
		if c.TradeID == tradeID {
			delete(s.comments, id)
		}
	}
	return nil
}

// copyTrade deep-copies a trade so callers cannot mutate stored state
func copyTrade(t *models.Trade) *models.Trade {
	cp := *t
	cp.Legs = append(models.Legs(nil), t.Legs...)
	cp.Likes = append(models.UserIDList(nil), t.Likes...)
	return &cp
}
