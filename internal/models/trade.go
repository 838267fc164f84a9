package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// TradeStatus represents the lifecycle state of a trade
type TradeStatus string

const (
	TradeStatusOpen    TradeStatus = "OPEN"
	TradeStatusClosed  TradeStatus = "CLOSED"
	TradeStatusPartial TradeStatus = "PARTIAL"
)

// LegType is the instrument type of a single leg
type LegType string

const (
	LegTypeCall  LegType = "CALL"
	LegTypePut   LegType = "PUT"
	LegTypeStock LegType = "STOCK"
)

// LegAction is the direction of a single leg
type LegAction string

const (
	LegActionBuy  LegAction = "BUY"
	LegActionSell LegAction = "SELL"
)

// AdjustmentType classifies a trade within a position chain
type AdjustmentType string

const (
	AdjustmentOpen     AdjustmentType = "OPEN"
	AdjustmentRoll     AdjustmentType = "ROLL"
	AdjustmentAdjust   AdjustmentType = "ADJUST"
	AdjustmentCloseOut AdjustmentType = "CLOSE_OUT"
)

// FeedFilter selects a filtered view over a trade collection
type FeedFilter string

const (
	FilterAll     FeedFilter = "all"
	FilterOpen    FeedFilter = "open"
	FilterClosed  FeedFilter = "closed"
	FilterWinners FeedFilter = "winners"
	FilterLosers  FeedFilter = "losers"
)

// TradeLeg is one contract or share lot within a trade.
// Strike and Expiration are absent for STOCK legs; option legs missing
// either are tolerated but skipped in expiration valuation.
type TradeLeg struct {
	Type       LegType   `json:"type"`
	Action     LegAction `json:"action"`
	Strike     *float64  `json:"strike,omitempty"`
	Expiration string    `json:"expiration,omitempty"` // YYYY-MM-DD
	Quantity   int       `json:"quantity"`
	Premium    *float64  `json:"premium,omitempty"`
}

// Legs is a jsonb-stored ordered list of trade legs
type Legs []TradeLeg

// Value implements driver.Valuer
func (l Legs) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

// Scan implements sql.Scanner
func (l *Legs) Scan(value interface{}) error {
	if value == nil {
		*l = Legs{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for Legs")
	}
}

// UserIDList is a jsonb-stored set of user ids (likes)
type UserIDList []uint

// Value implements driver.Valuer
func (u UserIDList) Value() (driver.Value, error) {
	if u == nil {
		return "[]", nil
	}
	b, err := json.Marshal(u)
	return string(b), err
}

// Scan implements sql.Scanner
func (u *UserIDList) Scan(value interface{}) error {
	if value == nil {
		*u = UserIDList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, u)
	case string:
		return json.Unmarshal([]byte(v), u)
	default:
		return errors.New("unsupported type for UserIDList")
	}
}

// Contains reports membership of a user id
func (u UserIDList) Contains(userID uint) bool {
	for _, id := range u {
		if id == userID {
			return true
		}
	}
	return false
}

// Trade represents an options or equity position composed of one or
// more legs. Pnl, PnlPercent and the expiration-tracking fields are
// server-computed and never accepted from clients.
type Trade struct {
	ID       string       `gorm:"primaryKey;size:36" json:"id"`
	UserID   uint         `gorm:"index;not null" json:"userId"`
	Ticker   string       `gorm:"size:10;not null;index" json:"ticker"`
	Strategy StrategyType `gorm:"size:30;not null" json:"strategy"`
	Status   TradeStatus  `gorm:"size:10;not null;default:'OPEN';index" json:"status"`
	Legs     Legs         `gorm:"type:jsonb;not null" json:"legs"`

	EntryPrice float64  `gorm:"type:decimal(20,8);not null" json:"entryPrice"`
	ExitPrice  *float64 `gorm:"type:decimal(20,8)" json:"exitPrice"`
	Quantity   int      `gorm:"not null" json:"quantity"`
	EntryDate  string   `gorm:"size:10;not null" json:"entryDate"` // YYYY-MM-DD
	ExitDate   *string  `gorm:"size:10" json:"exitDate"`

	Notes     string   `gorm:"size:2000" json:"notes"`
	MaxProfit *float64 `gorm:"type:decimal(20,8)" json:"maxProfit"`
	MaxLoss   *float64 `gorm:"type:decimal(20,8)" json:"maxLoss"`

	// Realized results, present iff the trade is CLOSED with an exit price.
	Pnl        *float64 `gorm:"type:decimal(20,8)" json:"pnl"`
	PnlPercent *float64 `gorm:"type:decimal(20,8)" json:"pnlPercent"`

	// Social fields
	Likes        UserIDList `gorm:"type:jsonb" json:"likes"`
	CommentCount int        `gorm:"not null;default:0" json:"commentCount"`
	Shared       bool       `gorm:"not null;default:false;index" json:"shared"`

	// Expiration tracking, populated only by an explicit valuation
	// recompute and cleared on every edit or roll.
	ExpirationStockPrice *float64 `gorm:"type:decimal(20,8)" json:"expirationStockPrice"`
	TheoreticalExitValue *float64 `gorm:"type:decimal(20,8)" json:"theoreticalExitValue"`
	MissedPnl            *float64 `gorm:"type:decimal(20,8)" json:"missedPnl"`

	// Position chain
	PositionID     *string        `gorm:"size:64;index" json:"positionId"`
	AdjustmentType AdjustmentType `gorm:"size:12;not null;default:'OPEN'" json:"adjustmentType"`
	ParentTradeID  *string        `gorm:"size:36;index" json:"parentTradeId"`

	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt"`
}

// TableName specifies the table name for Trade model
func (Trade) TableName() string {
	return "trades"
}

// IsWinner reports whether the trade has a positive realized P&L
func (t *Trade) IsWinner() bool {
	return t.Pnl != nil && *t.Pnl > 0
}

// IsLoser reports whether the trade has a negative realized P&L
func (t *Trade) IsLoser() bool {
	return t.Pnl != nil && *t.Pnl < 0
}

// HasExpiredOptionLeg reports whether any option leg expired on or
// before the given date (YYYY-MM-DD comparison).
func (t *Trade) HasExpiredOptionLeg(asOf string) bool {
	for _, leg := range t.Legs {
		if leg.Type == LegTypeStock || leg.Expiration == "" {
			continue
		}
		if leg.Expiration <= asOf {
			return true
		}
	}
	return false
}

// UserStats is the dashboard aggregation over a trade set
type UserStats struct {
	TotalTrades  int     `json:"totalTrades"`
	WinRate      float64 `json:"winRate"`
	TotalPnl     float64 `json:"totalPnl"`
	BestTrade    *Trade  `json:"bestTrade"`
	WorstTrade   *Trade  `json:"worstTrade"`
	OpenTrades   int     `json:"openTrades"`
	ClosedTrades int     `json:"closedTrades"`
}
