package keygen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewPositionID derives an opaque position-chain token from the
// ticker and the current time. Trades created before chain tracking
// existed get their id through this on first roll.
func NewPositionID(ticker string) string {
	return fmt.Sprintf("pos-%s-%d", strings.ToLower(strings.TrimSpace(ticker)), time.Now().UnixMilli())
}

// NewTradeID generates an opaque unique trade identifier
func NewTradeID() string {
	return uuid.New().String()
}

// NewCommentID generates an opaque unique comment identifier
func NewCommentID() string {
	return uuid.New().String()
}
