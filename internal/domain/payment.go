package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAttempt is the append-only log entry of one authorization call.
// Only the last four card digits are ever kept.
type PaymentAttempt struct {
	ID        uuid.UUID       `json:"id"`
	UserID    int64           `json:"user_id"`
	Last4     string          `json:"last4"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Success   bool            `json:"success"`
	CreatedAt time.Time       `json:"created_at"`
}
