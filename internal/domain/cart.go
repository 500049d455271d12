package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

type CartLine struct {
	ID            int64      `json:"id"`
	CartID        int64      `json:"cart_id"`
	AnalysisID    int64      `json:"analysis_id"`
	Quantity      int        `json:"quantity"`
	ScheduledDate *Date      `json:"scheduled_date"`
	ScheduledTime *TimeOfDay `json:"scheduled_time"`
}

// LineAddition is an add-to-cart request after validation. Nil schedule
// fields leave an existing line's values untouched.
type LineAddition struct {
	AnalysisID    int64
	Quantity      int
	ScheduledDate *Date
	ScheduledTime *TimeOfDay
}

// PricedLine pairs a cart line with the catalog entry it resolved to.
type PricedLine struct {
	Line     CartLine
	Analysis Analysis
}

func (p PricedLine) Subtotal() decimal.Decimal {
	return p.Analysis.Price.Mul(decimal.NewFromInt(int64(p.Line.Quantity)))
}

// TotalPrice is exactly zero for no lines.
func TotalPrice(lines []PricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
