package domain

import "github.com/shopspring/decimal"

type Lab struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Analysis is a purchasable lab test as seen by the catalog at lookup time.
type Analysis struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Lab   *Lab            `json:"lab"`
}

type User struct {
	ID       int64
	Email    string
	FullName string
	Role     string
}
