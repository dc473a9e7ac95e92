package orders

import (
	"github.com/shopspring/decimal"
	"time"
)

type Order struct {
	ID        string
	Status    Status // lihat status.go
	Total     decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Note struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
