package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	IsActive    bool
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Product) Purchasable() bool {
	return p.IsActive && !p.IsDeleted
}
