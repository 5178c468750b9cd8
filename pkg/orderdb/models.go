package orderdb

import (
	"time"

	"github.com/uptrace/bun"
)

type customerRow struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID               string    `bun:"id,pk"`
	FullName         string    `bun:"full_name,notnull"`
	PrimaryAddress   string    `bun:"primary_address,nullzero"`
	SecondaryAddress string    `bun:"secondary_address,nullzero"`
	UpdatedAt        time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID           string    `bun:"id,pk"`
	Number       string    `bun:"number,notnull"`
	CustomerID   string    `bun:"customer_id,notnull"`
	CustomerName string    `bun:"customer_name"`
	Address      string    `bun:"address,notnull"`
	PlacedAt     time.Time `bun:"placed_at,notnull"`
	ItemsSummary string    `bun:"items_summary,notnull"`
	Total        float64   `bun:"total,notnull"`
	Status       string    `bun:"status,notnull"`
}
