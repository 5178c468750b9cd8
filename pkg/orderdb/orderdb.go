package orderdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"4"`
}

// Gateway is the Postgres-backed customer and order store. It implements
// contract.PersistenceGateway; callers own deadlines and retries.
type Gateway struct {
	db *bun.DB
}

var _ contractx.PersistenceGateway = (*Gateway)(nil)

func New(cfg Config) (*Gateway, error) {
	if cfg.DSN == "" {
		return nil, errors.New("orderdb: dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
	))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return &Gateway{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (g *Gateway) Close() error {
	return g.db.Close()
}

// CreateSchema creates the customers and orders tables if they are missing.
// Meant for first boot and tests, not migrations.
func (g *Gateway) CreateSchema(ctx context.Context) error {
	for _, model := range []any{(*customerRow)(nil), (*orderRow)(nil)} {
		if _, err := g.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("orderdb: create table: %w", err)
		}
	}
	return nil
}

func (g *Gateway) FindCustomer(ctx context.Context, id string) (*contractx.CustomerRecord, error) {
	row := new(customerRow)
	err := g.db.NewSelect().Model(row).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("orderdb: find customer: %w", err)
	}
	return &contractx.CustomerRecord{
		ID:               row.ID,
		FullName:         row.FullName,
		PrimaryAddress:   row.PrimaryAddress,
		SecondaryAddress: row.SecondaryAddress,
	}, nil
}

// UpsertCustomer inserts or updates a customer. Empty fields in rec never
// overwrite stored values, so a name-only update keeps the saved addresses.
func (g *Gateway) UpsertCustomer(ctx context.Context, rec contractx.CustomerRecord) error {
	if rec.ID == "" {
		return errors.New("orderdb: customer id is required")
	}
	row := &customerRow{
		ID:               rec.ID,
		FullName:         rec.FullName,
		PrimaryAddress:   rec.PrimaryAddress,
		SecondaryAddress: rec.SecondaryAddress,
		UpdatedAt:        time.Now().UTC(),
	}
	_, err := g.db.NewInsert().Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), c.full_name)").
		Set("primary_address = COALESCE(NULLIF(EXCLUDED.primary_address, ''), c.primary_address)").
		Set("secondary_address = COALESCE(NULLIF(EXCLUDED.secondary_address, ''), c.secondary_address)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("orderdb: upsert customer: %w", err)
	}
	return nil
}

// AppendOrder writes one committed order. Orders are append-only; status
// changes happen outside this module.
func (g *Gateway) AppendOrder(ctx context.Context, rec contractx.OrderRecord) error {
	if rec.ID == "" {
		return errors.New("orderdb: order id is required")
	}
	row := &orderRow{
		ID:           rec.ID,
		Number:       rec.Number,
		CustomerID:   rec.CustomerID,
		CustomerName: rec.CustomerName,
		Address:      rec.Address,
		PlacedAt:     rec.PlacedAt,
		ItemsSummary: rec.ItemsSummary,
		Total:        rec.Total,
		Status:       rec.Status,
	}
	if _, err := g.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("orderdb: append order: %w", err)
	}
	return nil
}
