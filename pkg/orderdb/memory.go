package orderdb

import (
	"context"
	"sync"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
)

// Memory is an in-process gateway for local runs without Postgres. Same
// merge semantics as the SQL upsert: empty fields never overwrite.
type Memory struct {
	mu        sync.RWMutex
	customers map[string]contractx.CustomerRecord
	orders    []contractx.OrderRecord
}

var _ contractx.PersistenceGateway = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{customers: make(map[string]contractx.CustomerRecord)}
}

func (m *Memory) FindCustomer(_ context.Context, id string) (*contractx.CustomerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.customers[id]
	if !ok {
		return nil, contractx.ErrCustomerNotFound
	}
	return &rec, nil
}

func (m *Memory) UpsertCustomer(_ context.Context, rec contractx.CustomerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.customers[rec.ID]
	cur.ID = rec.ID
	if rec.FullName != "" {
		cur.FullName = rec.FullName
	}
	if rec.PrimaryAddress != "" {
		cur.PrimaryAddress = rec.PrimaryAddress
	}
	if rec.SecondaryAddress != "" {
		cur.SecondaryAddress = rec.SecondaryAddress
	}
	m.customers[rec.ID] = cur
	return nil
}

func (m *Memory) AppendOrder(_ context.Context, rec contractx.OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, rec)
	return nil
}

// Orders returns a copy of everything appended so far.
func (m *Memory) Orders() []contractx.OrderRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]contractx.OrderRecord, len(m.orders))
	copy(out, m.orders)
	return out
}
