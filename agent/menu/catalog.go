package menu

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Item is one canonical catalog record. Items are immutable after load; a
// refresh replaces the whole snapshot, never a field.
type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Aliases     string  `json:"aliases,omitempty"` // comma-separated
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
}

// AliasList returns the item's aliases normalized to lower case.
func (it Item) AliasList() []string {
	if strings.TrimSpace(it.Aliases) == "" {
		return nil
	}
	parts := strings.Split(it.Aliases, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if a := strings.ToLower(strings.TrimSpace(p)); a != "" {
			out = append(out, a)
		}
	}
	return out
}

type snapshot struct {
	items []Item
}

// Catalog is an atomically swappable menu snapshot. Readers always see a
// complete snapshot; Swap installs a new one wholesale.
type Catalog struct {
	current atomic.Pointer[snapshot]
}

func NewCatalog(items []Item) *Catalog {
	c := &Catalog{}
	c.Swap(items)
	return c
}

// Swap replaces the whole catalog. Alias collisions across items are a data
// error: the first item keeps the alias and the collision is logged.
func (c *Catalog) Swap(items []Item) {
	seen := make(map[string]string, len(items)*2)
	for _, it := range items {
		for _, a := range it.AliasList() {
			if prev, ok := seen[a]; ok && prev != it.Name {
				log.Warn().
					Str("alias", a).
					Str("item", it.Name).
					Str("already_on", prev).
					Msg("menu: duplicate alias, first item wins")
				continue
			}
			seen[a] = it.Name
		}
	}
	cp := make([]Item, len(items))
	copy(cp, items)
	c.current.Store(&snapshot{items: cp})
}

// Items returns the current snapshot's items. Callers must treat the slice as
// read-only.
func (c *Catalog) Items() []Item {
	snap := c.current.Load()
	if snap == nil {
		return nil
	}
	return snap.items
}

// Available returns the items currently marked available, optionally filtered
// by category (case-insensitive). An empty category means no filter.
func (c *Catalog) Available(category string) []Item {
	cat := strings.ToLower(strings.TrimSpace(category))
	var out []Item
	for _, it := range c.Items() {
		if !it.Available {
			continue
		}
		if cat != "" && strings.ToLower(strings.TrimSpace(it.Category)) != cat {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Find returns the item whose canonical name matches exactly
// (case-insensitive), available or not.
func (c *Catalog) Find(name string) (Item, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, it := range c.Items() {
		if strings.ToLower(strings.TrimSpace(it.Name)) == want {
			return it, true
		}
	}
	return Item{}, false
}

// Categories returns the distinct categories of available items, sorted.
func (c *Catalog) Categories() []string {
	set := map[string]struct{}{}
	for _, it := range c.Items() {
		if !it.Available {
			continue
		}
		if cat := strings.TrimSpace(it.Category); cat != "" {
			set[cat] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for cat := range set {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the catalog has no items at all.
func (c *Catalog) Empty() bool {
	return len(c.Items()) == 0
}
