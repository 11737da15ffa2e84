package cart

import (
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Line is one product in a cart. ProductID is unique per cart.
type Line struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	Unit       string          `json:"unit,omitempty"`
	SellerName string          `json:"sellerName,omitempty"`
	Image      string          `json:"image,omitempty"`
}

// LineTotal is unit price times quantity, unrounded.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is the persisted form of a cart.
type Snapshot struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Manager holds the in-memory cart for a single user. All mutations go
// through the mutex so the next read observes them.
type Manager struct {
	mu        sync.RWMutex
	lines     []Line
	updatedAt time.Time
	now       func() time.Time
}

// NewManager returns an empty cart.
func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// AddItem merges line into the cart by product id. A zero quantity counts
// as one.
func (m *Manager) AddItem(line Line) error {
	line.ProductID = strings.TrimSpace(line.ProductID)
	if line.ProductID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if line.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if !line.UnitPrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if line.Quantity == 0 {
		line.Quantity = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if idx := m.indexOf(line.ProductID); idx >= 0 {
		m.lines[idx].Quantity += line.Quantity
	} else {
		m.lines = append(m.lines, line)
	}
	m.touch()
	return nil
}

// UpdateQuantity replaces the quantity of an existing line. Values below one
// and unknown products are ignored.
func (m *Manager) UpdateQuantity(productID string, quantity int) {
	if quantity < 1 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(strings.TrimSpace(productID))
	if idx < 0 {
		return
	}
	m.lines[idx].Quantity = quantity
	m.touch()
}

// RemoveItem drops the line for productID if present.
func (m *Manager) RemoveItem(productID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(strings.TrimSpace(productID))
	if idx < 0 {
		return
	}
	m.lines = append(m.lines[:idx], m.lines[idx+1:]...)
	m.touch()
}

// Clear empties the cart.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
	m.touch()
}

// TotalPrice sums every line total without rounding.
func (m *Manager) TotalPrice() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sumLines(m.lines)
}

// Restore replaces the cart with snapshot. Product ids are trimmed, duplicates
// are merged by summing quantities and quantities below one become one.
func (m *Manager) Restore(snapshot Snapshot) {
	merged := make([]Line, 0, len(snapshot.Lines))
	index := make(map[string]int, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		line.ProductID = strings.TrimSpace(line.ProductID)
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		if idx, ok := index[line.ProductID]; ok {
			merged[idx].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = merged
	m.updatedAt = snapshot.UpdatedAt
}

// Snapshot copies the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Lines: copyLines(m.lines), UpdatedAt: m.updatedAt}
}

// Lines returns the lines in insertion order.
func (m *Manager) Lines() []Line {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyLines(m.lines)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines)
}

func (m *Manager) IsEmpty() bool {
	return m.Len() == 0
}

func (m *Manager) indexOf(productID string) int {
	for i, line := range m.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) touch() {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	m.updatedAt = now().UTC()
}

func copyLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func sumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// TotalOf sums the lines of a snapshot.
func TotalOf(snapshot Snapshot) decimal.Decimal {
	return sumLines(snapshot.Lines)
}
