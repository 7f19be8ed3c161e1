// Package strtable holds the strings found in an archive and filters them.
package strtable

import (
	"errors"
	"fmt"
	"sync"

	"jarstrings/internal/bytecode"
)

var (
	ErrUnknownID   = errors.New("strtable: unknown string id")
	ErrDuplicateID = errors.New("strtable: duplicate string id")
)

// FoundString is one string literal load found in a class.
type FoundString struct {
	ID         int              `json:"id"`
	Entry      string           `json:"entry"`
	Class      string           `json:"class"`
	Method     string           `json:"method"`
	Descriptor string           `json:"descriptor"`
	InstIndex  int              `json:"inst_index"`
	Offset     int              `json:"offset"`
	Pool       uint16           `json:"pool"` // String constant index
	Utf8       uint16           `json:"utf8"` // backing Utf8 slot
	Value      string           `json:"value"`
	Original   string           `json:"original"`
	Changed    bool             `json:"changed,omitempty"`
	Context    bytecode.Context `json:"context"`
	Kinds      []string         `json:"kinds,omitempty"` // strkind classes of Original

	// Highlight is the filter's token list; set on filter results only.
	Highlight []string `json:"highlight,omitempty"`
}

// Table is the ordered set of found strings. Rows are stored by value and
// replaced whole, so readers never observe a half-updated row.
type Table struct {
	mu   sync.RWMutex
	rows []FoundString
	byID map[int]int
}

// New returns an empty table.
func New() *Table {
	return &Table{byID: make(map[int]int)}
}

// Append adds a row at the end. IDs must be unique.
func (t *Table) Append(fs FoundString) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byID[fs.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, fs.ID)
	}
	if fs.Original == "" {
		fs.Original = fs.Value
	}
	fs.Highlight = nil
	t.byID[fs.ID] = len(t.rows)
	t.rows = append(t.rows, fs)
	return nil
}

// Get returns the row with the given id.
func (t *Table) Get(id int) (FoundString, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.byID[id]
	if !ok {
		return FoundString{}, false
	}
	return t.rows[i], true
}

// Update sets the text of a row. The row is marked changed only when text
// differs from its current value; once changed it stays changed. Reports
// whether the value was modified by this call.
func (t *Table) Update(id int, text string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	row := t.rows[i]
	if row.Value == text {
		return false, nil
	}
	row.Value = text
	row.Changed = true
	t.rows[i] = row
	return true, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Snapshot returns a copy of all rows in table order.
func (t *Table) Snapshot() []FoundString {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]FoundString, len(t.rows))
	copy(out, t.rows)
	return out
}

// Changed returns the changed rows in table order.
func (t *Table) Changed() []FoundString {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []FoundString
	for _, r := range t.rows {
		if r.Changed {
			out = append(out, r)
		}
	}
	return out
}
