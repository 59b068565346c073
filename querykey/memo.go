package querykey

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Memo hands out reference-stable keys: repeated calls with structurally equal
// arguments return the same Key value, not just an equal one. Subscribers that
// compare keys by identity to decide whether to resubscribe rely on this.
//
// Memo is safe for concurrent use.
type Memo struct {
	keys *xsync.MapOf[string, Key]
}

// NewMemo creates an empty memoization table.
func NewMemo() *Memo {
	return &Memo{keys: xsync.NewMapOf[string, Key]()}
}

// Key returns the memoized key for (namespace, operation, params), building
// and caching it on first use. Params may be nil.
func (m *Memo) Key(ns Namespace, operation string, params any) Key {
	built := m.build(ns, operation, params)
	sig := Encode(built)
	if cached, ok := m.keys.Load(sig); ok {
		return cached
	}
	actual, _ := m.keys.LoadOrStore(sig, built)
	return actual
}

// Clear drops all memoized keys. Subsequent calls rebuild from scratch and
// remain correct; only reference identity across the clear boundary is lost.
func (m *Memo) Clear() {
	m.keys.Clear()
}

// Size reports the number of memoized keys.
func (m *Memo) Size() int {
	return m.keys.Size()
}

func (m *Memo) build(ns Namespace, operation string, params any) Key {
	key := Key{string(ns), Version, operation}
	if params != nil {
		key = append(key, params)
	}
	return key
}
