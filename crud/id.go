package crud

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is the entity identifier used throughout the mutation pipeline. It is a
// sum of two cases: a real, server-assigned numeric id, or a pending token
// minted locally for an optimistic row that the server has not confirmed yet.
// Keeping the cases in one type means reconciliation code cannot mistake a
// placeholder for a real row.
type ID struct {
	real  int64
	token string
}

// RealID wraps a server-assigned identifier.
func RealID(n int64) ID {
	return ID{real: n}
}

// PendingID mints a unique placeholder identifier for an optimistic entity.
// Tokens never collide with real ids.
func PendingID() ID {
	return ID{token: "pending-" + uuid.NewString()}
}

// PendingToken rebuilds a pending id from a previously issued token, for
// entity handlers that store the token on the placeholder row.
func PendingToken(token string) ID {
	return ID{token: token}
}

// IsPending reports whether the id is a local placeholder.
func (id ID) IsPending() bool {
	return id.token != ""
}

// IsZero reports whether the id carries no identity at all.
func (id ID) IsZero() bool {
	return id.token == "" && id.real == 0
}

// Int64 returns the real identifier. It is zero for pending ids; check
// IsPending before trusting it.
func (id ID) Int64() int64 {
	return id.real
}

// Segment returns the value to embed in a query key: the numeric id for real
// ids, the token string for pending ones.
func (id ID) Segment() any {
	if id.IsPending() {
		return id.token
	}
	return id.real
}

// Equal compares ids across both cases.
func (id ID) Equal(other ID) bool {
	return id.real == other.real && id.token == other.token
}

func (id ID) String() string {
	if id.IsPending() {
		return id.token
	}
	return fmt.Sprintf("%d", id.real)
}
