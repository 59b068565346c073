package querykey

import (
	"errors"
	"reflect"
	"testing"
)

// staticSet is a minimal NamespaceSet for validator tests.
type staticSet map[Namespace]bool

func (s staticSet) Has(ns Namespace) bool { return s[ns] }

func TestValidate(t *testing.T) {
	registered := staticSet{"tickets": true, "projects": true}

	deep := make(Key, MaxDepth+1)
	deep[0] = "tickets"
	for i := 1; i < len(deep); i++ {
		deep[i] = i
	}

	tests := []struct {
		name       string
		key        Key
		wantReason string
	}{
		{
			name: "valid detail key",
			key:  New("tickets").Detail(42),
		},
		{
			name: "valid key with struct params",
			key:  New("projects").List(struct{ Status string }{"active"}),
		},
		{
			name:       "empty key",
			key:        Key{},
			wantReason: "key is empty",
		},
		{
			name:       "exceeds max depth",
			key:        deep,
			wantReason: "depth 11 exceeds maximum 10",
		},
		{
			name:       "non-string namespace",
			key:        Key{42, Version},
			wantReason: "first segment is not a namespace string",
		},
		{
			name:       "unregistered namespace",
			key:        Key{"unicorns", Version},
			wantReason: `namespace "unicorns" is not registered`,
		},
		{
			name:       "callable segment",
			key:        Key{"tickets", Version, func() {}},
			wantReason: "segment 2 contains a callable",
		},
		{
			name:       "callable nested in struct",
			key:        Key{"tickets", Version, struct{ Fn func() }{func() {}}},
			wantReason: "segment 2 contains a callable",
		},
		{
			name:       "callable nested in map value",
			key:        Key{"tickets", Version, map[string]any{"fn": func() {}}},
			wantReason: "segment 2 contains a callable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(registered, tt.key)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", verr.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidate_NilSetSkipsRegistrationCheck(t *testing.T) {
	if err := Validate(nil, Key{"anything", Version}); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		pattern Key
		want    bool
	}{
		{
			name:    "exact match",
			key:     Key{"tickets", Version, "detail", int64(42)},
			pattern: Key{"tickets", Version, "detail", int64(42)},
			want:    true,
		},
		{
			name:    "wildcard id",
			key:     Key{"tickets", Version, "detail", int64(42)},
			pattern: Key{"tickets", Version, "detail", Wildcard},
			want:    true,
		},
		{
			name:    "wildcard namespace",
			key:     Key{"tickets", Version, "list"},
			pattern: Key{Wildcard, Version, "list"},
			want:    true,
		},
		{
			name:    "length mismatch",
			key:     Key{"tickets", Version, "detail", int64(42)},
			pattern: Key{"tickets", Version, "detail"},
			want:    false,
		},
		{
			name:    "segment mismatch",
			key:     Key{"tickets", Version, "detail", int64(42)},
			pattern: Key{"tickets", Version, "detail", int64(7)},
			want:    false,
		},
		{
			name:    "typed segments compare deeply",
			key:     Key{"tickets", Version, "list", map[string]string{"status": "open"}},
			pattern: Key{"tickets", Version, "list", map[string]string{"status": "open"}},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchPattern(tt.key, tt.pattern); got != tt.want {
				t.Errorf("MatchPattern() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name   string
		legacy Key
		ns     Namespace
		want   Key
	}{
		{
			name:   "legacy key without version",
			legacy: Key{"tickets", "list"},
			ns:     "tickets",
			want:   Key{"tickets", Version, "list"},
		},
		{
			name:   "already versioned passes through",
			legacy: Key{"tickets", Version, "list"},
			ns:     "tickets",
			want:   Key{"tickets", Version, "list"},
		},
		{
			name:   "empty key becomes namespace root",
			legacy: Key{},
			ns:     "tickets",
			want:   Key{"tickets", Version},
		},
		{
			name:   "foreign head gets namespace prepended",
			legacy: Key{"detail", int64(42)},
			ns:     "tickets",
			want:   Key{"tickets", Version, "detail", int64(42)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Migrate(tt.legacy, tt.ns)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Migrate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	legacy := Key{"tickets", "detail", int64(42)}
	once := Migrate(legacy, "tickets")
	twice := Migrate(once, "tickets")
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Migrate not idempotent: %v vs %v", once, twice)
	}
}

func TestMigrate_ReturnsFreshSlice(t *testing.T) {
	legacy := Key{"tickets", Version, "list"}
	out := Migrate(legacy, "tickets")
	out[2] = "mutated"
	if legacy[2] != "list" {
		t.Error("Migrate aliased the input slice")
	}
}
