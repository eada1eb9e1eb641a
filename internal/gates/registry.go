package gates

import (
	"context"
	"fmt"
	"sort"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// Validator judges whether a feature folder is ready to enter a phase.
// The error return is for structural failures only (cancelled context,
// permission denied); an unmet gate is a Result with error issues.
type Validator interface {
	Validate(ctx context.Context, folder string) (*Result, error)
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(ctx context.Context, folder string) (*Result, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, folder string) (*Result, error) {
	return f(ctx, folder)
}

// Key identifies the gate for a (type, target phase) pair.
type Key struct {
	Type  ledger.FeatureType
	Phase ledger.Phase
}

func (k Key) String() string {
	return fmt.Sprintf("%s→%s", k.Type, k.Phase)
}

// Registry is the lookup table from (type, target phase) to its gate.
// It is built once at startup and read-only afterwards.
type Registry struct {
	validators map[Key]Validator
}

// NewRegistry returns an empty registry: every phase ungated.
func NewRegistry() *Registry {
	return &Registry{validators: map[Key]Validator{}}
}

// Register adds the gate for (t, target). Each pair resolves to exactly one
// validator, so registering a pair twice is an error.
func (r *Registry) Register(t ledger.FeatureType, target ledger.Phase, v Validator) error {
	if !t.IsValid() {
		return fmt.Errorf("register gate: unknown type %q", t)
	}
	if !target.IsValid() {
		return fmt.Errorf("register gate: unknown phase %q", target)
	}
	k := Key{Type: t, Phase: target}
	if _, exists := r.validators[k]; exists {
		return fmt.Errorf("register gate: %s already registered", k)
	}
	r.validators[k] = v
	return nil
}

// mustRegister is used for the built-in table, where a duplicate is a
// programming error.
func (r *Registry) mustRegister(t ledger.FeatureType, target ledger.Phase, v Validator) {
	if err := r.Register(t, target, v); err != nil {
		panic(err)
	}
}

// Resolve returns the gate for (t, target). The second result is false when
// the phase is ungated.
func (r *Registry) Resolve(t ledger.FeatureType, target ledger.Phase) (Validator, bool) {
	v, ok := r.validators[Key{Type: t, Phase: target}]
	return v, ok
}

// Keys lists the registered pairs in lifecycle order, for introspection.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.validators))
	for k := range r.validators {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return ledger.PhaseIndex(keys[i].Phase) < ledger.PhaseIndex(keys[j].Phase)
	})
	return keys
}
