// Package weighttable resolves the weight vector applied to a condition
// set. Vectors come from a configured table when an exact condition-set row
// exists, and fall back to equal weights otherwise. Resolved vectors always
// sum to 1.00 within rounding.
package weighttable

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
)

// Vector maps each field of a condition set to its weight. A condition-set
// field that drops out of renormalization carries an explicit zero; fields
// outside the set do not appear.
type Vector map[entity.Field]float64

// Row is one configured weight assignment: for this entity type and exactly
// this condition set, use these weights.
type Row struct {
	Entity     entity.Type
	Conditions []entity.Field
	Weights    map[entity.Field]float64
}

// Table holds the configured weight rows, keyed by entity type and
// canonicalized condition set.
type Table struct {
	rows   map[string]Row
	loaded bool
}

// New builds a Table from configured rows. Duplicate condition sets keep the
// first row seen; later duplicates are dropped with a warning.
func New(rows []Row, log *zap.Logger) *Table {
	t := &Table{rows: make(map[string]Row, len(rows)), loaded: true}
	dropped := 0
	sample := ""
	for _, r := range rows {
		k := key(r.Entity, r.Conditions)
		if _, dup := t.rows[k]; dup {
			dropped++
			if sample == "" {
				sample = k
			}
			continue
		}
		t.rows[k] = r
	}
	if dropped > 0 && log != nil {
		log.Warn("duplicate weight rows dropped",
			zap.Int("count", dropped),
			zap.String("condition_set", sample))
	}
	return t
}

// Empty returns a table with no configured rows. Resolve on an empty table
// reports ErrWeightsUnavailable so callers can apply their own fallback.
func Empty() *Table {
	return &Table{rows: map[string]Row{}}
}

// Loaded reports whether the table was populated from a source.
func (t *Table) Loaded() bool { return t != nil && t.loaded }

// Len returns the number of configured rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func key(e entity.Type, conds []entity.Field) string {
	parts := make([]string, 0, len(conds))
	for _, f := range conds {
		parts = append(parts, strings.ToLower(strings.TrimSpace(string(f))))
	}
	sort.Strings(parts)
	return strings.ToLower(string(e)) + "|" + strings.Join(parts, ",")
}

// Resolve produces the weight vector for a condition set.
//
// Conditions outside the entity's applicable field set are discarded first;
// if nothing remains the resolution fails with ErrNoApplicableFields. When
// an exact row exists for the remaining set, its positive weights are
// renormalized to sum 1 and rounded to two decimals, with the rounding
// residual folded into the largest weight; condition-set fields whose
// configured weight is absent or non-positive stay in the vector at an
// explicit zero. Without an exact row, or when the row has no positive
// weight for the set, the fields share equal weight.
func (t *Table) Resolve(e entity.Type, conds []entity.Field) (Vector, error) {
	kept, err := applicableConditions(e, conds)
	if err != nil {
		return nil, err
	}
	if !t.Loaded() {
		return nil, fmt.Errorf("resolve weights for %s: %w", e, domain.ErrWeightsUnavailable)
	}

	v := make(Vector, len(kept))
	for _, f := range kept {
		v[f] = 0
	}

	if row, ok := t.rows[key(e, kept)]; ok {
		positive := make([]entity.Field, 0, len(kept))
		total := 0.0
		for _, f := range kept {
			if w := row.Weights[f]; w > 0 {
				positive = append(positive, f)
				total += w
			}
		}
		if total > 0 {
			sum := 0.0
			largest := positive[0]
			for _, f := range positive {
				w := round2(row.Weights[f] / total)
				v[f] = w
				sum += w
				if w > v[largest] {
					largest = f
				}
			}
			if residual := round2(1 - sum); residual != 0 {
				v[largest] = round2(v[largest] + residual)
			}
			return v, nil
		}
	}

	// No usable row: distribute equally across the condition set.
	fillEqual(v, kept)
	return v, nil
}

// EqualVector distributes weight equally across the applicable conditions,
// ignoring any configured rows. Callers use it as the fallback when no
// weight table could be loaded.
func EqualVector(e entity.Type, conds []entity.Field) (Vector, error) {
	kept, err := applicableConditions(e, conds)
	if err != nil {
		return nil, err
	}
	v := make(Vector, len(kept))
	fillEqual(v, kept)
	return v, nil
}

// applicableConditions validates the entity type and drops conditions
// outside its applicable field set, deduplicating while preserving order.
func applicableConditions(e entity.Type, conds []entity.Field) ([]entity.Field, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("resolve weights: %q: %w", e, domain.ErrUnknownEntity)
	}
	kept := make([]entity.Field, 0, len(conds))
	seen := make(map[entity.Field]struct{}, len(conds))
	for _, f := range conds {
		if _, dup := seen[f]; dup {
			continue
		}
		if entity.IsApplicable(e, f) {
			kept = append(kept, f)
			seen[f] = struct{}{}
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("resolve weights for %s: %w", e, domain.ErrNoApplicableFields)
	}
	return kept, nil
}

func fillEqual(v Vector, kept []entity.Field) {
	equal := round2(1 / float64(len(kept)))
	sum := 0.0
	for _, f := range kept {
		v[f] = equal
		sum += equal
	}
	if residual := round2(1 - sum); residual != 0 {
		v[kept[0]] = round2(v[kept[0]] + residual)
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
