// Package record models the loosely structured query record supplied by the
// letter-extraction upstream, and its canonical mapped form.
package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
)

// Scalar is an optional scalar value. Upstream records express "missing" in
// many shapes (absent key, null, empty string, NaN); all of them collapse to
// an absent Scalar at ingestion and are never re-checked downstream.
type Scalar struct {
	value   string
	present bool
}

// ScalarOf converts a raw JSON-ish value into a Scalar.
func ScalarOf(v any) Scalar {
	switch x := v.(type) {
	case nil:
		return Scalar{}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Scalar{}
		}
		return Scalar{value: s, present: true}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Scalar{}
		}
		return Scalar{value: strconv.FormatFloat(x, 'f', -1, 64), present: true}
	case int:
		return Scalar{value: strconv.Itoa(x), present: true}
	case int64:
		return Scalar{value: strconv.FormatInt(x, 10), present: true}
	case bool:
		return Scalar{value: strconv.FormatBool(x), present: true}
	default:
		s := strings.TrimSpace(fmt.Sprint(x))
		if s == "" {
			return Scalar{}
		}
		return Scalar{value: s, present: true}
	}
}

// String returns the scalar's canonical string form ("" when absent).
func (s Scalar) String() string { return s.value }

// Present reports whether the scalar carries a usable value.
func (s Scalar) Present() bool { return s.present }

// Raw is the query record as received: field name to arbitrary value,
// possibly with an entity-specific detail sub-object nested one level down.
type Raw map[string]any

// detailKeys names the per-entity-type nested sub-objects that upstream
// systems attach to a ticket.
var detailKeys = map[entity.Type]string{
	entity.Individual:  "individual_details",
	entity.Institution: "institution_details",
	entity.Account:     "account_details",
}

// Flatten merges the entity-specific detail sub-object into the top level.
// Nested keys override top-level keys of the same name. The receiver is not
// modified.
func (r Raw) Flatten(t entity.Type) Raw {
	flat := make(Raw, len(r))
	for k, v := range r {
		flat[k] = v
	}
	if key, ok := detailKeys[t]; ok {
		if nested, ok := r[key].(map[string]any); ok {
			for k, v := range nested {
				flat[k] = v
			}
		}
	}
	return flat
}

// Query is the mapped query record: one entity type plus the canonical
// fields applicable to it. Construct via fieldmap.MapRecord.
type Query struct {
	entityType entity.Type
	values     map[entity.Field]Scalar
}

// NewQuery builds a Query, keeping only present values.
func NewQuery(t entity.Type, values map[entity.Field]Scalar) Query {
	kept := make(map[entity.Field]Scalar, len(values))
	for f, v := range values {
		if v.Present() {
			kept[f] = v
		}
	}
	return Query{entityType: t, values: kept}
}

// EntityType returns the resolved entity type.
func (q Query) EntityType() entity.Type { return q.entityType }

// Value returns the scalar for a canonical field (absent when unmapped).
func (q Query) Value(f entity.Field) Scalar { return q.values[f] }

// Conditions returns the condition set: canonical fields with a usable
// value, in canonical field order so callers see a deterministic sequence.
func (q Query) Conditions() []entity.Field {
	var out []entity.Field
	for _, f := range fieldOrder {
		if q.values[f].Present() {
			out = append(out, f)
		}
	}
	return out
}

// fieldOrder fixes the iteration order for condition sets.
var fieldOrder = []entity.Field{
	entity.Name, entity.FathersName, entity.GrandfathersName, entity.SpouseName,
	entity.CitizenshipNo, entity.DOB, entity.PANNo, entity.RegistrationNo,
	entity.AccountNo, entity.NID,
}
