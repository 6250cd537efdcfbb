// Package entity defines the entity types named in enforcement letters and
// the canonical identifying fields each type can carry.
package entity

import (
	"fmt"
	"strings"

	"github.com/Zaxis018/cbs-match-bot/internal/domain"
)

// Type discriminates the kind of entity a query record describes.
type Type string

// Known entity types.
const (
	Individual  Type = "individual"
	Institution Type = "institution"
	Account     Type = "account"
)

// Parse validates a raw entity-type string. Leading/trailing space and case
// are ignored.
func Parse(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case Individual, Institution, Account:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownEntity, s)
	}
}

// Valid reports whether t is one of the known entity types.
func (t Type) Valid() bool {
	return t == Individual || t == Institution || t == Account
}

// Field is a canonical identifying attribute, used uniformly across query
// and reference schemas.
type Field string

// Canonical fields.
const (
	Name             Field = "name"
	FathersName      Field = "fathers_name"
	GrandfathersName Field = "grandfathers_name"
	SpouseName       Field = "spouse_name"
	CitizenshipNo    Field = "citizenship_no"
	DOB              Field = "dob"
	PANNo            Field = "pan_no"
	RegistrationNo   Field = "registration_no"
	AccountNo        Field = "account_no"
	NID              Field = "nid"
)

// applicable lists, per entity type, the fields that participate in weight
// resolution. Order is the canonical reporting order.
var applicable = map[Type][]Field{
	Individual:  {Name, FathersName, DOB, CitizenshipNo, GrandfathersName, SpouseName},
	Institution: {Name, PANNo, RegistrationNo},
	Account:     {Name, AccountNo},
}

// Applicable returns the canonical fields that participate in weight
// resolution for the given entity type, in canonical order. The returned
// slice must not be mutated.
func Applicable(t Type) []Field {
	return applicable[t]
}

// IsApplicable reports whether f participates in weight resolution for t.
func IsApplicable(t Type, f Field) bool {
	for _, a := range applicable[t] {
		if a == f {
			return true
		}
	}
	return false
}

// IsDate reports whether the field holds a calendar date and must be
// compared with date similarity rather than text similarity.
func IsDate(f Field) bool {
	return f == DOB
}

// labels maps canonical fields to the human-readable column headers used by
// the weight-distribution source.
var labels = map[Field]string{
	Name:             "Name",
	FathersName:      "Fathers Name",
	GrandfathersName: "Grandfathers Name",
	SpouseName:       "Spouse Name",
	CitizenshipNo:    "Citizenship Number",
	DOB:              "DOB",
	PANNo:            "PAN",
	RegistrationNo:   "Registration",
	AccountNo:        "Account Number",
	NID:              "NID",
}

// Label returns the weight-source column header for f.
func Label(f Field) string {
	return labels[f]
}

// FieldByLabel resolves a weight-source column header (or a canonical field
// name) back to the canonical field. Matching is case- and space-insensitive.
func FieldByLabel(label string) (Field, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	for f, l := range labels {
		if strings.ToLower(l) == key || string(f) == key {
			return f, true
		}
	}
	return "", false
}
