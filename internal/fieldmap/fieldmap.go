// Package fieldmap binds canonical match fields to the column names of the
// core banking extract on one side and the upstream ticket field names on
// the other. It also decides which entity type a raw record describes.
package fieldmap

import (
	"fmt"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
)

// Binding ties one canonical field to its reference column and query field.
type Binding struct {
	Field      entity.Field
	RefColumn  string
	QueryField string
}

var bindings = map[entity.Type][]Binding{
	entity.Individual: {
		{entity.Name, "ACCT_NAME", "person_name"},
		{entity.FathersName, "CUST_FATHERS_NAME", "fathers_name"},
		{entity.GrandfathersName, "CUST_GRANDFATHERS_NAME", "grandfathers_name"},
		{entity.SpouseName, "CUST_SPOUSE_NAME", "spouse_name"},
		{entity.CitizenshipNo, "CTZ_NUMBER", "citizenship_number"},
		{entity.DOB, "CUST_DOB", "dob"},
		{entity.NID, "NID_NUMBER", "nid"},
	},
	entity.Institution: {
		{entity.Name, "ACCT_NAME", "company_name"},
		{entity.PANNo, "PAN", "pan_number"},
		{entity.RegistrationNo, "REGISTRATION", "company_registration_number"},
	},
	entity.Account: {
		{entity.Name, "ACCT_NAME", "person_name"},
		{entity.AccountNo, "ACCT_NUMBER", "account_number"},
	},
}

// Bindings returns the field bindings for an entity type.
func Bindings(t entity.Type) []Binding { return bindings[t] }

// RefColumn returns the reference column bound to a field for the type.
func RefColumn(t entity.Type, f entity.Field) (string, bool) {
	for _, b := range bindings[t] {
		if b.Field == f {
			return b.RefColumn, true
		}
	}
	return "", false
}

// institutionMarkers are query fields whose presence implies an institution
// when the record does not say its type outright.
var institutionMarkers = []string{"company_registration_number", "company_name"}

// DetectEntityType resolves the entity type of a raw record. An explicit
// entity_type value always wins and must parse; otherwise institution
// markers are checked, and the default is individual.
func DetectEntityType(raw record.Raw) (entity.Type, error) {
	if v, ok := raw["entity_type"]; ok {
		if s := record.ScalarOf(v); s.Present() {
			t, err := entity.Parse(s.String())
			if err != nil {
				return "", fmt.Errorf("detect entity type: %w", err)
			}
			return t, nil
		}
	}
	flat := raw.Flatten(entity.Institution)
	for _, marker := range institutionMarkers {
		if record.ScalarOf(flat[marker]).Present() {
			return entity.Institution, nil
		}
	}
	return entity.Individual, nil
}

// MapRecord flattens a raw record for the given type and projects it onto
// the canonical fields, dropping everything unmapped or empty.
func MapRecord(t entity.Type, raw record.Raw) record.Query {
	flat := raw.Flatten(t)
	values := make(map[entity.Field]record.Scalar)
	for _, b := range bindings[t] {
		if s := record.ScalarOf(flat[b.QueryField]); s.Present() {
			values[b.Field] = s
		}
	}
	return record.NewQuery(t, values)
}
