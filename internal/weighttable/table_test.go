package weighttable

import (
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zaxis018/cbs-match-bot/internal/domain"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
)

func sum(v Vector) float64 {
	total := 0.0
	for _, w := range v {
		total += w
	}
	return total
}

func TestResolveExactRow(t *testing.T) {
	tbl := New([]Row{{
		Entity:     entity.Individual,
		Conditions: []entity.Field{entity.Name, entity.CitizenshipNo},
		Weights: map[entity.Field]float64{
			entity.Name:          0.6,
			entity.CitizenshipNo: 0.4,
		},
	}}, zap.NewNop())

	v, err := tbl.Resolve(entity.Individual, []entity.Field{entity.Name, entity.CitizenshipNo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v[entity.Name] != 0.6 || v[entity.CitizenshipNo] != 0.4 {
		t.Errorf("weights: got %v", v)
	}
	// Fields outside the condition set stay out of the vector.
	if _, ok := v[entity.DOB]; ok {
		t.Error("dob present without being a condition")
	}
	if math.Abs(sum(v)-1) > 0.01 {
		t.Errorf("sum = %v, want 1.00", sum(v))
	}
}

func TestResolveConditionOrderIrrelevant(t *testing.T) {
	tbl := New([]Row{{
		Entity:     entity.Individual,
		Conditions: []entity.Field{entity.Name, entity.DOB},
		Weights:    map[entity.Field]float64{entity.Name: 0.7, entity.DOB: 0.3},
	}}, zap.NewNop())
	a, err := tbl.Resolve(entity.Individual, []entity.Field{entity.Name, entity.DOB})
	if err != nil {
		t.Fatal(err)
	}
	b, err := tbl.Resolve(entity.Individual, []entity.Field{entity.DOB, entity.Name})
	if err != nil {
		t.Fatal(err)
	}
	for f, w := range a {
		if b[f] != w {
			t.Errorf("order changed weight for %v: %v vs %v", f, w, b[f])
		}
	}
}

func TestResolveRenormalizes(t *testing.T) {
	// Row weights sum to 2.0; resolution must renormalize to 1.00.
	tbl := New([]Row{{
		Entity:     entity.Individual,
		Conditions: []entity.Field{entity.Name, entity.FathersName},
		Weights:    map[entity.Field]float64{entity.Name: 1.5, entity.FathersName: 0.5},
	}}, zap.NewNop())
	v, err := tbl.Resolve(entity.Individual, []entity.Field{entity.Name, entity.FathersName})
	if err != nil {
		t.Fatal(err)
	}
	if v[entity.Name] != 0.75 || v[entity.FathersName] != 0.25 {
		t.Errorf("got %v", v)
	}
}

func TestResolveRoundingResidualGoesToLargest(t *testing.T) {
	tbl := New([]Row{{
		Entity: entity.Individual,
		Conditions: []entity.Field{
			entity.Name, entity.FathersName, entity.DOB,
		},
		Weights: map[entity.Field]float64{
			entity.Name:        1,
			entity.FathersName: 1,
			entity.DOB:         1,
		},
	}}, zap.NewNop())
	v, err := tbl.Resolve(entity.Individual, []entity.Field{entity.Name, entity.FathersName, entity.DOB})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sum(v)-1) > 1e-9 {
		t.Errorf("sum = %v, want exactly 1.00 after residual fold", sum(v))
	}
}

func TestResolveEqualFallback(t *testing.T) {
	tbl := New(nil, zap.NewNop())
	v, err := tbl.Resolve(entity.Institution, []entity.Field{entity.Name, entity.PANNo})
	if err != nil {
		t.Fatal(err)
	}
	if v[entity.Name] != 0.5 || v[entity.PANNo] != 0.5 {
		t.Errorf("got %v", v)
	}
	if _, ok := v[entity.RegistrationNo]; ok {
		t.Error("registration_no present without being a condition")
	}

	// Equal split with rounding residual.
	v, err = tbl.Resolve(entity.Individual, []entity.Field{entity.Name, entity.FathersName, entity.DOB})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sum(v)-1) > 0.011 {
		t.Errorf("sum = %v, want ~1.00", sum(v))
	}
}

func TestResolveDiscardsInapplicable(t *testing.T) {
	tbl := New(nil, zap.NewNop())
	// account_no is not applicable to individuals; it must be dropped.
	v, err := tbl.Resolve(entity.Individual, []entity.Field{entity.Name, entity.AccountNo})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v[entity.AccountNo]; ok {
		t.Error("inapplicable field kept in vector")
	}
	if v[entity.Name] != 1 {
		t.Errorf("name: got %v, want 1", v[entity.Name])
	}
}

func TestResolveErrors(t *testing.T) {
	tbl := New(nil, zap.NewNop())
	if _, err := tbl.Resolve(entity.Type("trust"), []entity.Field{entity.Name}); !errors.Is(err, domain.ErrUnknownEntity) {
		t.Errorf("unknown entity: got %v", err)
	}
	if _, err := tbl.Resolve(entity.Individual, []entity.Field{entity.AccountNo}); !errors.Is(err, domain.ErrNoApplicableFields) {
		t.Errorf("no applicable fields: got %v", err)
	}
	if _, err := Empty().Resolve(entity.Individual, []entity.Field{entity.Name}); !errors.Is(err, domain.ErrWeightsUnavailable) {
		t.Errorf("unloaded table: got %v", err)
	}
}

func TestNewKeepsFirstDuplicate(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tbl := New([]Row{
		{
			Entity:     entity.Individual,
			Conditions: []entity.Field{entity.Name},
			Weights:    map[entity.Field]float64{entity.Name: 1},
		},
		{
			Entity:     entity.Individual,
			Conditions: []entity.Field{entity.Name},
			Weights:    map[entity.Field]float64{entity.Name: 0.5},
		},
	}, zap.New(core))
	if tbl.Len() != 1 {
		t.Fatalf("len = %d, want 1", tbl.Len())
	}
	v, err := tbl.Resolve(entity.Individual, []entity.Field{entity.Name})
	if err != nil {
		t.Fatal(err)
	}
	if v[entity.Name] != 1 {
		t.Errorf("got %v, want weight from first row", v[entity.Name])
	}
	if logs.FilterMessage("duplicate weight rows dropped").Len() != 1 {
		t.Errorf("dropped rows not logged: %v", logs.All())
	}
}

func TestResolveDropsNonPositiveWeights(t *testing.T) {
	tbl := New([]Row{
		{
			Entity:     entity.Individual,
			Conditions: []entity.Field{entity.Name, entity.CitizenshipNo},
			Weights: map[entity.Field]float64{
				entity.Name:          -0.5,
				entity.CitizenshipNo: 1.5,
			},
		},
		{
			Entity:     entity.Individual,
			Conditions: []entity.Field{entity.Name, entity.DOB},
			Weights: map[entity.Field]float64{
				entity.Name: -1,
				entity.DOB:  0,
			},
		},
	}, zap.NewNop())

	// A negative weight must not survive renormalization.
	v, err := tbl.Resolve(entity.Individual, []entity.Field{entity.Name, entity.CitizenshipNo})
	if err != nil {
		t.Fatal(err)
	}
	if v[entity.Name] != 0 {
		t.Errorf("name: got %v, want 0", v[entity.Name])
	}
	if v[entity.CitizenshipNo] != 1 {
		t.Errorf("citizenship_no: got %v, want 1", v[entity.CitizenshipNo])
	}

	// A row with no positive weight at all falls back to an equal split.
	v, err = tbl.Resolve(entity.Individual, []entity.Field{entity.Name, entity.DOB})
	if err != nil {
		t.Fatal(err)
	}
	if v[entity.Name] != 0.5 || v[entity.DOB] != 0.5 {
		t.Errorf("got %v, want equal split", v)
	}
}
