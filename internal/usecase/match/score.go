package match

import (
	"runtime"
	"sync"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
	"github.com/Zaxis018/cbs-match-bot/internal/fieldmap"
	"github.com/Zaxis018/cbs-match-bot/internal/normalize"
	"github.com/Zaxis018/cbs-match-bot/internal/weighttable"
)

// prefilterTarget stops the cascade once this few candidates remain.
const prefilterTarget = 100

type prefilterStage struct {
	field     entity.Field
	threshold float64
}

// prefilterStages is the fixed cascade order: strong discriminators first.
var prefilterStages = []prefilterStage{
	{entity.AccountNo, 0.7},
	{entity.CitizenshipNo, 0.4},
	{entity.RegistrationNo, 0.5},
	{entity.Name, 0.5},
}

// fieldSimilarity compares one query value against one reference value
// using the field's comparison rule.
func fieldSimilarity(f entity.Field, queryValue, refValue string) float64 {
	switch {
	case entity.IsDate(f):
		return normalize.DateSimilarity(queryValue, refValue)
	case f == entity.AccountNo:
		return normalize.TextSimilarity(
			normalize.ZeroPadAccount(queryValue, normalize.AccountWidth),
			normalize.ZeroPadAccount(refValue, normalize.AccountWidth),
		)
	default:
		return normalize.TextSimilarity(queryValue, refValue)
	}
}

// filterByField keeps the candidate rows whose stage field scores at or
// above the stage threshold.
func filterByField(stage prefilterStage, queryValue, column string, ds *refdata.Dataset, candidates []int) []int {
	kept := candidates[:0]
	for _, i := range candidates {
		if fieldSimilarity(stage.field, queryValue, ds.Value(i, column)) >= stage.threshold {
			kept = append(kept, i)
		}
	}
	return kept
}

// scoredRow is one candidate's weighted total with its per-field breakdown.
type scoredRow struct {
	row    int
	total  float64
	fields map[entity.Field]float64
}

// score computes the weighted total for every candidate row. Candidates are
// split into contiguous chunks scored by parallel workers; each worker
// writes only its own index range so the output order is deterministic.
func (s *Service) score(et entity.Type, query record.Query, ds *refdata.Dataset, candidates []int, weights weighttable.Vector) []scoredRow {
	type scoreField struct {
		field  entity.Field
		column string
		value  string
		weight float64
	}
	var fields []scoreField
	for _, f := range query.Conditions() {
		w, ok := weights[f]
		if !ok {
			continue
		}
		col, bound := fieldmap.RefColumn(et, f)
		if !bound || !ds.HasColumn(col) {
			continue
		}
		fields = append(fields, scoreField{field: f, column: col, value: query.Value(f).String(), weight: w})
	}

	out := make([]scoredRow, len(candidates))
	scoreOne := func(slot, row int) {
		fs := make(map[entity.Field]float64, len(fields))
		total := 0.0
		for _, sf := range fields {
			sim := fieldSimilarity(sf.field, sf.value, ds.Value(row, sf.column))
			fs[sf.field] = sim
			total += sf.weight * sim
		}
		out[slot] = scoredRow{row: row, total: total, fields: fs}
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(candidates) {
		workers = len(candidates)
	}
	if workers <= 1 {
		for slot, row := range candidates {
			scoreOne(slot, row)
		}
		return out
	}

	chunk := (len(candidates) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(candidates); start += chunk {
		end := start + chunk
		if end > len(candidates) {
			end = len(candidates)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for slot := start; slot < end; slot++ {
				scoreOne(slot, candidates[slot])
			}
		}(start, end)
	}
	wg.Wait()
	return out
}
