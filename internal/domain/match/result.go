// Package match defines the engine's outcome model. A match run always ends
// in exactly one of three outcomes; callers branch on Outcome rather than on
// a Go error so that per-record failures stay inside the result.
package match

import (
	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
)

// Outcome classifies the result of a match run.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeError     Outcome = "error"
)

// Candidate is a reference row that cleared the threshold, with its total
// score and per-field breakdown.
type Candidate struct {
	row         refdata.Row
	total       float64
	fieldScores map[entity.Field]float64
}

// NewCandidate builds a Candidate.
func NewCandidate(row refdata.Row, total float64, fieldScores map[entity.Field]float64) Candidate {
	return Candidate{row: row, total: total, fieldScores: fieldScores}
}

// Row returns the matched reference row.
func (c Candidate) Row() refdata.Row { return c.row }

// Total returns the weighted total score in [0,1].
func (c Candidate) Total() float64 { return c.total }

// FieldScore returns the similarity score contributed by one field.
func (c Candidate) FieldScore(f entity.Field) (float64, bool) {
	s, ok := c.fieldScores[f]
	return s, ok
}

// FieldScores returns the full per-field score map.
func (c Candidate) FieldScores() map[entity.Field]float64 { return c.fieldScores }

// Result is the outcome of one match run.
type Result struct {
	outcome    Outcome
	candidates []Candidate
	weights    map[entity.Field]float64
	err        error
}

// Matched builds a matched result with ranked candidates and the weight
// vector that produced them.
func Matched(candidates []Candidate, weights map[entity.Field]float64) Result {
	return Result{outcome: OutcomeMatched, candidates: candidates, weights: weights}
}

// Unmatched builds an unmatched result. Weights may be nil when the run
// ended before weight resolution.
func Unmatched(weights map[entity.Field]float64) Result {
	return Result{outcome: OutcomeUnmatched, weights: weights}
}

// ErrorResult builds an error-outcome result carrying the cause.
func ErrorResult(err error) Result {
	return Result{outcome: OutcomeError, err: err}
}

// Outcome returns the run's classification.
func (r Result) Outcome() Outcome { return r.outcome }

// Candidates returns the ranked candidates (empty unless matched).
func (r Result) Candidates() []Candidate { return r.candidates }

// Weights returns the weight vector used for scoring, keyed by field.
func (r Result) Weights() map[entity.Field]float64 { return r.weights }

// Err returns the cause of an error outcome (nil otherwise).
func (r Result) Err() error { return r.err }
