package ticket

import (
	"context"
	"time"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/match"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
)

// Ticket is one enforcement request pulled from the upstream letter system.
type Ticket struct {
	ID     string
	Record record.Raw
}

// Source is the upstream ticket system: it hands out pending tickets and
// accepts match submissions.
type Source interface {
	FetchPending(ctx context.Context, from, to time.Time) ([]Ticket, error)
	SubmitMatches(ctx context.Context, ticketID string, matches []MatchEntry) error
}

// Matcher runs the matching engine for one raw record.
type Matcher interface {
	Match(ctx context.Context, raw record.Raw, threshold float64) match.Result
}

// MatchEntry is one matched reference row as submitted upstream.
type MatchEntry struct {
	Name        string             `json:"name"`
	Score       float64            `json:"score"`
	FieldScores map[string]float64 `json:"field_scores,omitempty"`
	Record      map[string]string  `json:"record"`
}
