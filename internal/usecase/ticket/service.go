// Package ticket pulls pending tickets from the upstream letter system,
// runs each through the matching engine and submits the outcomes back.
package ticket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/match"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
	"github.com/Zaxis018/cbs-match-bot/internal/metrics"
)

// Summary counts per-outcome results of one batch run.
type Summary struct {
	Processed int
	Matched   int
	Unmatched int
	Errors    int
}

// Service is the batch runner.
type Service struct {
	source    Source
	matcher   Matcher
	log       *zap.Logger
	threshold float64
}

// New creates a ticket runner. Threshold zero defers to the engine default.
func New(source Source, matcher Matcher, threshold float64, log *zap.Logger) *Service {
	return &Service{source: source, matcher: matcher, threshold: threshold, log: log}
}

// Run fetches the pending tickets in the window and processes each one.
// A single ticket failing, either in matching or in submission, is counted
// and logged but never aborts the batch.
func (s *Service) Run(ctx context.Context, from, to time.Time) (Summary, error) {
	tickets, err := s.source.FetchPending(ctx, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch pending tickets: %w", err)
	}
	s.log.Info("processing pending tickets",
		zap.Int("count", len(tickets)),
		zap.Time("from", from),
		zap.Time("to", to))

	var sum Summary
	for _, t := range tickets {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		sum.Processed++
		outcome := s.processOne(ctx, t)
		metrics.TicketsProcessedTotal.WithLabelValues(string(outcome)).Inc()
		switch outcome {
		case match.OutcomeMatched:
			sum.Matched++
		case match.OutcomeUnmatched:
			sum.Unmatched++
		default:
			sum.Errors++
		}
	}
	s.log.Info("batch finished",
		zap.Int("processed", sum.Processed),
		zap.Int("matched", sum.Matched),
		zap.Int("unmatched", sum.Unmatched),
		zap.Int("errors", sum.Errors))
	return sum, nil
}

func (s *Service) processOne(ctx context.Context, t Ticket) match.Outcome {
	res := s.matcher.Match(ctx, t.Record, s.threshold)
	log := s.log.With(zap.String("ticket", Name(t)))

	switch res.Outcome() {
	case match.OutcomeError:
		log.Error("ticket match failed", zap.Error(res.Err()))
		return match.OutcomeError
	case match.OutcomeUnmatched:
		log.Info("ticket unmatched")
		return match.OutcomeUnmatched
	}

	entries := make([]MatchEntry, 0, len(res.Candidates()))
	for _, c := range res.Candidates() {
		fs := make(map[string]float64, len(c.FieldScores()))
		for f, score := range c.FieldScores() {
			fs[string(f)] = score
		}
		entries = append(entries, MatchEntry{
			Name:        c.Row()["ACCT_NAME"],
			Score:       c.Total(),
			FieldScores: fs,
			Record:      c.Row(),
		})
	}
	if err := s.source.SubmitMatches(ctx, t.ID, entries); err != nil {
		log.Error("submit matches failed", zap.Error(err))
		return match.OutcomeError
	}
	log.Info("ticket matched", zap.Int("matches", len(entries)), zap.Float64("top_score", entries[0].Score))
	return match.OutcomeMatched
}

// Name builds the canonical ticket label: ticket_<id>_<subject name with
// spaces removed>.
func Name(t Ticket) string {
	name := subjectName(t.Record)
	name = strings.Join(strings.Fields(name), "")
	if name == "" {
		return "ticket_" + t.ID
	}
	return "ticket_" + t.ID + "_" + name
}

func subjectName(raw record.Raw) string {
	for _, t := range []entity.Type{entity.Individual, entity.Institution, entity.Account} {
		flat := raw.Flatten(t)
		for _, key := range []string{"person_name", "company_name"} {
			if s := record.ScalarOf(flat[key]); s.Present() {
				return s.String()
			}
		}
	}
	return ""
}
