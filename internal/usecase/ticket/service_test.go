package ticket

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/match"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
)

type fakeSource struct {
	tickets   []Ticket
	fetchErr  error
	submitErr map[string]error
	submitted map[string][]MatchEntry
}

func (f *fakeSource) FetchPending(context.Context, time.Time, time.Time) ([]Ticket, error) {
	return f.tickets, f.fetchErr
}

func (f *fakeSource) SubmitMatches(_ context.Context, ticketID string, matches []MatchEntry) error {
	if err := f.submitErr[ticketID]; err != nil {
		return err
	}
	if f.submitted == nil {
		f.submitted = make(map[string][]MatchEntry)
	}
	f.submitted[ticketID] = matches
	return nil
}

type fakeMatcher struct {
	results map[string]match.Result
}

func (f *fakeMatcher) Match(_ context.Context, raw record.Raw, _ float64) match.Result {
	return f.results[raw["person_name"].(string)]
}

func matchedResult(name string, score float64) match.Result {
	cand := match.NewCandidate(
		refdata.Row{"ACCT_NAME": name},
		score,
		map[entity.Field]float64{entity.Name: score},
	)
	return match.Matched([]match.Candidate{cand}, map[entity.Field]float64{entity.Name: 1})
}

func TestRunMixedOutcomes(t *testing.T) {
	src := &fakeSource{
		tickets: []Ticket{
			{ID: "t1", Record: record.Raw{"person_name": "ram"}},
			{ID: "t2", Record: record.Raw{"person_name": "sita"}},
			{ID: "t3", Record: record.Raw{"person_name": "hari"}},
		},
	}
	m := &fakeMatcher{results: map[string]match.Result{
		"ram":  matchedResult("RAM THAPA", 0.97),
		"sita": match.Unmatched(nil),
		"hari": match.ErrorResult(errors.New("boom")),
	}}

	sum, err := New(src, m, 0, zap.NewNop()).Run(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Summary{Processed: 3, Matched: 1, Unmatched: 1, Errors: 1}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}

	entries := src.submitted["t1"]
	if len(entries) != 1 || entries[0].Name != "RAM THAPA" || entries[0].Score != 0.97 {
		t.Errorf("submitted = %+v", entries)
	}
	if _, ok := src.submitted["t2"]; ok {
		t.Error("unmatched ticket submitted")
	}
}

func TestRunSubmitFailureIsolated(t *testing.T) {
	src := &fakeSource{
		tickets: []Ticket{
			{ID: "t1", Record: record.Raw{"person_name": "ram"}},
			{ID: "t2", Record: record.Raw{"person_name": "shyam"}},
		},
		submitErr: map[string]error{"t1": errors.New("api down")},
	}
	m := &fakeMatcher{results: map[string]match.Result{
		"ram":   matchedResult("RAM", 0.9),
		"shyam": matchedResult("SHYAM", 0.95),
	}}

	sum, err := New(src, m, 0, zap.NewNop()).Run(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Errors != 1 || sum.Matched != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if _, ok := src.submitted["t2"]; !ok {
		t.Error("second ticket not processed after first failed")
	}
}

func TestRunFetchError(t *testing.T) {
	src := &fakeSource{fetchErr: errors.New("unavailable")}
	if _, err := New(src, &fakeMatcher{}, 0, zap.NewNop()).Run(context.Background(), time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestName(t *testing.T) {
	cases := []struct {
		ticket Ticket
		want   string
	}{
		{
			Ticket{ID: "42", Record: record.Raw{"person_name": "Ram Bahadur Thapa"}},
			"ticket_42_RamBahadurThapa",
		},
		{
			Ticket{ID: "7", Record: record.Raw{
				"institution_details": map[string]any{"company_name": "Everest Traders"},
			}},
			"ticket_7_EverestTraders",
		},
		{
			Ticket{ID: "9", Record: record.Raw{}},
			"ticket_9",
		},
	}
	for _, c := range cases {
		if got := Name(c.ticket); got != c.want {
			t.Errorf("Name(%s) = %q, want %q", c.ticket.ID, got, c.want)
		}
	}
}
