// Package match implements the weighted fuzzy matching engine: entity
// detection, field mapping, weight resolution, candidate prefiltering and
// weighted scoring against a core banking extract.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	domatch "github.com/Zaxis018/cbs-match-bot/internal/domain/match"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
	"github.com/Zaxis018/cbs-match-bot/internal/fieldmap"
	"github.com/Zaxis018/cbs-match-bot/internal/metrics"
	"github.com/Zaxis018/cbs-match-bot/internal/weighttable"
)

const (
	// DefaultThreshold is the minimum total score a candidate needs when
	// the caller does not supply one.
	DefaultThreshold = 0.85
	// maxRankedMatches caps how many candidates a matched result carries.
	maxRankedMatches = 50
)

// Service is the matching engine. One instance serves all entity types.
type Service struct {
	weights   WeightResolver
	datasets  DatasetProvider
	log       *zap.Logger
	threshold float64
}

// New creates a matching engine with the given default threshold
// (DefaultThreshold when zero).
func New(weights WeightResolver, datasets DatasetProvider, threshold float64, log *zap.Logger) *Service {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Service{weights: weights, datasets: datasets, threshold: threshold, log: log}
}

// DefaultThresholdValue returns the engine's configured default threshold.
func (s *Service) DefaultThresholdValue() float64 { return s.threshold }

// Match runs the full pipeline for one raw query record. Threshold zero
// means "use the engine default". A record-level failure never escapes as a
// Go error; it comes back as an error-outcome result.
func (s *Service) Match(ctx context.Context, raw record.Raw, threshold float64) (res domatch.Result) {
	start := time.Now()
	et := entity.Type("unknown")
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("match panic recovered", zap.Any("panic", r))
			res = domatch.ErrorResult(fmt.Errorf("match: internal failure: %v", r))
		}
		metrics.MatchTotal.WithLabelValues(string(et), string(res.Outcome())).Inc()
		metrics.MatchDuration.WithLabelValues(string(et)).Observe(time.Since(start).Seconds())
	}()

	if threshold == 0 {
		threshold = s.threshold
	}
	if threshold <= 0 || threshold > 1 {
		return domatch.ErrorResult(fmt.Errorf("%w: %v", domain.ErrInvalidThreshold, threshold))
	}

	detected, err := fieldmap.DetectEntityType(raw)
	if err != nil {
		return domatch.ErrorResult(err)
	}
	et = detected
	query := fieldmap.MapRecord(et, raw)
	conds := query.Conditions()
	if len(conds) == 0 {
		s.log.Info("no usable match criteria", zap.String("entity_type", string(et)))
		return domatch.Unmatched(nil)
	}

	ds := s.datasets.Dataset(et)
	if ds.Empty() {
		s.log.Warn("reference dataset empty", zap.String("entity_type", string(et)))
		return domatch.Unmatched(nil)
	}

	weights, err := s.resolveWeights(et, conds)
	if err != nil {
		return domatch.ErrorResult(err)
	}

	candidates := s.prefilter(ctx, et, query, ds)
	metrics.PrefilterCandidates.WithLabelValues(string(et)).Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return domatch.Unmatched(toFieldWeights(weights))
	}

	scored := s.score(et, query, ds, candidates, weights)

	// Stable sort keeps dataset order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].total > scored[j].total
	})

	var matched []domatch.Candidate
	for _, sc := range scored {
		if sc.total < threshold {
			continue
		}
		matched = append(matched, domatch.NewCandidate(ds.Row(sc.row), sc.total, sc.fields))
		if len(matched) == maxRankedMatches {
			break
		}
	}
	if len(matched) == 0 {
		return domatch.Unmatched(toFieldWeights(weights))
	}

	s.log.Info("matched",
		zap.String("entity_type", string(et)),
		zap.Int("candidates", len(candidates)),
		zap.Int("above_threshold", len(matched)),
		zap.Float64("top_score", matched[0].Total()))
	return domatch.Matched(matched, toFieldWeights(weights))
}

// resolveWeights asks the resolver for the configured vector and falls back
// to an equal split when no weight table was ever loaded. Other resolution
// failures are terminal for the record.
func (s *Service) resolveWeights(et entity.Type, conds []entity.Field) (weighttable.Vector, error) {
	v, err := s.weights.Resolve(et, conds)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, domain.ErrWeightsUnavailable) {
		return nil, err
	}
	s.log.Warn("weight table unavailable, using equal weights",
		zap.String("entity_type", string(et)))
	return weighttable.EqualVector(et, conds)
}

// prefilter narrows the dataset through a cascade of cheap single-field
// comparisons before the full weighted pass. Stages run in fixed order and
// the cascade stops once the candidate set is small enough.
func (s *Service) prefilter(ctx context.Context, et entity.Type, query record.Query, ds *refdata.Dataset) []int {
	candidates := make([]int, ds.Len())
	for i := range candidates {
		candidates[i] = i
	}

	for _, stage := range prefilterStages {
		if ctx.Err() != nil {
			break
		}
		qv := query.Value(stage.field)
		if !qv.Present() {
			continue
		}
		col, ok := fieldmap.RefColumn(et, stage.field)
		if !ok || !ds.HasColumn(col) {
			continue
		}
		candidates = filterByField(stage, qv.String(), col, ds, candidates)
		s.log.Debug("prefilter stage",
			zap.String("field", string(stage.field)),
			zap.Int("remaining", len(candidates)))
		// Cascade stops once a stage has narrowed the set far enough;
		// every applicable stage up to that point runs, dataset size
		// notwithstanding.
		if len(candidates) <= prefilterTarget {
			break
		}
	}
	return candidates
}

func toFieldWeights(v weighttable.Vector) map[entity.Field]float64 {
	out := make(map[entity.Field]float64, len(v))
	for f, w := range v {
		out[f] = w
	}
	return out
}
