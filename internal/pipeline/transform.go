package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	"github.com/couchcryptid/postcode-distance-service/internal/observability"
)

// DistanceCalculator resolves two postcodes and measures the distance between them.
type DistanceCalculator interface {
	PostcodeDistance(ctx context.Context, from, to string, unit domain.Unit) (domain.DistanceResult, error)
}

// MatchTransformer implements Transformer by annotating match requests with
// the distance between the candidate and job postcodes.
type MatchTransformer struct {
	distances   DistanceCalculator
	defaultUnit domain.Unit
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewTransformer creates a MatchTransformer. defaultUnit applies to requests
// that do not name a unit.
func NewTransformer(distances DistanceCalculator, defaultUnit domain.Unit, metrics *observability.Metrics, logger *slog.Logger) *MatchTransformer {
	return &MatchTransformer{
		distances:   distances,
		defaultUnit: defaultUnit,
		metrics:     metrics,
		logger:      logger,
	}
}

func (t *MatchTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseMatchRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	unit := t.defaultUnit
	if req.Unit != "" {
		unit, err = domain.ParseUnit(req.Unit)
		if err != nil {
			return domain.OutputEvent{}, err
		}
	}

	result, err := t.distances.PostcodeDistance(ctx, req.CandidatePostcode, req.JobPostcode, unit)
	t.metrics.DistanceRequests.WithLabelValues(string(unit), observability.DistanceOutcome(result.Resolved, err)).Inc()
	if err != nil {
		return domain.OutputEvent{}, err
	}
	if !result.Resolved {
		t.logger.Info("match postcodes unresolvable",
			"id", req.ID,
			"candidate_postcode", result.From.Query,
			"job_postcode", result.To.Query,
		)
	}

	return domain.SerializeMatchDistance(domain.NewMatchDistance(req, result))
}
