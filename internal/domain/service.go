package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// DistanceResult is the outcome of a postcode-to-postcode distance query.
// Resolved is false when either postcode does not exist; Distance is then zero.
type DistanceResult struct {
	From     LookupResult `json:"from"`
	To       LookupResult `json:"to"`
	Unit     Unit         `json:"unit"`
	Distance float64      `json:"distance"`
	Resolved bool         `json:"resolved"`
}

// DistanceService composes validation, lookup and distance calculation.
type DistanceService struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewDistanceService creates a DistanceService backed by the given resolver.
func NewDistanceService(resolver Resolver, logger *slog.Logger) *DistanceService {
	return &DistanceService{
		resolver: resolver,
		logger:   logger,
	}
}

// Lookup resolves a single postcode.
func (s *DistanceService) Lookup(ctx context.Context, postcode string) (LookupResult, error) {
	return s.resolver.Lookup(ctx, postcode)
}

// BulkLookup resolves up to MaxBulkLookup postcodes in one call.
func (s *DistanceService) BulkLookup(ctx context.Context, postcodes []string) (map[string]LookupResult, error) {
	if len(postcodes) > MaxBulkLookup {
		return nil, fmt.Errorf("%w: %d postcodes (max %d)", ErrBatchTooLarge, len(postcodes), MaxBulkLookup)
	}
	return s.resolver.BulkLookup(ctx, postcodes)
}

// PostcodeDistance validates both postcodes and the unit, resolves both
// postcodes and returns the distance between them. A postcode that does not
// exist yields an unresolved result rather than an error; the second lookup is
// skipped when the first already failed to resolve.
func (s *DistanceService) PostcodeDistance(ctx context.Context, from, to string, unit Unit) (DistanceResult, error) {
	if !unit.Valid() {
		return DistanceResult{}, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	fromPC, err := NormalizePostcode(from)
	if err != nil {
		return DistanceResult{}, err
	}
	toPC, err := NormalizePostcode(to)
	if err != nil {
		return DistanceResult{}, err
	}

	result := DistanceResult{
		From: NotFound(fromPC),
		To:   NotFound(toPC),
		Unit: unit,
	}

	result.From, err = s.resolve(ctx, fromPC)
	if err != nil {
		return DistanceResult{}, err
	}
	if !result.From.Found {
		s.logger.Debug("postcode unresolvable", "postcode", fromPC)
		return result, nil
	}

	result.To, err = s.resolve(ctx, toPC)
	if err != nil {
		return DistanceResult{}, err
	}
	if !result.To.Found {
		s.logger.Debug("postcode unresolvable", "postcode", toPC)
		return result, nil
	}

	result.Distance, err = Distance(result.From.Location.Coordinate, result.To.Location.Coordinate, unit)
	if err != nil {
		return DistanceResult{}, err
	}
	result.Resolved = true
	return result, nil
}

func (s *DistanceService) resolve(ctx context.Context, postcode string) (LookupResult, error) {
	r, err := s.resolver.Lookup(ctx, postcode)
	if err != nil {
		return LookupResult{}, fmt.Errorf("resolve %s: %w", postcode, err)
	}
	r.Query = postcode
	return r, nil
}
