package domain

import "context"

// MaxBulkLookup is the largest batch the bulk lookup endpoint accepts.
const MaxBulkLookup = 100

// PostcodeLocation is a resolved postcode. Administrative fields are nil when
// the lookup service did not report them (e.g. offshore postcodes have no region).
type PostcodeLocation struct {
	Postcode      string        `json:"postcode"`
	Coordinate    GeoCoordinate `json:"coordinate"`
	Region        *string       `json:"region"`
	Country       *string       `json:"country"`
	AdminDistrict *string       `json:"admin_district"`
}

// LookupResult is the outcome of resolving one postcode. Found=false means the
// lookup service confirmed the postcode does not exist.
type LookupResult struct {
	Query    string           `json:"query"` // normalized postcode
	Found    bool             `json:"found"`
	Location PostcodeLocation `json:"location"`
}

// NotFound builds the absence value for a normalized postcode.
func NotFound(postcode string) LookupResult {
	return LookupResult{Query: postcode}
}

// Resolver turns postcodes into locations. Implementations normalize input
// themselves and return ErrInvalidFormat without doing any I/O on bad input.
type Resolver interface {
	// Lookup resolves a single postcode.
	Lookup(ctx context.Context, postcode string) (LookupResult, error)

	// BulkLookup resolves up to MaxBulkLookup postcodes. The result is keyed by
	// normalized postcode and has an entry for every distinct input.
	BulkLookup(ctx context.Context, postcodes []string) (map[string]LookupResult, error)
}
