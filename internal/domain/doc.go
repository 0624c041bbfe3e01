// Package domain models UK postcodes, their resolved locations, and the
// great-circle distances between them.
//
// # Postcode Format
//
// A UK postcode is an outward code followed by an inward code:
//
//	"BS1 4DJ"  →  outward "BS1" (area BS, district 1), inward "4DJ" (sector 4, unit DJ)
//
// The inward code is always three characters (digit, letter, letter). The
// outward code is two to four characters: one or two area letters, a district
// digit, and an optional trailing letter or digit ("W1A", "EC1V", "M1").
//
// Canonical form is uppercase with exactly one space before the inward code.
// [NormalizePostcode] accepts any casing and any internal whitespace
// ("bs14dj", " BS1  4DJ ", "bs1\t4dj") and rejects anything that does not fit
// the pattern with [ErrInvalidFormat]. Validation is purely local; no lookup
// happens on malformed input.
//
// # Coordinates and Distance
//
// Coordinates are WGS84 decimal degrees as returned by postcodes.io.
// [Distance] uses the haversine formula on a spherical Earth:
//
//	a = sin²(Δφ/2) + cos φ1 · cos φ2 · sin²(Δλ/2)
//	c = 2 · asin(√a)
//	d = R · c
//
// with R = 6371.0 km or 3958.8 miles, rounded to two decimal places. The
// spherical model is within about 0.5% of the ellipsoidal distance, which is
// plenty for commute estimates.
//
// # Lookup Outcomes
//
// A lookup has three outcomes. Found results carry a [PostcodeLocation].
// NotFound (the remote service confirmed the postcode does not exist) is a
// [LookupResult] with Found=false and is not an error. Everything else
// (timeouts, connection failures, unexpected HTTP statuses) is a
// [*NetworkError] that callers may retry.
//
// [DistanceService.PostcodeDistance] folds a NotFound on either side into an
// unresolved [DistanceResult] so batch callers can keep going.
package domain
