package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	"github.com/couchcryptid/postcode-distance-service/internal/observability"
)

const maxRequestBody = 1 << 20

type locationResponse struct {
	Postcode      string  `json:"postcode"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Region        *string `json:"region"`
	Country       *string `json:"country"`
	AdminDistrict *string `json:"admin_district"`
}

type lookupResponse struct {
	Query    string            `json:"query"`
	Found    bool              `json:"found"`
	Location *locationResponse `json:"location"`
}

type bulkLookupRequest struct {
	Postcodes []string `json:"postcodes"`
}

type bulkLookupResponse struct {
	Results []lookupResponse `json:"results"`
}

type distanceResponse struct {
	From     lookupResponse `json:"from"`
	To       lookupResponse `json:"to"`
	Unit     domain.Unit    `json:"unit"`
	Distance *float64       `json:"distance"`
	Resolved bool           `json:"resolved"`
}

type coordinateDistanceRequest struct {
	From *domain.GeoCoordinate `json:"from"`
	To   *domain.GeoCoordinate `json:"to"`
	Unit string                `json:"unit"`
}

type coordinateDistanceResponse struct {
	From     domain.GeoCoordinate `json:"from"`
	To       domain.GeoCoordinate `json:"to"`
	Unit     domain.Unit          `json:"unit"`
	Distance float64              `json:"distance"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Lookup(r.Context(), r.PathValue("postcode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.Found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, toLookupResponse(result))
}

func (s *Server) handleBulkLookup(w http.ResponseWriter, r *http.Request) {
	var req bulkLookupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	results, err := s.service.BulkLookup(r.Context(), req.Postcodes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Already validated by BulkLookup; used only for response ordering.
	ordered, err := domain.NormalizePostcodes(req.Postcodes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := bulkLookupResponse{Results: make([]lookupResponse, 0, len(ordered))}
	for _, pc := range ordered {
		result, ok := results[pc]
		if !ok {
			result = domain.NotFound(pc)
		}
		resp.Results = append(resp.Results, toLookupResponse(result))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePostcodeDistance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unit, err := s.parseUnit(q.Get("unit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.PostcodeDistance(r.Context(), q.Get("from"), q.Get("to"), unit)
	s.metrics.DistanceRequests.WithLabelValues(string(unit), observability.DistanceOutcome(result.Resolved, err)).Inc()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := distanceResponse{
		From:     toLookupResponse(result.From),
		To:       toLookupResponse(result.To),
		Unit:     result.Unit,
		Resolved: result.Resolved,
	}
	if result.Resolved {
		d := result.Distance
		resp.Distance = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCoordinateDistance(w http.ResponseWriter, r *http.Request) {
	var req coordinateDistanceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.From == nil || req.To == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from and to are required"})
		return
	}
	if err := validateCoordinate(*req.From); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from: " + err.Error()})
		return
	}
	if err := validateCoordinate(*req.To); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to: " + err.Error()})
		return
	}

	unit, err := s.parseUnit(req.Unit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	distance, err := domain.Distance(*req.From, *req.To, unit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coordinateDistanceResponse{
		From:     *req.From,
		To:       *req.To,
		Unit:     unit,
		Distance: distance,
	})
}

// parseUnit falls back to the configured default when no unit is given.
func (s *Server) parseUnit(raw string) (domain.Unit, error) {
	if raw == "" {
		return s.defaultUnit, nil
	}
	return domain.ParseUnit(raw)
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidUnit),
		errors.Is(err, domain.ErrBatchTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNetwork):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func validateCoordinate(c domain.GeoCoordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %v out of range", c.Lon)
	}
	return nil
}

func toLookupResponse(result domain.LookupResult) lookupResponse {
	resp := lookupResponse{Query: result.Query, Found: result.Found}
	if result.Found {
		loc := result.Location
		resp.Location = &locationResponse{
			Postcode:      loc.Postcode,
			Latitude:      loc.Coordinate.Lat,
			Longitude:     loc.Coordinate.Lon,
			Region:        loc.Region,
			Country:       loc.Country,
			AdminDistrict: loc.AdminDistrict,
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
