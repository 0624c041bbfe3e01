package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// MatchRequest pairs a candidate with a job and asks for the commute distance
// between their postcodes. Unit is optional; the pipeline default applies
// when it is empty.
type MatchRequest struct {
	ID                string `json:"id"`
	CandidatePostcode string `json:"candidate_postcode"`
	JobPostcode       string `json:"job_postcode"`
	Unit              string `json:"unit,omitempty"`
}

// MatchDistance is the annotated match published to the sink topic.
// Distance is nil when either postcode could not be resolved.
type MatchDistance struct {
	ID                string    `json:"id"`
	CandidatePostcode string    `json:"candidate_postcode"`
	JobPostcode       string    `json:"job_postcode"`
	Unit              Unit      `json:"unit"`
	Distance          *float64  `json:"distance"`
	Resolved          bool      `json:"resolved"`
	ProcessedAt       time.Time `json:"processed_at"`
}

// ParseMatchRequest decodes a MatchRequest from a source message. The message
// key is used as the ID when the payload has none.
func ParseMatchRequest(raw RawEvent) (MatchRequest, error) {
	var req MatchRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return MatchRequest{}, fmt.Errorf("parse match request: %w", err)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if req.ID == "" {
		return MatchRequest{}, errors.New("parse match request: missing id")
	}
	return req, nil
}

// NewMatchDistance builds the published record from a request and its
// distance result, stamping ProcessedAt from the package clock.
func NewMatchDistance(req MatchRequest, result DistanceResult) MatchDistance {
	out := MatchDistance{
		ID:                req.ID,
		CandidatePostcode: result.From.Query,
		JobPostcode:       result.To.Query,
		Unit:              result.Unit,
		Resolved:          result.Resolved,
		ProcessedAt:       clock.Now().UTC(),
	}
	if result.Resolved {
		d := result.Distance
		out.Distance = &d
	}
	return out
}

// SerializeMatchDistance marshals a MatchDistance into an output event keyed by match ID.
func SerializeMatchDistance(m MatchDistance) (OutputEvent, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize match distance: %w", err)
	}
	return OutputEvent{
		Key:   []byte(m.ID),
		Value: data,
		Headers: map[string]string{
			"unit":         string(m.Unit),
			"resolved":     strconv.FormatBool(m.Resolved),
			"processed_at": m.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// SerializeMatchRequest marshals a MatchRequest for publishing to the source topic.
func SerializeMatchRequest(req MatchRequest) (OutputEvent, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize match request: %w", err)
	}
	return OutputEvent{Key: []byte(req.ID), Value: data}, nil
}
