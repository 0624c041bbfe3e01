package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
)

// readMatchRequests parses id,candidate_postcode,job_postcode[,unit] rows.
// Postcodes are passed through as written; the pipeline validates them.
func readMatchRequests(r io.Reader) ([]domain.MatchRequest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var requests []domain.MatchRequest
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return requests, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "id") {
			continue
		}
		if len(row) < 3 || len(row) > 4 {
			return nil, fmt.Errorf("line %d: expected 3 or 4 columns, got %d", line, len(row))
		}

		req := domain.MatchRequest{
			ID:                strings.TrimSpace(row[0]),
			CandidatePostcode: strings.TrimSpace(row[1]),
			JobPostcode:       strings.TrimSpace(row[2]),
		}
		if req.ID == "" {
			return nil, fmt.Errorf("line %d: missing id", line)
		}
		if len(row) == 4 {
			req.Unit = strings.TrimSpace(row[3])
		}
		requests = append(requests, req)
	}
}
