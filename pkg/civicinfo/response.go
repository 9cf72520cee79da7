package civicinfo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	civicapi "google.golang.org/api/civicinfo/v2"
	"google.golang.org/api/googleapi"
)

// Discriminators returned in the "kind" field.
const (
	KindElectionsQuery = "civicinfo#electionsQueryResponse"
	KindDivisionSearch = "civicinfo#divisionSearchResponse"
)

// ReasonKeyInvalid is the error reason reported for an unknown API key.
const ReasonKeyInvalid = "keyInvalid"

var electionDayPattern = regexp.MustCompile(`\d\d\d\d-\d\d-\d\d`)

// Response is the transport-level result of one lookup.
type Response struct {
	StatusCode int
	Body       []byte
	// URL is the request URL with the key redacted.
	URL string
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if r == nil {
		return errors.New("civicinfo: nil response")
	}
	if len(r.Body) == 0 {
		return errors.New("civicinfo: empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("civicinfo: decode body: %w", err)
	}
	return nil
}

// Map decodes the body into a generic object.
func (r *Response) Map() (map[string]any, error) {
	var m map[string]any
	if err := r.DecodeJSON(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Kind returns the "kind" discriminator, or "" when absent or undecodable.
func (r *Response) Kind() string {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := r.DecodeJSON(&probe); err != nil {
		return ""
	}
	return probe.Kind
}

// Elections decodes an elections listing.
func (r *Response) Elections() (*civicapi.ElectionsQueryResponse, error) {
	var out civicapi.ElectionsQueryResponse
	if err := r.DecodeJSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Divisions decodes a division search result.
func (r *Response) Divisions() (*civicapi.DivisionSearchResponse, error) {
	var out civicapi.DivisionSearchResponse
	if err := r.DecodeJSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// APIError decodes the {"error": {...}} envelope the service returns on
// failure. The second value is false when the body carries no error object.
func (r *Response) APIError() (*googleapi.Error, bool) {
	var envelope struct {
		Error *googleapi.Error `json:"error"`
	}
	if err := r.DecodeJSON(&envelope); err != nil || envelope.Error == nil {
		return nil, false
	}
	if envelope.Error.Code == 0 && r != nil {
		envelope.Error.Code = r.StatusCode
	}
	envelope.Error.Body = string(r.Body)
	return envelope.Error, true
}

// Reason returns the first errors[].reason of an error response.
func (r *Response) Reason() string {
	apiErr, ok := r.APIError()
	if !ok || len(apiErr.Errors) == 0 {
		return ""
	}
	return apiErr.Errors[0].Reason
}

// ValidElectionDay reports whether day contains a YYYY-MM-DD date, so
// timestamps such as 2026-11-03T00:00:00Z also pass.
func ValidElectionDay(day string) bool {
	return electionDayPattern.MatchString(day)
}
