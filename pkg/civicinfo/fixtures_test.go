package civicinfo

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const testKey = "test-key"

const electionsBody = `{
  "kind": "civicinfo#electionsQueryResponse",
  "elections": [
    {"id": "2000", "name": "VIP Test Election", "electionDay": "2031-06-06", "ocdDivisionId": "ocd-division/country:us"},
    {"id": "9011", "name": "Ohio Special Election", "electionDay": "2026-11-03", "ocdDivisionId": "ocd-division/country:us/state:oh"}
  ]
}`

const divisionsBody = `{
  "kind": "civicinfo#divisionSearchResponse",
  "results": [
    {"ocdId": "ocd-division/country:us/state:ny/borough:manhattan", "name": "Manhattan borough", "aliases": ["ocd-division/country:us/state:ny/county:new_york"]}
  ]
}`

const keyInvalidBody = `{
  "error": {
    "code": 400,
    "message": "API key not valid. Please pass a valid API key.",
    "errors": [
      {"message": "API key not valid. Please pass a valid API key.", "domain": "usageLimits", "reason": "keyInvalid"}
    ],
    "status": "INVALID_ARGUMENT"
  }
}`

// fakeService mimics the upstream contract and records raw query strings.
type fakeService struct {
	*httptest.Server

	mu       sync.Mutex
	rawQuery []string
	paths    []string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	fs := &fakeService{}
	mux := http.NewServeMux()
	mux.HandleFunc("/civicinfo/v2/elections", func(w http.ResponseWriter, r *http.Request) {
		if !fs.authorize(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, electionsBody)
	})
	mux.HandleFunc("/civicinfo/v2/divisions", func(w http.ResponseWriter, r *http.Request) {
		if !fs.authorize(w, r) {
			return
		}
		if r.URL.Query().Get("query") == "" {
			writeJSON(w, http.StatusOK, `{"kind":"civicinfo#divisionSearchResponse"}`)
			return
		}
		writeJSON(w, http.StatusOK, divisionsBody)
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeService) authorize(w http.ResponseWriter, r *http.Request) bool {
	fs.mu.Lock()
	fs.rawQuery = append(fs.rawQuery, r.URL.RawQuery)
	fs.paths = append(fs.paths, r.URL.Path)
	fs.mu.Unlock()

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if r.URL.Query().Get("key") != testKey {
		writeJSON(w, http.StatusBadRequest, keyInvalidBody)
		return false
	}
	return true
}

func (fs *fakeService) lastRawQuery() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.rawQuery) == 0 {
		return ""
	}
	return fs.rawQuery[len(fs.rawQuery)-1]
}

func (fs *fakeService) baseURL() string {
	return fs.URL + "/civicinfo/v2/"
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
