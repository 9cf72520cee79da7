package watcher

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/samvad-hq/civicinfo-lookup/internal/domain"
	"github.com/samvad-hq/civicinfo-lookup/pkg/civicinfo"
	"github.com/samvad-hq/civicinfo-lookup/pkg/publishers"
)

const listing = `{
  "kind": "civicinfo#electionsQueryResponse",
  "elections": [
    {"id": "2000", "name": "VIP Test Election", "electionDay": "2031-06-06", "ocdDivisionId": "ocd-division/country:us"},
    {"id": "9011", "name": "Ohio Special Election", "electionDay": "2026-11-03", "ocdDivisionId": "ocd-division/country:us/state:oh"},
    {"id": "9012", "name": "Broken Date", "electionDay": "soon", "ocdDivisionId": "ocd-division/country:us/state:ca"}
  ]
}`

// fakeSource returns a preset response or error.
type fakeSource struct {
	resp *civicinfo.Response
	err  error
}

func (f fakeSource) ListElections(context.Context) (*civicinfo.Response, error) {
	return f.resp, f.err
}

// fakePublisher records published events and can reject selected elections.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishers.Event
	failID string
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if evt.Election.ID == f.failID {
		return 0, errors.New("boom")
	}
	f.events = append(f.events, evt)
	return 1, nil
}

// fakeDeduper maps ids to the fingerprint they were announced with.
type fakeDeduper struct {
	mu      sync.Mutex
	seen    map[string]string
	failID  string
	failErr error
}

func (f *fakeDeduper) Fingerprint(id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failID && f.failErr != nil {
		return "", false, f.failErr
	}
	fp, ok := f.seen[id]
	return fp, ok, nil
}

func (f *fakeDeduper) Remember(id, fingerprint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]string)
	}
	f.seen[id] = fingerprint
	return nil
}

// announced2000 returns the listing's 2000 election in its announced form.
func announced2000() domain.Election {
	return domain.Election{ID: "2000", Name: "VIP Test Election", ElectionDay: "2031-06-06", OCDDivisionID: "ocd-division/country:us"}
}

func okSource() fakeSource {
	return fakeSource{resp: &civicinfo.Response{StatusCode: http.StatusOK, Body: []byte(listing)}}
}

func TestRunPublishesFreshElectionsOnly(t *testing.T) {
	deduper := &fakeDeduper{seen: map[string]string{"2000": announced2000().Fingerprint()}}
	pub := &fakePublisher{}

	res, err := NewService(okSource(), pub, nil, deduper).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Listed != 3 || res.Invalid != 1 || res.New != 1 || res.Updated != 0 || res.Published != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(pub.events) != 1 || pub.events[0].Election.ID != "9011" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	if pub.events[0].Election.OCDDivisionID != "ocd-division/country:us/state:oh" {
		t.Fatalf("division id not carried: %+v", pub.events[0].Election)
	}
	if pub.events[0].Type != publishers.EventTypeElectionDiscovered {
		t.Fatalf("expected discovery event, got %s", pub.events[0].Type)
	}
	if deduper.seen["9011"] != pub.events[0].Election.Fingerprint() {
		t.Fatalf("fingerprint not remembered for announced election")
	}
}

func TestRunAnnouncesChangedElectionsAsUpdates(t *testing.T) {
	moved := announced2000()
	moved.ElectionDay = "2031-05-30"
	deduper := &fakeDeduper{seen: map[string]string{
		"2000": moved.Fingerprint(),
		"9011": "stale",
	}}
	pub := &fakePublisher{}

	res, err := NewService(okSource(), pub, nil, deduper).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.New != 0 || res.Updated != 2 || res.Published != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, evt := range pub.events {
		if evt.Type != publishers.EventTypeElectionUpdated {
			t.Fatalf("expected update events, got %s for %s", evt.Type, evt.Election.ID)
		}
	}
	if deduper.seen["2000"] != announced2000().Fingerprint() {
		t.Fatalf("new fingerprint not remembered")
	}
}

func TestRunSkipsElectionsWithUnusableIDs(t *testing.T) {
	body := `{
  "kind": "civicinfo#electionsQueryResponse",
  "elections": [
    {"id": "2000", "name": "VIP Test Election", "electionDay": "2031-06-06", "ocdDivisionId": "ocd-division/country:us"},
    {"id": "", "name": "No Id", "electionDay": "2026-11-03", "ocdDivisionId": "ocd-division/country:us/state:oh"},
    {"id": "abc", "name": "Word Id", "electionDay": "2026-11-03", "ocdDivisionId": "ocd-division/country:us/state:ny"},
    {"name": "Missing Id", "electionDay": "2026-11-03", "ocdDivisionId": "ocd-division/country:us/state:tx"},
    {"id": 9013, "name": "Numeric Id", "electionDay": "2026-11-03", "ocdDivisionId": "ocd-division/country:us/state:wa"},
    null
  ]
}`
	src := fakeSource{resp: &civicinfo.Response{StatusCode: http.StatusOK, Body: []byte(body)}}
	pub := &fakePublisher{}

	res, err := NewService(src, pub, nil, &fakeDeduper{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Listed != 6 || res.Invalid != 4 || res.New != 2 || res.Published != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(pub.events) != 2 || pub.events[0].Election.ID != "2000" || pub.events[1].Election.ID != "9013" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestRunSecondPassIsQuiet(t *testing.T) {
	deduper := &fakeDeduper{}
	pub := &fakePublisher{}
	svc := NewService(okSource(), pub, nil, deduper)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.New != 0 || len(pub.events) != 2 {
		t.Fatalf("expected no new elections on second pass, res=%+v events=%d", res, len(pub.events))
	}
}

func TestRunDoesNotMarkUndeliveredElections(t *testing.T) {
	deduper := &fakeDeduper{}
	pub := &fakePublisher{failID: "2000"}

	res, err := NewService(okSource(), pub, nil, deduper).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "2000") {
		t.Fatalf("expected error mentioning 2000, got %v", err)
	}
	if res.Published != 1 {
		t.Fatalf("expected the other election to publish, got %+v", res)
	}
	if _, ok := deduper.seen["2000"]; ok {
		t.Fatalf("failed election must stay unremembered for retry")
	}
}

func TestClassifyTreatsFailedLookupAsDiscovery(t *testing.T) {
	known := announced2000()
	deduper := &fakeDeduper{
		seen:    map[string]string{"2000": known.Fingerprint()},
		failID:  "9011",
		failErr: errors.New("lookup failed"),
	}
	svc := NewService(okSource(), nil, nil, deduper)

	queue := svc.classify([]domain.Election{known, {ID: "9011"}})
	if len(queue) != 1 || queue[0].election.ID != "9011" || queue[0].eventType != publishers.EventTypeElectionDiscovered {
		t.Fatalf("unexpected classification %#v", queue)
	}
}

func TestRunReportsUpstreamError(t *testing.T) {
	src := fakeSource{resp: &civicinfo.Response{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"error":{"code":400,"message":"bad key","errors":[{"reason":"keyInvalid"}]}}`),
	}}

	_, err := NewService(src, &fakePublisher{}, nil, nil).Run(context.Background())
	var statusErr *UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected UnexpectedStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Reason != civicinfo.ReasonKeyInvalid {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestRunPropagatesTransportError(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	if _, err := NewService(fakeSource{err: boom}, nil, nil, nil).Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestRunRejectsWrongKind(t *testing.T) {
	src := fakeSource{resp: &civicinfo.Response{StatusCode: http.StatusOK, Body: []byte(`{"kind":"civicinfo#divisionSearchResponse"}`)}}
	if _, err := NewService(src, nil, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for unexpected kind")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := &fakePublisher{}
	res, err := NewService(okSource(), pub, nil, &fakeDeduper{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Published != 0 || len(pub.events) != 0 {
		t.Fatalf("nothing should be published after cancellation")
	}
}

func TestUninitializedServiceFails(t *testing.T) {
	var svc *Service
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil service")
	}
}
