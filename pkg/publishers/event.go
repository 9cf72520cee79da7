package publishers

import (
	"time"

	"github.com/samvad-hq/civicinfo-lookup/internal/domain"
)

// Event types. Publishers may subscribe to a subset through their "events" list.
const (
	EventTypeElectionDiscovered = "election.discovered"
	EventTypeElectionUpdated    = "election.updated"
)

var knownEventTypes = map[string]bool{
	EventTypeElectionDiscovered: true,
	EventTypeElectionUpdated:    true,
}

// Event represents the payload published downstream.
type Event struct {
	Type        string          `json:"type"`
	Election    domain.Election `json:"election"`
	Fingerprint string          `json:"fingerprint"`
	DetectedAt  time.Time       `json:"detected_at"`
}

// NewElectionEvent builds an event of the given type for election.
func NewElectionEvent(eventType string, election domain.Election) Event {
	return Event{
		Type:        eventType,
		Election:    election,
		Fingerprint: election.Fingerprint(),
		DetectedAt:  time.Now().UTC(),
	}
}

// attributes are copied onto message metadata so subscribers can filter
// without decoding the body.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"event_type":  e.Type,
		"election_id": e.Election.ID,
	}
	if e.Election.ElectionDay != "" {
		attrs["election_day"] = e.Election.ElectionDay
	}
	return attrs
}

// dedupeKey is stable for one election state: re-sending the same
// announcement yields the same key, a changed election a new one.
func (e Event) dedupeKey() string {
	return e.Election.ID + ":" + e.Fingerprint
}
