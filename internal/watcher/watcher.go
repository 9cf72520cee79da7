// Package watcher announces elections the first time the service lists them
// and again whenever their date, name or division changes.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samvad-hq/civicinfo-lookup/internal/domain"
	"github.com/samvad-hq/civicinfo-lookup/internal/logger"
	"github.com/samvad-hq/civicinfo-lookup/pkg/civicinfo"
	"github.com/samvad-hq/civicinfo-lookup/pkg/publishers"
)

// UnexpectedStatusError is returned when the listing call does not succeed.
type UnexpectedStatusError struct {
	StatusCode int
	Reason     string
}

func (e *UnexpectedStatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("list elections: status %d (%s)", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("list elections: status %d", e.StatusCode)
}

// Result summarises one pass.
type Result struct {
	Listed    int
	Invalid   int
	New       int
	Updated   int
	Published int
}

// pending is an election that needs announcing and the event type to use.
type pending struct {
	election  domain.Election
	eventType string
}

// Service runs watch passes.
type Service struct {
	source    ElectionSource
	publisher EventPublisher
	deduper   Deduper
	log       logger.Logger
}

// NewService wires a watcher. A nil deduper announces every election as
// discovered on every pass.
func NewService(source ElectionSource, pub EventPublisher, log logger.Logger, deduper Deduper) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		source:    source,
		publisher: pub,
		deduper:   deduper,
		log:       log,
	}
}

// Run executes one pass: list, validate, classify, publish, remember.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var res Result
	if s == nil || s.source == nil {
		return res, fmt.Errorf("watcher service is not initialized")
	}

	resp, err := s.source.ListElections(ctx)
	if err != nil {
		return res, err
	}
	if !resp.OK() {
		return res, &UnexpectedStatusError{StatusCode: resp.StatusCode, Reason: resp.Reason()}
	}
	if kind := resp.Kind(); kind != civicinfo.KindElectionsQuery {
		return res, fmt.Errorf("list elections: unexpected kind %q", kind)
	}

	var listing struct {
		Elections []json.RawMessage `json:"elections"`
	}
	if err := resp.DecodeJSON(&listing); err != nil {
		return res, err
	}
	res.Listed = len(listing.Elections)

	elections := make([]domain.Election, 0, len(listing.Elections))
	for _, raw := range listing.Elections {
		e, err := decodeElection(raw)
		if err == nil {
			err = validateElection(e)
		}
		if err != nil {
			res.Invalid++
			s.log.WarnObj("skipping malformed election", "election_error", map[string]any{
				"election_id": e.ID,
				"error":       err.Error(),
			})
			continue
		}
		elections = append(elections, e)
	}

	queue := s.classify(elections)
	for _, p := range queue {
		if p.eventType == publishers.EventTypeElectionUpdated {
			res.Updated++
		} else {
			res.New++
		}
	}

	var errs []error
	for _, p := range queue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.announce(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("election %s: %w", p.election.ID, err))
			continue
		}
		res.Published++
	}

	s.log.InfoObj("watch pass completed", "watch_result", map[string]any{
		"listed":    res.Listed,
		"invalid":   res.Invalid,
		"new":       res.New,
		"updated":   res.Updated,
		"published": res.Published,
	})
	return res, errors.Join(errs...)
}

// announce publishes p and records its fingerprint once at least one sink
// accepted it, so a fully failed delivery is retried on the next pass.
func (s *Service) announce(ctx context.Context, p pending) error {
	e := p.election
	if s.publisher != nil {
		delivered, err := s.publisher.Publish(ctx, publishers.NewElectionEvent(p.eventType, e))
		if delivered == 0 {
			if err == nil {
				err = fmt.Errorf("no publisher accepted %s", p.eventType)
			}
			return err
		}
		if err != nil {
			s.log.WarnObj("election partially published", "publish_error", map[string]any{
				"election_id": e.ID,
				"event_type":  p.eventType,
				"delivered":   delivered,
				"error":       err.Error(),
			})
		}
	}
	if s.deduper != nil {
		if err := s.deduper.Remember(e.ID, e.Fingerprint()); err != nil {
			return fmt.Errorf("remember election: %w", err)
		}
	}
	return nil
}

// classify keeps elections that are unknown or whose fingerprint changed
// since they were last announced. A failed lookup counts as unknown.
func (s *Service) classify(elections []domain.Election) []pending {
	out := make([]pending, 0, len(elections))
	for _, e := range elections {
		if s.deduper == nil {
			out = append(out, pending{election: e, eventType: publishers.EventTypeElectionDiscovered})
			continue
		}
		previous, found, err := s.deduper.Fingerprint(e.ID)
		if err != nil {
			s.log.WarnObj("seen-store lookup failed", "dedupe_error", map[string]any{
				"election_id": e.ID,
				"error":       err.Error(),
			})
		}
		switch {
		case !found:
			out = append(out, pending{election: e, eventType: publishers.EventTypeElectionDiscovered})
		case previous != e.Fingerprint():
			out = append(out, pending{election: e, eventType: publishers.EventTypeElectionUpdated})
		}
	}
	return out
}

// electionEntry mirrors one element of the elections array. The id is kept
// as text so a malformed id only invalidates its own entry.
type electionEntry struct {
	ID            json.RawMessage `json:"id"`
	Name          string          `json:"name"`
	ElectionDay   string          `json:"electionDay"`
	OCDDivisionID string          `json:"ocdDivisionId"`
}

func decodeElection(raw json.RawMessage) (domain.Election, error) {
	var entry electionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.Election{}, fmt.Errorf("decode election: %w", err)
	}
	e := domain.Election{
		Name:          strings.TrimSpace(entry.Name),
		ElectionDay:   strings.TrimSpace(entry.ElectionDay),
		OCDDivisionID: strings.TrimSpace(entry.OCDDivisionID),
	}
	var err error
	e.ID, err = parseElectionID(entry.ID)
	return e, err
}

// parseElectionID accepts the id as a JSON string or number holding a
// positive integer.
func parseElectionID(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return "", errors.New("id is missing")
		}
		text = num.String()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("id is empty")
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n <= 0 {
		return text, fmt.Errorf("id %q is not a positive integer", text)
	}
	return strconv.FormatInt(n, 10), nil
}

func validateElection(e domain.Election) error {
	switch {
	case e.ID == "":
		return errors.New("id is empty")
	case e.Name == "":
		return errors.New("name is empty")
	case e.OCDDivisionID == "":
		return errors.New("ocdDivisionId is empty")
	case !civicinfo.ValidElectionDay(e.ElectionDay):
		return fmt.Errorf("electionDay %q is not YYYY-MM-DD", e.ElectionDay)
	}
	return nil
}
