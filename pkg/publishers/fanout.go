package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Fanout delivers each event to the publishers subscribed to its type.
type Fanout struct {
	routes []route
}

type route struct {
	pub    Publisher
	events map[string]bool
}

func (r route) wants(eventType string) bool {
	return len(r.events) == 0 || r.events[eventType]
}

// NewFanout returns a fanout routing every event type to each of pubs.
func NewFanout(pubs ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		f.Route(p)
	}
	return f
}

// Route subscribes pub to eventTypes, or to every type when none are given.
func (f *Fanout) Route(pub Publisher, eventTypes ...string) {
	if pub == nil {
		return
	}
	r := route{pub: pub}
	if len(eventTypes) > 0 {
		r.events = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			r.events[t] = true
		}
	}
	f.routes = append(f.routes, r)
}

// Subscribers counts the publishers that receive eventType.
func (f *Fanout) Subscribers(eventType string) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, r := range f.routes {
		if r.wants(eventType) {
			n++
		}
	}
	return n
}

// Publish sends evt to its subscribers and reports how many accepted it.
// Failures are joined; a partial delivery returns both a count and an error.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil {
		return 0, nil
	}
	var (
		delivered int
		errs      []error
	)
	for _, r := range f.routes {
		if !r.wants(evt.Type) {
			continue
		}
		if err := r.pub.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s %s publisher %q: %w", evt.Type, r.pub.Type(), r.pub.ID(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of routed publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.routes)
}

// Close releases publishers that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, r := range f.routes {
		c, ok := r.pub.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher %q: %w", r.pub.ID(), err))
		}
	}
	return errors.Join(errs...)
}
