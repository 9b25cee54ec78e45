// Package events publishes domain events (registrations, new content,
// deletions, reactions) to a message broker.
//
// Publishing happens after the state change has been stored. A publish
// failure is logged by the caller and never undoes or fails the request:
// events are notifications, not the source of truth.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Type names an event. The values are the "type" field on the wire.
type Type string

const (
	UserRegistered  Type = "user.registered"
	UserDeleted     Type = "user.deleted"
	PostCreated     Type = "post.created"
	PostDeleted     Type = "post.deleted"
	StoryCreated    Type = "story.created"
	StoryDeleted    Type = "story.deleted"
	CommentCreated  Type = "comment.created"
	CommentDeleted  Type = "comment.deleted"
	ReactionToggled Type = "reaction.toggled"
)

// Event is one published message. SubjectID is also the broker message key,
// so all events about one entity land on the same partition.
type Event struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	ActorID   string            `json:"actor"`
	SubjectID string            `json:"subject"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Time      time.Time         `json:"time"`
}

// New stamps an event with an id and the current time.
func New(t Type, actorID, subjectID string, attrs map[string]string) Event {
	return Event{
		ID:        xid.New().String(),
		Type:      t,
		ActorID:   actorID,
		SubjectID: subjectID,
		Attrs:     attrs,
		Time:      time.Now().UTC(),
	}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the types of the recorded events, in order.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}
