package domain

import (
	"context"
	"time"
)

// EventState is the publication state of an event.
type EventState string

const (
	EventStatePending   EventState = "PENDING"
	EventStatePublished EventState = "PUBLISHED"
	EventStateCanceled  EventState = "CANCELED"
	EventStateRejected  EventState = "REJECTED"
)

// OwnerStateAction is a state transition requested by the event initiator.
type OwnerStateAction string

const (
	OwnerActionSendToReview OwnerStateAction = "SEND_TO_REVIEW"
	OwnerActionCancelReview OwnerStateAction = "CANCEL_REVIEW"
)

// AdminStateAction is a moderation decision taken by an administrator.
type AdminStateAction string

const (
	AdminActionPublish AdminStateAction = "PUBLISH_EVENT"
	AdminActionReject  AdminStateAction = "REJECT_EVENT"
)

// MinEventLeadTime is the minimum gap between now and an event's start date,
// enforced on create and on any date change.
const MinEventLeadTime = 2 * time.Hour

// Location is the geographic position of an event.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event represents a publishable event with a bounded number of attendance slots.
// ConfirmedRequests is the denormalized count of CONFIRMED participation
// requests; when ParticipantLimit > 0 it never exceeds the limit. Views is
// transient: it is filled from the stats collaborator on public single-event
// reads and never persisted.
// swagger:model Event
type Event struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	CategoryID        int64      `json:"category_id"`
	InitiatorID       int64      `json:"initiator_id"`
	EventDate         time.Time  `json:"event_date"`
	CreatedOn         time.Time  `json:"created_on"`
	PublishedOn       *time.Time `json:"published_on,omitempty"`
	Location          Location   `json:"location"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participant_limit"`
	RequestModeration bool       `json:"request_moderation"`
	ConfirmedRequests int        `json:"confirmed_requests"`
	State             EventState `json:"state"`
	Views             int64      `json:"views"`
}

// NewEventInput holds the fields accepted when creating an event.
type NewEventInput struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        int64
	EventDate         time.Time
	Location          Location
	Paid              bool
	ParticipantLimit  int
	RequestModeration bool
}

// EventPatch holds optional field updates; nil fields are left unchanged.
type EventPatch struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *int64
	EventDate         *time.Time
	Location          *Location
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
}

// OwnerEventUpdate is an initiator-side event update: a field patch plus an
// optional state action from the owner vocabulary.
type OwnerEventUpdate struct {
	EventPatch
	StateAction *OwnerStateAction
}

// AdminEventUpdate is an administrator-side event update: a field patch plus
// an optional moderation action.
type AdminEventUpdate struct {
	EventPatch
	StateAction *AdminStateAction
}

// AdminEventFilter selects events for the admin search. Empty slices and nil
// bounds are ignored.
type AdminEventFilter struct {
	Users      []int64
	States     []EventState
	Categories []int64
	RangeStart *time.Time
	RangeEnd   *time.Time
}

// PublicEventFilter selects published events for the public search. When no
// RangeStart is given only upcoming events are returned.
type PublicEventFilter struct {
	Text          string
	Categories    []int64
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	SortByDate    bool
}

// ViewContext carries the request attributes forwarded to the stats
// collaborator when recording a hit.
type ViewContext struct {
	URI        string
	CallerAddr string
}

// EventRepository defines storage operations for events. GetByIDForUpdate
// acquires a row-level lock on the event and must be called inside a
// Transactor transaction; it serializes all mutation of ConfirmedRequests
// on that event.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*Event, error)
	Update(ctx context.Context, event *Event) error
	ListByInitiator(ctx context.Context, initiatorID int64, params PaginationParams) ([]*Event, int, error)
	ListAdmin(ctx context.Context, filter AdminEventFilter, params PaginationParams) ([]*Event, error)
	ListPublic(ctx context.Context, filter PublicEventFilter, params PaginationParams) ([]*Event, error)
	ExistsByCategory(ctx context.Context, categoryID int64) (bool, error)
}

// EventService defines the event lifecycle manager plus the public read path
// with view enrichment.
type EventService interface {
	Create(ctx context.Context, initiatorID int64, input NewEventInput) (*Event, error)
	GetOwn(ctx context.Context, initiatorID, eventID int64) (*Event, error)
	ListByInitiator(ctx context.Context, initiatorID int64, params PaginationParams) ([]*Event, int, error)
	UpdateByOwner(ctx context.Context, initiatorID, eventID int64, upd OwnerEventUpdate) (*Event, error)
	UpdateByAdmin(ctx context.Context, eventID int64, upd AdminEventUpdate) (*Event, error)
	ListAdmin(ctx context.Context, filter AdminEventFilter, params PaginationParams) ([]*Event, error)
	ListPublic(ctx context.Context, filter PublicEventFilter, params PaginationParams, view ViewContext) ([]*Event, error)
	// GetPublished returns a PUBLISHED event by id, records a hit with the
	// stats collaborator (best effort), and sets Views to the unique-visit
	// count over [PublishedOn, now). Non-published events are not found.
	GetPublished(ctx context.Context, eventID int64, view ViewContext) (*Event, error)
}
