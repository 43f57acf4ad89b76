package domain

import (
	"context"
	"time"
)

// RequestStatus is the state of a participation request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusConfirmed RequestStatus = "CONFIRMED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCanceled  RequestStatus = "CANCELED"
)

// ParticipationRequest is a requester's bid for one of an event's capacity
// slots. A requester holds at most one request per event, in any status.
// swagger:model ParticipationRequest
type ParticipationRequest struct {
	ID          int64         `json:"id"`
	EventID     int64         `json:"event_id"`
	RequesterID int64         `json:"requester_id"`
	Status      RequestStatus `json:"status"`
	Created     time.Time     `json:"created"`
}

// NewParticipationRequest returns a request in the given initial status.
func NewParticipationRequest(eventID, requesterID int64, status RequestStatus, created time.Time) *ParticipationRequest {
	return &ParticipationRequest{
		EventID:     eventID,
		RequesterID: requesterID,
		Status:      status,
		Created:     created,
	}
}

// RequestStatusUpdateResult partitions a batch update's requests by their
// final status.
type RequestStatusUpdateResult struct {
	Confirmed []*ParticipationRequest `json:"confirmed_requests"`
	Rejected  []*ParticipationRequest `json:"rejected_requests"`
}

// RequestRepository defines storage operations for participation requests.
// ListByIDs returns the found requests in the order of the ids argument;
// ids without a matching row are skipped.
type RequestRepository interface {
	Create(ctx context.Context, req *ParticipationRequest) error
	GetByID(ctx context.Context, id int64) (*ParticipationRequest, error)
	ExistsByEventAndRequester(ctx context.Context, eventID, requesterID int64) (bool, error)
	ListByRequester(ctx context.Context, requesterID int64) ([]*ParticipationRequest, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*ParticipationRequest, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*ParticipationRequest, error)
	UpdateStatus(ctx context.Context, id int64, status RequestStatus) error
}

// RequestService defines the participation request manager: admission,
// cancellation, and capacity-aware batch confirmation. Every operation that
// reads and writes an event's ConfirmedRequests runs inside a per-event
// serialized transaction.
type RequestService interface {
	AddRequest(ctx context.Context, requesterID, eventID int64) (*ParticipationRequest, error)
	CancelOwnRequest(ctx context.Context, requesterID, requestID int64) (*ParticipationRequest, error)
	ListOwnRequests(ctx context.Context, requesterID int64) ([]*ParticipationRequest, error)
	ListEventRequests(ctx context.Context, initiatorID, eventID int64) ([]*ParticipationRequest, error)
	// UpdateEventRequests confirms or rejects the given PENDING requests on
	// an owned event. Requests are processed in the order of requestIDs;
	// once the participant limit fills mid-batch, the remaining requests are
	// rejected. Any non-PENDING request aborts the whole batch.
	UpdateEventRequests(ctx context.Context, initiatorID, eventID int64, requestIDs []int64, status RequestStatus) (*RequestStatusUpdateResult, error)
}
