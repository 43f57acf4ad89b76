package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"eventboard/internal/domain"
)

type requestService struct {
	requestRepo    domain.RequestRepository
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	tx             domain.Transactor
	contextTimeout time.Duration
}

// NewRequestService creates the participation request manager.
func NewRequestService(
	requestRepo domain.RequestRepository,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	tx domain.Transactor,
	timeout time.Duration,
) domain.RequestService {
	return &requestService{
		requestRepo:    requestRepo,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		emailService:   emailService,
		tx:             tx,
		contextTimeout: timeout,
	}
}

func (s *requestService) AddRequest(ctx context.Context, requesterID, eventID int64) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.userRepo.GetByID(ctx, requesterID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get requester: %w", err)
	}

	var created *domain.ParticipationRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// The row lock serializes admission against concurrent confirmations
		// on the same event, so the capacity check below cannot be stale.
		event, err := s.eventRepo.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}

		exists, err := s.requestRepo.ExistsByEventAndRequester(ctx, eventID, requesterID)
		if err != nil {
			return fmt.Errorf("check existing request: %w", err)
		}
		if exists {
			return domain.ErrConflict
		}
		if event.InitiatorID == requesterID {
			return domain.ErrConflict
		}
		if event.State != domain.EventStatePublished {
			return domain.ErrConflict
		}
		if event.ParticipantLimit > 0 && event.ConfirmedRequests == event.ParticipantLimit {
			return domain.ErrConflict
		}

		status := domain.RequestStatusPending
		if event.ParticipantLimit == 0 || !event.RequestModeration {
			status = domain.RequestStatusConfirmed
		}

		req := domain.NewParticipationRequest(eventID, requesterID, status, time.Now())
		if status == domain.RequestStatusConfirmed {
			event.ConfirmedRequests++
			if err := s.eventRepo.Update(ctx, event); err != nil {
				return fmt.Errorf("update confirmed count: %w", err)
			}
		}
		if err := s.requestRepo.Create(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *requestService) CancelOwnRequest(ctx context.Context, requesterID, requestID int64) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var canceled *domain.ParticipationRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		req, err := s.requestRepo.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get request: %w", err)
		}
		if req.RequesterID != requesterID {
			return domain.ErrConflict
		}
		// Only PENDING and CONFIRMED requests can be canceled; a repeated
		// cancel is a conflict, so the counter can never be decremented twice.
		if req.Status != domain.RequestStatusPending && req.Status != domain.RequestStatusConfirmed {
			return domain.ErrConflict
		}

		if req.Status == domain.RequestStatusConfirmed {
			event, err := s.eventRepo.GetByIDForUpdate(ctx, req.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("get event: %w", err)
			}
			event.ConfirmedRequests--
			if err := s.eventRepo.Update(ctx, event); err != nil {
				return fmt.Errorf("update confirmed count: %w", err)
			}
		}

		req.Status = domain.RequestStatusCanceled
		if err := s.requestRepo.UpdateStatus(ctx, req.ID, domain.RequestStatusCanceled); err != nil {
			return fmt.Errorf("update request status: %w", err)
		}
		canceled = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

func (s *requestService) ListOwnRequests(ctx context.Context, requesterID int64) ([]*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.userRepo.GetByID(ctx, requesterID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get requester: %w", err)
	}
	requests, err := s.requestRepo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if requests == nil {
		requests = []*domain.ParticipationRequest{}
	}
	return requests, nil
}

func (s *requestService) ListEventRequests(ctx context.Context, initiatorID, eventID int64) ([]*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.InitiatorID != initiatorID {
		return nil, domain.ErrInvalidInput
	}
	requests, err := s.requestRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event requests: %w", err)
	}
	if requests == nil {
		requests = []*domain.ParticipationRequest{}
	}
	return requests, nil
}

func (s *requestService) UpdateEventRequests(ctx context.Context, initiatorID, eventID int64, requestIDs []int64, status domain.RequestStatus) (*domain.RequestStatusUpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if status != domain.RequestStatusConfirmed && status != domain.RequestStatusRejected {
		return nil, domain.ErrInvalidInput
	}

	var (
		result     *domain.RequestStatusUpdateResult
		eventTitle string
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		event, err := s.eventRepo.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}
		if event.InitiatorID != initiatorID {
			return domain.ErrInvalidInput
		}
		if status == domain.RequestStatusConfirmed &&
			event.ParticipantLimit > 0 && event.ConfirmedRequests >= event.ParticipantLimit {
			return domain.ErrConflict
		}
		if event.State != domain.EventStatePublished {
			return domain.ErrConflict
		}

		// Loaded in requestIDs order: the overflow policy below is
		// order-sensitive, so the caller's order decides who gets the
		// remaining slots.
		requests, err := s.requestRepo.ListByIDs(ctx, requestIDs)
		if err != nil {
			return fmt.Errorf("list requests by ids: %w", err)
		}

		res := &domain.RequestStatusUpdateResult{
			Confirmed: []*domain.ParticipationRequest{},
			Rejected:  []*domain.ParticipationRequest{},
		}
		for _, req := range requests {
			if req.EventID != eventID {
				// A request from another event must never move this
				// event's counter.
				return domain.ErrConflict
			}
			if req.Status != domain.RequestStatusPending {
				// A single decided request aborts the whole batch; the
				// transaction rolls back anything already applied.
				return domain.ErrConflict
			}
			if status == domain.RequestStatusConfirmed && event.ConfirmedRequests < event.ParticipantLimit {
				req.Status = domain.RequestStatusConfirmed
				event.ConfirmedRequests++
				res.Confirmed = append(res.Confirmed, req)
			} else {
				// Once the limit fills mid-batch (or the target is REJECTED),
				// the remaining requests are rejected rather than left pending.
				req.Status = domain.RequestStatusRejected
				res.Rejected = append(res.Rejected, req)
			}
			if err := s.requestRepo.UpdateStatus(ctx, req.ID, req.Status); err != nil {
				return fmt.Errorf("update request %d status: %w", req.ID, err)
			}
		}

		if err := s.eventRepo.Update(ctx, event); err != nil {
			return fmt.Errorf("update confirmed count: %w", err)
		}
		result = res
		eventTitle = event.Title
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyDecisions(ctx, eventTitle, result)
	return result, nil
}

// notifyDecisions emails each affected requester the outcome. Best effort,
// after commit: a mail failure never invalidates the decision.
func (s *requestService) notifyDecisions(ctx context.Context, eventTitle string, result *domain.RequestStatusUpdateResult) {
	if s.emailService == nil {
		return
	}
	send := func(req *domain.ParticipationRequest, confirmed bool) {
		user, err := s.userRepo.GetByID(ctx, req.RequesterID)
		if err != nil {
			log.Printf("[EMAIL] lookup requester %d: %v", req.RequesterID, err)
			return
		}
		data := &domain.RequestDecisionEmailData{
			Email:      user.Email,
			Name:       user.Name,
			EventTitle: eventTitle,
			Confirmed:  confirmed,
		}
		if err := s.emailService.SendRequestDecision(ctx, data); err != nil {
			log.Printf("[EMAIL] request decision to %s: %v", user.Email, err)
		}
	}
	for _, req := range result.Confirmed {
		send(req, true)
	}
	for _, req := range result.Rejected {
		send(req, false)
	}
}
