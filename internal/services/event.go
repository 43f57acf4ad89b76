package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"eventboard/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	categoryRepo   domain.CategoryRepository
	stats          domain.StatsClient
	tx             domain.Transactor
	appName        string
	contextTimeout time.Duration
}

// NewEventService creates the event lifecycle manager. appName identifies
// this service in hits recorded with the stats collaborator.
func NewEventService(
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	categoryRepo domain.CategoryRepository,
	stats domain.StatsClient,
	tx domain.Transactor,
	appName string,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		categoryRepo:   categoryRepo,
		stats:          stats,
		tx:             tx,
		appName:        appName,
		contextTimeout: timeout,
	}
}

func (s *eventService) Create(ctx context.Context, initiatorID int64, input domain.NewEventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := checkEventDate(input.EventDate); err != nil {
		return nil, err
	}
	if input.ParticipantLimit < 0 {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.userRepo.GetByID(ctx, initiatorID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get initiator: %w", err)
	}
	if _, err := s.categoryRepo.GetByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	event := &domain.Event{
		Title:             input.Title,
		Annotation:        input.Annotation,
		Description:       input.Description,
		CategoryID:        input.CategoryID,
		InitiatorID:       initiatorID,
		EventDate:         input.EventDate,
		CreatedOn:         time.Now(),
		Location:          input.Location,
		Paid:              input.Paid,
		ParticipantLimit:  input.ParticipantLimit,
		RequestModeration: input.RequestModeration,
		ConfirmedRequests: 0,
		State:             domain.EventStatePending,
		Views:             0,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetOwn(ctx context.Context, initiatorID, eventID int64) (*domain.Event, error) {
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
		return nil, domain.ErrNotFound
	}
	return event, nil
}

func (s *eventService) ListByInitiator(ctx context.Context, initiatorID int64, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.eventRepo.ListByInitiator(ctx, initiatorID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events by initiator: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

func (s *eventService) UpdateByOwner(ctx context.Context, initiatorID, eventID int64, upd domain.OwnerEventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if upd.EventDate != nil {
		if err := checkEventDate(*upd.EventDate); err != nil {
			return nil, err
		}
	}

	var updated *domain.Event
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		event, err := s.eventRepo.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}
		if event.InitiatorID != initiatorID {
			return domain.ErrConflict
		}
		// Published listings cannot be altered by their creator.
		if event.State == domain.EventStatePublished {
			return domain.ErrConflict
		}

		if upd.StateAction != nil {
			switch *upd.StateAction {
			case domain.OwnerActionCancelReview:
				event.State = domain.EventStateCanceled
			case domain.OwnerActionSendToReview:
				event.State = domain.EventStatePending
			default:
				return domain.ErrConflict
			}
		}

		if err := s.applyPatch(ctx, event, upd.EventPatch); err != nil {
			return err
		}
		if err := s.eventRepo.Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *eventService) UpdateByAdmin(ctx context.Context, eventID int64, upd domain.AdminEventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if upd.EventDate != nil {
		if err := checkEventDate(*upd.EventDate); err != nil {
			return nil, err
		}
	}

	var updated *domain.Event
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		event, err := s.eventRepo.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}

		if upd.StateAction != nil {
			switch *upd.StateAction {
			case domain.AdminActionPublish:
				// Publishing requires an explicit moderation decision on a
				// pending event; re-publishing is not a transition.
				if event.State != domain.EventStatePending {
					return domain.ErrConflict
				}
				now := time.Now()
				event.State = domain.EventStatePublished
				event.PublishedOn = &now
			case domain.AdminActionReject:
				if event.State == domain.EventStatePublished {
					return domain.ErrConflict
				}
				event.State = domain.EventStateRejected
			default:
				return domain.ErrConflict
			}
		}

		if err := s.applyPatch(ctx, event, upd.EventPatch); err != nil {
			return err
		}
		if err := s.eventRepo.Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *eventService) ListAdmin(ctx context.Context, filter domain.AdminEventFilter, params domain.PaginationParams) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.RangeStart != nil && filter.RangeEnd != nil && filter.RangeStart.After(*filter.RangeEnd) {
		return nil, domain.ErrInvalidInput
	}
	events, err := s.eventRepo.ListAdmin(ctx, filter, params)
	if err != nil {
		return nil, fmt.Errorf("list events admin: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) ListPublic(ctx context.Context, filter domain.PublicEventFilter, params domain.PaginationParams, view domain.ViewContext) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.RangeStart != nil && filter.RangeEnd != nil && filter.RangeStart.After(*filter.RangeEnd) {
		return nil, domain.ErrInvalidInput
	}

	s.recordHit(ctx, view)

	events, err := s.eventRepo.ListPublic(ctx, filter, params)
	if err != nil {
		return nil, fmt.Errorf("list events public: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) GetPublished(ctx context.Context, eventID int64, view domain.ViewContext) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.State != domain.EventStatePublished {
		return nil, domain.ErrNotFound
	}

	s.recordHit(ctx, view)

	uri := fmt.Sprintf("/events/%d", eventID)
	stats, err := s.stats.Stats(ctx, *event.PublishedOn, time.Now(), []string{uri}, true)
	if err != nil {
		return nil, fmt.Errorf("fetch view stats: %w", err)
	}
	event.Views = 0
	if len(stats) > 0 {
		event.Views = stats[0].Hits
	}
	return event, nil
}

// recordHit reports the read to the stats collaborator. Best effort: a
// failure is logged and never affects the read itself.
func (s *eventService) recordHit(ctx context.Context, view domain.ViewContext) {
	hit := domain.EndpointHit{
		App:       s.appName,
		URI:       view.URI,
		IP:        view.CallerAddr,
		Timestamp: time.Now(),
	}
	if err := s.stats.Hit(ctx, hit); err != nil {
		log.Printf("[STATS] record hit for %s: %v", view.URI, err)
	}
}

// applyPatch merges non-nil patch fields into the event. A category change
// is validated against the category directory.
func (s *eventService) applyPatch(ctx context.Context, event *domain.Event, patch domain.EventPatch) error {
	if patch.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *patch.CategoryID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get category: %w", err)
		}
		event.CategoryID = *patch.CategoryID
	}
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Annotation != nil {
		event.Annotation = *patch.Annotation
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.EventDate != nil {
		event.EventDate = *patch.EventDate
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Paid != nil {
		event.Paid = *patch.Paid
	}
	if patch.ParticipantLimit != nil {
		if *patch.ParticipantLimit < 0 {
			return domain.ErrInvalidInput
		}
		event.ParticipantLimit = *patch.ParticipantLimit
	}
	if patch.RequestModeration != nil {
		event.RequestModeration = *patch.RequestModeration
	}
	return nil
}

func checkEventDate(date time.Time) error {
	if date.Before(time.Now().Add(domain.MinEventLeadTime)) {
		return domain.ErrInvalidInput
	}
	return nil
}
