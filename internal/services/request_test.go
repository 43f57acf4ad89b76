package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRequestRepo is an in-memory RequestRepository for tests.
type fakeRequestRepo struct {
	mu     sync.Mutex
	byID   map[int64]*domain.ParticipationRequest
	nextID int64
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{
		byID:   make(map[int64]*domain.ParticipationRequest),
		nextID: 1,
	}
}

func (f *fakeRequestRepo) add(r *domain.ParticipationRequest) *domain.ParticipationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.nextID
	f.nextID++
	f.byID[r.ID] = r
	return r
}

func (f *fakeRequestRepo) Create(ctx context.Context, r *domain.ParticipationRequest) error {
	f.add(r)
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id int64) (*domain.ParticipationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRequestRepo) ExistsByEventAndRequester(ctx context.Context, eventID, requesterID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.EventID == eventID && r.RequesterID == requesterID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestRepo) ListByRequester(ctx context.Context, requesterID int64) ([]*domain.ParticipationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ParticipationRequest
	for _, r := range f.byID {
		if r.RequesterID == requesterID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByEvent(ctx context.Context, eventID int64) ([]*domain.ParticipationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ParticipationRequest
	for _, r := range f.byID {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByIDs(ctx context.Context, ids []int64) ([]*domain.ParticipationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.ParticipationRequest, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = status
	return nil
}

// fakeEmailService records request decision notifications.
type fakeEmailService struct {
	mu   sync.Mutex
	sent []*domain.RequestDecisionEmailData
}

func (f *fakeEmailService) SendRequestDecision(ctx context.Context, data *domain.RequestDecisionEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

type requestFixture struct {
	eventRepo   *fakeEventRepo
	requestRepo *fakeRequestRepo
	userRepo    *fakeUserRepo
	emails      *fakeEmailService
	svc         domain.RequestService
}

func newRequestFixture(users ...*domain.User) *requestFixture {
	if len(users) == 0 {
		users = []*domain.User{
			{ID: 1, Email: "owner@example.com", Name: "Owner"},
			{ID: 2, Email: "guest@example.com", Name: "Guest"},
		}
	}
	f := &requestFixture{
		eventRepo:   newFakeEventRepo(),
		requestRepo: newFakeRequestRepo(),
		userRepo:    newFakeUserRepo(users...),
		emails:      &fakeEmailService{},
	}
	f.svc = NewRequestService(f.requestRepo, f.eventRepo, f.userRepo, f.emails, &fakeTransactor{}, 5*time.Second)
	return f
}

func (f *requestFixture) publishedEvent(limit int, moderation bool) *domain.Event {
	publishedOn := time.Now().Add(-time.Hour)
	return f.eventRepo.add(&domain.Event{
		Title:             "Meetup",
		InitiatorID:       1,
		EventDate:         futureDate(),
		State:             domain.EventStatePublished,
		PublishedOn:       &publishedOn,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
	})
}

func TestRequestService_AddRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("pending under moderation", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(10, true)

		req, err := f.svc.AddRequest(ctx, 2, event.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusPending, req.Status)

		got, _ := f.eventRepo.GetByID(ctx, event.ID)
		assert.Equal(t, 0, got.ConfirmedRequests, "pending admission must not consume a slot")
	})

	t.Run("auto-confirm when moderation is off", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(10, false)

		req, err := f.svc.AddRequest(ctx, 2, event.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusConfirmed, req.Status)

		got, _ := f.eventRepo.GetByID(ctx, event.ID)
		assert.Equal(t, 1, got.ConfirmedRequests)
	})

	t.Run("auto-confirm when the limit is zero", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(0, true)

		req, err := f.svc.AddRequest(ctx, 2, event.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusConfirmed, req.Status)
	})

	t.Run("duplicate request", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(10, true)

		_, err := f.svc.AddRequest(ctx, 2, event.ID)
		require.NoError(t, err)
		_, err = f.svc.AddRequest(ctx, 2, event.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("own event", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(10, true)

		_, err := f.svc.AddRequest(ctx, 1, event.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("unpublished event", func(t *testing.T) {
		f := newRequestFixture()
		event := f.eventRepo.add(&domain.Event{Title: "Meetup", InitiatorID: 1, State: domain.EventStatePending})

		_, err := f.svc.AddRequest(ctx, 2, event.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("full event", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(1, false)
		event.ConfirmedRequests = 1
		require.NoError(t, f.eventRepo.Update(ctx, event))

		_, err := f.svc.AddRequest(ctx, 2, event.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(10, true)

		_, err := f.svc.AddRequest(ctx, 42, event.ID)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestRequestService_CancelOwnRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel confirmed frees a slot", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(5, false)

		req, err := f.svc.AddRequest(ctx, 2, event.ID)
		require.NoError(t, err)

		canceled, err := f.svc.CancelOwnRequest(ctx, 2, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusCanceled, canceled.Status)

		got, _ := f.eventRepo.GetByID(ctx, event.ID)
		assert.Equal(t, 0, got.ConfirmedRequests)
	})

	t.Run("cancel pending leaves the counter", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(5, true)

		req, err := f.svc.AddRequest(ctx, 2, event.ID)
		require.NoError(t, err)

		_, err = f.svc.CancelOwnRequest(ctx, 2, req.ID)
		require.NoError(t, err)

		got, _ := f.eventRepo.GetByID(ctx, event.ID)
		assert.Equal(t, 0, got.ConfirmedRequests)
	})

	t.Run("repeated cancel is a conflict", func(t *testing.T) {
		f := newRequestFixture()
		event := f.publishedEvent(5, false)

		req, err := f.svc.AddRequest(ctx, 2, event.ID)
		require.NoError(t, err)

		_, err = f.svc.CancelOwnRequest(ctx, 2, req.ID)
		require.NoError(t, err)
		_, err = f.svc.CancelOwnRequest(ctx, 2, req.ID)
		assert.ErrorIs(t, err, domain.ErrConflict, "counter must never be decremented twice")

		got, _ := f.eventRepo.GetByID(ctx, event.ID)
		assert.Equal(t, 0, got.ConfirmedRequests)
	})

	t.Run("someone else's request", func(t *testing.T) {
		f := newRequestFixture(
			&domain.User{ID: 1, Email: "owner@example.com", Name: "Owner"},
			&domain.User{ID: 2, Email: "guest@example.com", Name: "Guest"},
			&domain.User{ID: 3, Email: "other@example.com", Name: "Other"},
		)
		event := f.publishedEvent(5, true)

		req, err := f.svc.AddRequest(ctx, 2, event.ID)
		require.NoError(t, err)

		_, err = f.svc.CancelOwnRequest(ctx, 3, req.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestRequestService_ListEventRequests(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture()
	event := f.publishedEvent(5, true)

	_, err := f.svc.AddRequest(ctx, 2, event.ID)
	require.NoError(t, err)

	requests, err := f.svc.ListEventRequests(ctx, 1, event.ID)
	require.NoError(t, err)
	assert.Len(t, requests, 1)

	_, err = f.svc.ListEventRequests(ctx, 2, event.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "only the initiator may list an event's requests")
}

func TestRequestService_UpdateEventRequests(t *testing.T) {
	ctx := context.Background()

	users := []*domain.User{
		{ID: 1, Email: "owner@example.com", Name: "Owner"},
		{ID: 2, Email: "g2@example.com", Name: "G2"},
		{ID: 3, Email: "g3@example.com", Name: "G3"},
		{ID: 4, Email: "g4@example.com", Name: "G4"},
	}

	t.Run("confirm batch", func(t *testing.T) {
		f := newRequestFixture(users...)
		event := f.publishedEvent(5, true)

		r1, _ := f.svc.AddRequest(ctx, 2, event.ID)
		r2, _ := f.svc.AddRequest(ctx, 3, event.ID)

		result, err := f.svc.UpdateEventRequests(ctx, 1, event.ID, []int64{r1.ID, r2.ID}, domain.RequestStatusConfirmed)
		require.NoError(t, err)
		assert.Len(t, result.Confirmed, 2)
		assert.Empty(t, result.Rejected)

		got, _ := f.eventRepo.GetByID(ctx, event.ID)
		assert.Equal(t, 2, got.ConfirmedRequests)
		assert.Len(t, f.emails.sent, 2)
	})

	t.Run("overflow rejects the tail in caller order", func(t *testing.T) {
		f := newRequestFixture(users...)
		event := f.publishedEvent(1, true)

		r1, _ := f.svc.AddRequest(ctx, 2, event.ID)
		r2, _ := f.svc.AddRequest(ctx, 3, event.ID)

		result, err := f.svc.UpdateEventRequests(ctx, 1, event.ID, []int64{r1.ID, r2.ID}, domain.RequestStatusConfirmed)
		require.NoError(t, err)
		require.Len(t, result.Confirmed, 1)
		require.Len(t, result.Rejected, 1)
		assert.Equal(t, r1.ID, result.Confirmed[0].ID)
		assert.Equal(t, r2.ID, result.Rejected[0].ID)

		got, _ := f.eventRepo.GetByID(ctx, event.ID)
		assert.Equal(t, 1, got.ConfirmedRequests)
	})

	t.Run("pre-flight conflict when already full", func(t *testing.T) {
		f := newRequestFixture(users...)
		event := f.publishedEvent(1, true)

		r1, _ := f.svc.AddRequest(ctx, 2, event.ID)
		r2, _ := f.svc.AddRequest(ctx, 3, event.ID)
		_, err := f.svc.UpdateEventRequests(ctx, 1, event.ID, []int64{r1.ID}, domain.RequestStatusConfirmed)
		require.NoError(t, err)

		_, err = f.svc.UpdateEventRequests(ctx, 1, event.ID, []int64{r2.ID}, domain.RequestStatusConfirmed)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("non-pending request aborts the batch", func(t *testing.T) {
		f := newRequestFixture(users...)
		event := f.publishedEvent(5, true)

		r1, _ := f.svc.AddRequest(ctx, 2, event.ID)
		r2, _ := f.svc.AddRequest(ctx, 3, event.ID)
		_, err := f.svc.CancelOwnRequest(ctx, 3, r2.ID)
		require.NoError(t, err)

		_, err = f.svc.UpdateEventRequests(ctx, 1, event.ID, []int64{r1.ID, r2.ID}, domain.RequestStatusConfirmed)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("reject batch", func(t *testing.T) {
		f := newRequestFixture(users...)
		event := f.publishedEvent(5, true)

		r1, _ := f.svc.AddRequest(ctx, 2, event.ID)

		result, err := f.svc.UpdateEventRequests(ctx, 1, event.ID, []int64{r1.ID}, domain.RequestStatusRejected)
		require.NoError(t, err)
		assert.Empty(t, result.Confirmed)
		require.Len(t, result.Rejected, 1)

		got, _ := f.eventRepo.GetByID(ctx, event.ID)
		assert.Equal(t, 0, got.ConfirmedRequests)
	})

	t.Run("request from another event aborts the batch", func(t *testing.T) {
		f := newRequestFixture(users...)
		eventA := f.publishedEvent(5, true)
		publishedOn := time.Now().Add(-time.Hour)
		eventB := f.eventRepo.add(&domain.Event{
			Title:             "Other meetup",
			InitiatorID:       4,
			EventDate:         futureDate(),
			State:             domain.EventStatePublished,
			PublishedOn:       &publishedOn,
			ParticipantLimit:  5,
			RequestModeration: true,
		})

		reqB, err := f.svc.AddRequest(ctx, 2, eventB.ID)
		require.NoError(t, err)

		_, err = f.svc.UpdateEventRequests(ctx, 1, eventA.ID, []int64{reqB.ID}, domain.RequestStatusConfirmed)
		assert.ErrorIs(t, err, domain.ErrConflict)

		got, _ := f.requestRepo.GetByID(ctx, reqB.ID)
		assert.Equal(t, domain.RequestStatusPending, got.Status, "the foreign request must stay pending")
		gotA, _ := f.eventRepo.GetByID(ctx, eventA.ID)
		assert.Equal(t, 0, gotA.ConfirmedRequests)
		gotB, _ := f.eventRepo.GetByID(ctx, eventB.ID)
		assert.Equal(t, 0, gotB.ConfirmedRequests)
	})

	t.Run("non-initiator fails validation", func(t *testing.T) {
		f := newRequestFixture(users...)
		event := f.publishedEvent(5, true)

		r1, _ := f.svc.AddRequest(ctx, 2, event.ID)

		_, err := f.svc.UpdateEventRequests(ctx, 3, event.ID, []int64{r1.ID}, domain.RequestStatusConfirmed)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("invalid target status", func(t *testing.T) {
		f := newRequestFixture(users...)
		event := f.publishedEvent(5, true)

		_, err := f.svc.UpdateEventRequests(ctx, 1, event.ID, []int64{1}, domain.RequestStatusCanceled)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

// Many requesters racing for a small event must never overshoot the limit.
func TestRequestService_AddRequest_Concurrent(t *testing.T) {
	ctx := context.Background()
	const workers = 40
	const limit = 5

	users := []*domain.User{{ID: 1, Email: "owner@example.com", Name: "Owner"}}
	for i := int64(2); i < workers+2; i++ {
		users = append(users, &domain.User{ID: i, Email: "guest@example.com", Name: "Guest"})
	}
	f := newRequestFixture(users...)
	event := f.publishedEvent(limit, false)

	var wg sync.WaitGroup
	var mu sync.Mutex
	confirmed := 0
	for i := int64(2); i < workers+2; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			req, err := f.svc.AddRequest(ctx, userID, event.ID)
			if err == nil && req.Status == domain.RequestStatusConfirmed {
				mu.Lock()
				confirmed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, limit, confirmed)
	got, _ := f.eventRepo.GetByID(ctx, event.ID)
	assert.Equal(t, limit, got.ConfirmedRequests)
}

// Concurrent batch confirmations racing new admissions on one event: the
// counter must end up equal to the number of CONFIRMED requests and never
// pass the limit.
func TestRequestService_UpdateEventRequests_Concurrent(t *testing.T) {
	ctx := context.Background()
	const pending = 20
	const adders = 10
	const limit = 5

	users := []*domain.User{{ID: 1, Email: "owner@example.com", Name: "Owner"}}
	for i := int64(2); i < pending+adders+2; i++ {
		users = append(users, &domain.User{ID: i, Email: "guest@example.com", Name: "Guest"})
	}
	f := newRequestFixture(users...)
	event := f.publishedEvent(limit, true)

	requestIDs := make([]int64, 0, pending)
	for i := int64(2); i < pending+2; i++ {
		req, err := f.svc.AddRequest(ctx, i, event.ID)
		require.NoError(t, err)
		requestIDs = append(requestIDs, req.ID)
	}

	var wg sync.WaitGroup
	for _, id := range requestIDs {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			// Full event fails the pre-flight check with ErrConflict;
			// either way the invariant below must hold.
			_, _ = f.svc.UpdateEventRequests(ctx, 1, event.ID, []int64{id}, domain.RequestStatusConfirmed)
		}(id)
	}
	for i := int64(pending + 2); i < pending+adders+2; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, _ = f.svc.AddRequest(ctx, userID, event.ID)
		}(i)
	}
	wg.Wait()

	confirmed := 0
	f.requestRepo.mu.Lock()
	for _, req := range f.requestRepo.byID {
		if req.Status == domain.RequestStatusConfirmed {
			confirmed++
		}
	}
	f.requestRepo.mu.Unlock()

	assert.Equal(t, limit, confirmed)
	got, _ := f.eventRepo.GetByID(ctx, event.ID)
	assert.Equal(t, limit, got.ConfirmedRequests)
}
