package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventboard/internal/domain"
)

type requestRepository struct {
	DB *sql.DB
}

func NewRequestRepository(db *sql.DB) domain.RequestRepository {
	return &requestRepository{
		DB: db,
	}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.ParticipationRequest) error {
	query := `
		INSERT INTO participation_requests (event_id, requester_id, status, created)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return q(ctx, r.DB).QueryRowContext(ctx, query,
		req.EventID, req.RequesterID, string(req.Status), req.Created,
	).Scan(&req.ID)
}

func (r *requestRepository) GetByID(ctx context.Context, id int64) (*domain.ParticipationRequest, error) {
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE id = $1
	`
	req, err := scanRequest(q(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) ExistsByEventAndRequester(ctx context.Context, eventID, requesterID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM participation_requests WHERE event_id = $1 AND requester_id = $2)`
	if err := q(ctx, r.DB).QueryRowContext(ctx, query, eventID, requesterID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *requestRepository) ListByRequester(ctx context.Context, requesterID int64) ([]*domain.ParticipationRequest, error) {
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE requester_id = $1
		ORDER BY created DESC
	`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) ListByEvent(ctx context.Context, eventID int64) ([]*domain.ParticipationRequest, error) {
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE event_id = $1
		ORDER BY created
	`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ListByIDs returns the found requests reordered to match ids. Ids without a
// matching row are skipped; the batch update's overflow policy depends on
// this ordering being the caller's.
func (r *requestRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.ParticipationRequest, error) {
	if len(ids) == 0 {
		return []*domain.ParticipationRequest{}, nil
	}
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE id = ANY($1)
	`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.ParticipationRequest, len(found))
	for _, req := range found {
		byID[req.ID] = req
	}
	ordered := make([]*domain.ParticipationRequest, 0, len(found))
	for _, id := range ids {
		if req, ok := byID[id]; ok {
			ordered = append(ordered, req)
		}
	}
	return ordered, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus) error {
	query := `UPDATE participation_requests SET status = $1 WHERE id = $2`
	res, err := q(ctx, r.DB).ExecContext(ctx, query, string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanRequest(row rowScanner) (*domain.ParticipationRequest, error) {
	req := &domain.ParticipationRequest{}
	var status string
	if err := row.Scan(&req.ID, &req.EventID, &req.RequesterID, &status, &req.Created); err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	return req, nil
}

func scanRequests(rows *sql.Rows) ([]*domain.ParticipationRequest, error) {
	requests := make([]*domain.ParticipationRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}
