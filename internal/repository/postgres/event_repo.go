package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"eventboard/internal/domain"
)

const eventColumns = `id, title, annotation, description, category_id, initiator_id,
		event_date, created_on, published_on, location_lat, location_lon,
		paid, participant_limit, request_moderation, confirmed_requests, state`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, annotation, description, category_id, initiator_id,
			event_date, created_on, location_lat, location_lon,
			paid, participant_limit, request_moderation, confirmed_requests, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	return q(ctx, r.DB).QueryRowContext(ctx, query,
		e.Title, e.Annotation, e.Description, e.CategoryID, e.InitiatorID,
		e.EventDate, e.CreatedOn, e.Location.Lat, e.Location.Lon,
		e.Paid, e.ParticipantLimit, e.RequestModeration, e.ConfirmedRequests, string(e.State),
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.scanOne(q(ctx, r.DB).QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate locks the event row for the duration of the surrounding
// transaction. Concurrent callers on the same event block here until the
// first transaction commits or rolls back, so a read of ConfirmedRequests
// followed by a write can never observe a stale counter.
func (r *eventRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return r.scanOne(q(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET title = $1, annotation = $2, description = $3, category_id = $4,
			event_date = $5, published_on = $6, location_lat = $7, location_lon = $8,
			paid = $9, participant_limit = $10, request_moderation = $11,
			confirmed_requests = $12, state = $13
		WHERE id = $14
	`
	var publishedOn sql.NullTime
	if e.PublishedOn != nil {
		publishedOn = sql.NullTime{Time: *e.PublishedOn, Valid: true}
	}
	res, err := q(ctx, r.DB).ExecContext(ctx, query,
		e.Title, e.Annotation, e.Description, e.CategoryID,
		e.EventDate, publishedOn, e.Location.Lat, e.Location.Lon,
		e.Paid, e.ParticipantLimit, e.RequestModeration,
		e.ConfirmedRequests, string(e.State), e.ID,
	)
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

func (r *eventRepository) ListByInitiator(ctx context.Context, initiatorID int64, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM events WHERE initiator_id = $1`
	if err := q(ctx, r.DB).QueryRowContext(ctx, countQuery, initiatorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE initiator_id = $1
		ORDER BY created_on DESC
		LIMIT $2 OFFSET $3`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, initiatorID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) ListAdmin(ctx context.Context, filter domain.AdminEventFilter, params domain.PaginationParams) ([]*domain.Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Users) > 0 {
		where = append(where, "initiator_id = ANY("+arg(pq.Array(filter.Users))+")")
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, s := range filter.States {
			states[i] = string(s)
		}
		where = append(where, "state = ANY("+arg(pq.Array(states))+")")
	}
	if len(filter.Categories) > 0 {
		where = append(where, "category_id = ANY("+arg(pq.Array(filter.Categories))+")")
	}
	if filter.RangeStart != nil {
		where = append(where, "event_date >= "+arg(*filter.RangeStart))
	}
	if filter.RangeEnd != nil {
		where = append(where, "event_date <= "+arg(*filter.RangeEnd))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id LIMIT " + arg(params.PageSize) + " OFFSET " + arg(params.Offset())

	rows, err := q(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *eventRepository) ListPublic(ctx context.Context, filter domain.PublicEventFilter, params domain.PaginationParams) ([]*domain.Event, error) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where := []string{"state = " + arg(string(domain.EventStatePublished))}
	if filter.Text != "" {
		p := arg("%" + strings.ToLower(filter.Text) + "%")
		where = append(where, "(LOWER(annotation) LIKE "+p+" OR LOWER(description) LIKE "+p+")")
	}
	if len(filter.Categories) > 0 {
		where = append(where, "category_id = ANY("+arg(pq.Array(filter.Categories))+")")
	}
	if filter.Paid != nil {
		where = append(where, "paid = "+arg(*filter.Paid))
	}
	if filter.RangeStart != nil {
		where = append(where, "event_date >= "+arg(*filter.RangeStart))
	} else {
		where = append(where, "event_date >= "+arg(time.Now()))
	}
	if filter.RangeEnd != nil {
		where = append(where, "event_date <= "+arg(*filter.RangeEnd))
	}
	if filter.OnlyAvailable {
		where = append(where, "(participant_limit = 0 OR confirmed_requests < participant_limit)")
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + strings.Join(where, " AND ")
	if filter.SortByDate {
		query += " ORDER BY event_date DESC"
	} else {
		query += " ORDER BY id"
	}
	query += " LIMIT " + arg(params.PageSize) + " OFFSET " + arg(params.Offset())

	rows, err := q(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *eventRepository) ExistsByCategory(ctx context.Context, categoryID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM events WHERE category_id = $1)`
	if err := q(ctx, r.DB).QueryRowContext(ctx, query, categoryID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *eventRepository) scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var (
		publishedOn sql.NullTime
		state       string
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID,
		&e.EventDate, &e.CreatedOn, &publishedOn, &e.Location.Lat, &e.Location.Lon,
		&e.Paid, &e.ParticipantLimit, &e.RequestModeration, &e.ConfirmedRequests, &state,
	)
	if err != nil {
		return nil, err
	}
	if publishedOn.Valid {
		e.PublishedOn = &publishedOn.Time
	}
	e.State = domain.EventState(state)
	return e, nil
}

func (r *eventRepository) scanOne(row *sql.Row) (*domain.Event, error) {
	e, err := r.scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) scanAll(rows *sql.Rows) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
