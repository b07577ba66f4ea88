package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-events/internal/models"
	"ms-events/internal/utils"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// DB runs queries against either the pool or a transaction.
type DB struct {
	Bun bun.IDB
}

// InTx runs fn inside a transaction. Every query in fn must go through tx;
// the transaction is rolled back when fn returns an error.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context, tx *DB) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx})
	})
}

// Ping probes the events table.
func (d *DB) Ping(ctx context.Context) error {
	_, err := d.Bun.NewSelect().Model((*models.Event)(nil)).Count(ctx)
	return err
}

// ---------------- EVENTS ----------------

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("? = ?", bun.Ident("event.id"), id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// ListEvents applies the optional title and day filters, earliest event first.
func (d *DB) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	events := make([]models.Event, 0)
	q := d.Bun.NewSelect().Model(&events)

	if filter.Title != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Title)) + "%"
		q = q.Where("LOWER(?) LIKE ? ESCAPE '!'", bun.Ident("event.title"), pattern)
	}
	if filter.Date != nil {
		start, end := utils.DayRange(*filter.Date)
		q = q.Where("? >= ?", bun.Ident("event.date"), start).
			Where("? < ?", bun.Ident("event.date"), end)
	}

	if err := q.Order("event.date ASC", "event.created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DB) InsertEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// InsertEvents writes the batch in a single statement.
func (d *DB) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&events).Exec(ctx)
	return err
}

// UpdateEvent writes the editable columns. It reports false when the row is
// missing or the new capacity is below tickets_sold.
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model(event).
		Column("title", "description", "date", "location", "capacity").
		WherePK().
		Where("tickets_sold <= ?", event.Capacity).
		Exec(ctx)
	return affected(res, err)
}

// IncrementTicketsSold takes one seat if any is left.
func (d *DB) IncrementTicketsSold(ctx context.Context, eventID string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("tickets_sold = tickets_sold + 1").
		Where("id = ?", eventID).
		Where("tickets_sold < capacity").
		Exec(ctx)
	return affected(res, err)
}

func (d *DB) DeleteEvent(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return affected(res, err)
}

// ---------------- ATTENDEES ----------------

func (d *DB) GetAttendee(ctx context.Context, id string) (*models.Attendee, error) {
	var attendee models.Attendee
	err := d.Bun.NewSelect().
		Model(&attendee).
		Where("? = ?", bun.Ident("attendee.id"), id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &attendee, nil
}

// AttendeeEmailExists checks the (email, event) pair, ignoring excludeID.
func (d *DB) AttendeeEmailExists(ctx context.Context, eventID, email, excludeID string) (bool, error) {
	q := d.Bun.NewSelect().
		Model((*models.Attendee)(nil)).
		Where("event_id = ?", eventID).
		Where("email = ?", email)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

func (d *DB) InsertAttendee(ctx context.Context, attendee *models.Attendee) error {
	_, err := d.Bun.NewInsert().Model(attendee).Exec(ctx)
	return duplicate(err)
}

func (d *DB) UpdateAttendee(ctx context.Context, attendee *models.Attendee) error {
	_, err := d.Bun.NewUpdate().
		Model(attendee).
		Column("name", "email", "phone").
		WherePK().
		Exec(ctx)
	return duplicate(err)
}

// ListAttendeesByEvent returns the most recent registrations first.
func (d *DB) ListAttendeesByEvent(ctx context.Context, eventID string) ([]models.Attendee, error) {
	attendees := make([]models.Attendee, 0)
	err := d.Bun.NewSelect().
		Model(&attendees).
		Where("event_id = ?", eventID).
		Order("attendee.registration_date DESC", "attendee.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return attendees, nil
}

func (d *DB) DeleteAttendeesByEvent(ctx context.Context, eventID string) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Attendee)(nil)).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------- HELPERS ----------------

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
