package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

// EnsureSchema creates the tables and indexes if they are absent. It mirrors
// migrations/sql/000001 for drivers golang-migrate is not used with.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*models.Event)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*models.Attendee)(nil)).
		IfNotExists().
		ForeignKey(`("event_id") REFERENCES "events" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create attendees table: %w", err)
	}

	indexes := []*bun.CreateIndexQuery{
		db.NewCreateIndex().Model((*models.Event)(nil)).Index("idx_events_date").Column("date"),
		db.NewCreateIndex().Model((*models.Attendee)(nil)).Index("idx_attendees_event_id").Column("event_id", "registration_date"),
		db.NewCreateIndex().Model((*models.Attendee)(nil)).Index("uq_attendees_email_event").Unique().Column("email", "event_id"),
	}
	for _, q := range indexes {
		if _, err := q.IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
