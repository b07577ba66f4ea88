package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-events/internal/config"
	"ms-events/internal/events/db"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

type AttendeeService struct {
	DB *db.DB
	notifier
}

func NewAttendeeService(store *db.DB, publisher Publisher, topics config.TopicConfig, log *logger.Logger) *AttendeeService {
	if log == nil {
		log = logger.Discard()
	}
	return &AttendeeService{
		DB:       store,
		notifier: notifier{Publisher: publisher, Topics: topics, Logger: log},
	}
}

// Register books one ticket. The seat is taken with a conditional increment in
// the same transaction as the attendee insert, so concurrent registrations
// cannot push tickets_sold past capacity.
func (s *AttendeeService) Register(ctx context.Context, req models.RegisterAttendeeRequest) (*models.AttendeeResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	attendee := &models.Attendee{
		ID:               uuid.New().String(),
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		RegistrationDate: time.Now().UTC(),
		EventID:          req.EventID,
	}

	var event *models.Event
	err := s.DB.InTx(ctx, func(ctx context.Context, tx *db.DB) error {
		var err error
		event, err = tx.GetEvent(ctx, req.EventID)
		if err != nil {
			return eventLookupError(err)
		}
		if event.IsFull() {
			return ErrEventFull
		}

		exists, err := tx.AttendeeEmailExists(ctx, req.EventID, req.Email, "")
		if err != nil {
			return fmt.Errorf("check attendee email: %w", err)
		}
		if exists {
			return ErrAlreadyRegistered
		}

		ok, err := tx.IncrementTicketsSold(ctx, req.EventID)
		if err != nil {
			return fmt.Errorf("increment tickets sold: %w", err)
		}
		if !ok {
			return ErrEventFull
		}

		if err := tx.InsertAttendee(ctx, attendee); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("insert attendee: %w", err)
		}
		event.TicketsSold++
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogDatabase("INSERT", "attendees", fmt.Sprintf("registered %s for event %s (%d/%d)", attendee.ID, event.ID, event.TicketsSold, event.Capacity))
	resp := attendee.ToResponse(event)
	s.notify(ctx, s.Topics.AttendeeRegistered, attendee.ID, resp)
	return &resp, nil
}

// Update never changes tickets_sold. An email change is re-checked within the event.
func (s *AttendeeService) Update(ctx context.Context, id string, req models.UpdateAttendeeRequest) (*models.AttendeeResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var attendee *models.Attendee
	var event *models.Event
	err := s.DB.InTx(ctx, func(ctx context.Context, tx *db.DB) error {
		var err error
		attendee, err = tx.GetAttendee(ctx, id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return ErrAttendeeNotFound
			}
			return fmt.Errorf("get attendee: %w", err)
		}

		if req.Name != nil {
			attendee.Name = *req.Name
		}
		if req.Email != nil && *req.Email != attendee.Email {
			exists, err := tx.AttendeeEmailExists(ctx, attendee.EventID, *req.Email, attendee.ID)
			if err != nil {
				return fmt.Errorf("check attendee email: %w", err)
			}
			if exists {
				return ErrAlreadyRegistered
			}
			attendee.Email = *req.Email
		}
		if req.Phone != nil {
			attendee.Phone = *req.Phone
		}

		if err := tx.UpdateAttendee(ctx, attendee); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("update attendee: %w", err)
		}

		event, err = lookupOwner(ctx, tx, attendee.EventID)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := attendee.ToResponse(event)
	s.notify(ctx, s.Topics.AttendeeUpdated, attendee.ID, resp)
	return &resp, nil
}

// ListByEvent returns the newest registrations first; an unknown event yields an empty list.
func (s *AttendeeService) ListByEvent(ctx context.Context, eventID string) ([]models.AttendeeResponse, error) {
	attendees, err := s.DB.ListAttendeesByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}

	out := make([]models.AttendeeResponse, 0, len(attendees))
	if len(attendees) == 0 {
		return out, nil
	}

	event, err := lookupOwner(ctx, s.DB, eventID)
	if err != nil {
		return nil, err
	}
	for i := range attendees {
		out = append(out, attendees[i].ToResponse(event))
	}
	return out, nil
}

// lookupOwner returns nil without error when the event is gone.
func lookupOwner(ctx context.Context, store *db.DB, eventID string) (*models.Event, error) {
	event, err := store.GetEvent(ctx, eventID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
