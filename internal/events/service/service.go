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
	"ms-events/internal/utils"
)

// Publisher sends domain notifications. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

type notifier struct {
	Publisher Publisher
	Topics    config.TopicConfig
	Logger    *logger.Logger
}

// notify runs after commit; a failed publish never fails the request.
func (n *notifier) notify(ctx context.Context, topic, key string, payload interface{}) {
	if n.Publisher == nil || topic == "" {
		return
	}
	if err := n.Publisher.Publish(ctx, topic, key, payload); err != nil {
		n.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", topic, key, err))
	}
}

type EventService struct {
	DB *db.DB
	notifier
}

func NewEventService(store *db.DB, publisher Publisher, topics config.TopicConfig, log *logger.Logger) *EventService {
	if log == nil {
		log = logger.Discard()
	}
	return &EventService{
		DB:       store,
		notifier: notifier{Publisher: publisher, Topics: topics, Logger: log},
	}
}

// List filters by case-insensitive title substring and by calendar day (YYYY-MM-DD).
func (s *EventService) List(ctx context.Context, title, date string) ([]models.EventResponse, error) {
	filter := models.EventFilter{Title: title}
	if date != "" {
		day, err := utils.ParseDay(date)
		if err != nil {
			return nil, validationErrorf("Invalid date format. Use YYYY-MM-DD")
		}
		filter.Date = &day
	}

	events, err := s.DB.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return models.EventsToResponse(events), nil
}

func (s *EventService) Get(ctx context.Context, id string) (*models.EventResponse, error) {
	event, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, eventLookupError(err)
	}
	resp := event.ToResponse()
	return &resp, nil
}

func (s *EventService) Create(ctx context.Context, req models.CreateEventRequest) (*models.EventResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	date, err := utils.ParseISODateTime(req.Date)
	if err != nil {
		return nil, validationErrorf("Invalid date format. Use ISO-8601")
	}

	event := &models.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Capacity:    req.Capacity,
		TicketsSold: 0,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.DB.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	s.Logger.LogDatabase("INSERT", "events", fmt.Sprintf("created event %s", event.ID))
	resp := event.ToResponse()
	s.notify(ctx, s.Topics.EventCreated, event.ID, resp)
	return &resp, nil
}

// Update applies the supplied fields in one transaction. A capacity below
// tickets_sold is rejected and nothing is written.
func (s *EventService) Update(ctx context.Context, id string, req models.UpdateEventRequest) (*models.EventResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var date *time.Time
	if req.Date != nil {
		parsed, err := utils.ParseISODateTime(*req.Date)
		if err != nil {
			return nil, validationErrorf("Invalid date format. Use ISO-8601")
		}
		date = &parsed
	}

	var updated *models.Event
	err := s.DB.InTx(ctx, func(ctx context.Context, tx *db.DB) error {
		event, err := tx.GetEvent(ctx, id)
		if err != nil {
			return eventLookupError(err)
		}

		if req.Title != nil {
			event.Title = *req.Title
		}
		if req.Description != nil {
			event.Description = *req.Description
		}
		if date != nil {
			event.Date = *date
		}
		if req.Location != nil {
			event.Location = *req.Location
		}
		if req.Capacity != nil {
			if *req.Capacity < event.TicketsSold {
				return ErrCapacityBelowSold
			}
			event.Capacity = *req.Capacity
		}

		ok, err := tx.UpdateEvent(ctx, event)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if !ok {
			return ErrCapacityBelowSold
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse()
	s.notify(ctx, s.Topics.EventUpdated, id, resp)
	return &resp, nil
}

// Delete removes the event and its attendees together.
func (s *EventService) Delete(ctx context.Context, id string) error {
	var removed int64
	err := s.DB.InTx(ctx, func(ctx context.Context, tx *db.DB) error {
		n, err := tx.DeleteAttendeesByEvent(ctx, id)
		if err != nil {
			return fmt.Errorf("delete attendees: %w", err)
		}
		ok, err := tx.DeleteEvent(ctx, id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if !ok {
			return ErrEventNotFound
		}
		removed = n
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.LogDatabase("DELETE", "events", fmt.Sprintf("deleted event %s with %d attendees", id, removed))
	s.notify(ctx, s.Topics.EventDeleted, id, map[string]interface{}{
		"id":                id,
		"attendees_removed": removed,
	})
	return nil
}

func (s *EventService) SalesReport(ctx context.Context) (*models.SalesReport, error) {
	events, err := s.DB.ListEvents(ctx, models.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	report := BuildSalesReport(events)
	return &report, nil
}

func eventLookupError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrEventNotFound
	}
	return fmt.Errorf("get event: %w", err)
}
