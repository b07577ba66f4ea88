package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:event"`

	ID          string    `bun:"id,pk,type:varchar(36)"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull,default:''"`
	Date        time.Time `bun:"date,notnull"`
	Location    string    `bun:"location,notnull"`
	Capacity    int       `bun:"capacity,notnull"`
	TicketsSold int       `bun:"tickets_sold,notnull,default:0"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// TicketsAvailable is derived, never stored.
func (e *Event) TicketsAvailable() int {
	return e.Capacity - e.TicketsSold
}

func (e *Event) IsFull() bool {
	return e.TicketsSold >= e.Capacity
}

type EventResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Date             time.Time `json:"date"`
	Location         string    `json:"location"`
	Capacity         int       `json:"capacity"`
	TicketsSold      int       `json:"tickets_sold"`
	TicketsAvailable int       `json:"tickets_available"`
}

func (e *Event) ToResponse() EventResponse {
	return EventResponse{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		Date:             e.Date.UTC(),
		Location:         e.Location,
		Capacity:         e.Capacity,
		TicketsSold:      e.TicketsSold,
		TicketsAvailable: e.TicketsAvailable(),
	}
}

// EventsToResponse never returns nil so empty lists encode as [].
func EventsToResponse(events []Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, events[i].ToResponse())
	}
	return out
}

// EventFilter narrows List. Date matches the whole UTC calendar day.
type EventFilter struct {
	Title string
	Date  *time.Time
}
