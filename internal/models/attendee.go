package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Attendee struct {
	bun.BaseModel `bun:"table:attendees,alias:attendee"`

	ID               string    `bun:"id,pk,type:varchar(36)"`
	Name             string    `bun:"name,notnull"`
	Email            string    `bun:"email,notnull"`
	Phone            string    `bun:"phone,notnull,default:''"`
	RegistrationDate time.Time `bun:"registration_date,notnull,default:current_timestamp"`
	EventID          string    `bun:"event_id,notnull,type:varchar(36)"`
}

type AttendeeResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	RegistrationDate time.Time `json:"registration_date"`
	EventID          string    `json:"event_id"`
	EventTitle       *string   `json:"event_title"`
}

// ToResponse takes the owning event explicitly; a nil event leaves event_title null.
func (a *Attendee) ToResponse(event *Event) AttendeeResponse {
	resp := AttendeeResponse{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		Phone:            a.Phone,
		RegistrationDate: a.RegistrationDate.UTC(),
		EventID:          a.EventID,
	}
	if event != nil {
		title := event.Title
		resp.EventTitle = &title
	}
	return resp
}
