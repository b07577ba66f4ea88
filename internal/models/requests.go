package models

// CreateEventRequest is the POST /api/events payload. Zero values count as missing.
type CreateEventRequest struct {
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"required"`
	Location    string `json:"location" validate:"required,notblank"`
	Capacity    int    `json:"capacity" validate:"required,gte=0"`
}

// UpdateEventRequest carries only the fields the client sent.
type UpdateEventRequest struct {
	Title       *string `json:"title" validate:"omitnil,notblank"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location" validate:"omitnil,notblank"`
	Capacity    *int    `json:"capacity" validate:"omitnil,gte=0"`
}

type RegisterAttendeeRequest struct {
	Name    string `json:"name" validate:"required,notblank"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	EventID string `json:"event_id" validate:"required"`
}

type UpdateAttendeeRequest struct {
	Name  *string `json:"name" validate:"omitnil,notblank"`
	Email *string `json:"email" validate:"omitnil,email"`
	Phone *string `json:"phone"`
}
