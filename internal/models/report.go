package models

// TicketPrice is the flat per-ticket price used for revenue figures.
const TicketPrice = 100

type EventSales struct {
	EventResponse
	Revenue       int     `json:"revenue"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

type SalesReport struct {
	TotalEvents      int          `json:"total_events"`
	TotalCapacity    int          `json:"total_capacity"`
	TotalTicketsSold int          `json:"total_tickets_sold"`
	TotalRevenue     int          `json:"total_revenue"`
	Events           []EventSales `json:"events"`
}

// ImportResult describes a committed CSV import.
type ImportResult struct {
	BatchID        string          `json:"batch_id"`
	Message        string          `json:"message"`
	ImportedEvents []EventResponse `json:"imported_events"`
	Warnings       []string        `json:"warnings,omitempty"`
}
