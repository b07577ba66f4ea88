package events

import (
	"math"

	"ms-events/internal/models"
)

// BuildSalesReport aggregates capacity, sales and revenue over events.
func BuildSalesReport(events []models.Event) models.SalesReport {
	report := models.SalesReport{
		TotalEvents: len(events),
		Events:      make([]models.EventSales, 0, len(events)),
	}

	for i := range events {
		e := &events[i]
		revenue := e.TicketsSold * models.TicketPrice

		report.TotalCapacity += e.Capacity
		report.TotalTicketsSold += e.TicketsSold
		report.TotalRevenue += revenue
		report.Events = append(report.Events, models.EventSales{
			EventResponse: e.ToResponse(),
			Revenue:       revenue,
			OccupancyRate: occupancyRate(e.TicketsSold, e.Capacity),
		})
	}
	return report
}

// occupancyRate is a percentage rounded to two decimals, 0 for zero capacity.
func occupancyRate(sold, capacity int) float64 {
	if capacity == 0 {
		return 0
	}
	return math.Round(float64(sold)/float64(capacity)*100*100) / 100
}
