package events

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-events/internal/events/db"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

const (
	colTitle       = "Event Title"
	colDescription = "Description"
	colDate        = "Date"
	colLocation    = "Location"
	colCapacity    = "Capacity"
)

var importColumns = []string{colTitle, colDescription, colDate, colLocation, colCapacity}

// Import reads events from CSV. Bad rows are reported and skipped; the valid
// rows are written in one transaction. If no row is valid nothing is written
// and an ImportError carries every row error.
func (s *EventService) Import(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, validationErrorf("CSV file is empty")
	}
	if err != nil {
		return nil, validationErrorf("Invalid CSV: %v", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var valid []models.Event
	rowErrors := make([]string, 0)

	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %v", row, parseErr.Err))
				continue
			}
			return nil, validationErrorf("Invalid CSV: %v", err)
		}

		event, err := parseImportRow(record, index)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %v", row, err))
			continue
		}
		event.ID = uuid.New().String()
		event.CreatedAt = now
		valid = append(valid, event)
	}

	if len(valid) == 0 {
		s.Logger.Warn("IMPORT", fmt.Sprintf("All %d rows failed", len(rowErrors)))
		return nil, &ImportError{Message: "All imports failed", Details: rowErrors}
	}

	err = s.DB.InTx(ctx, func(ctx context.Context, tx *db.DB) error {
		return tx.InsertEvents(ctx, valid)
	})
	if err != nil {
		return nil, fmt.Errorf("insert imported events: %w", err)
	}

	result := &models.ImportResult{
		BatchID:        uuid.New().String(),
		Message:        fmt.Sprintf("Successfully imported %d events", len(valid)),
		ImportedEvents: models.EventsToResponse(valid),
	}
	if len(rowErrors) > 0 {
		result.Warnings = rowErrors
	}

	s.Logger.LogDatabase("INSERT", "events", fmt.Sprintf("import %s: %d imported, %d skipped", result.BatchID, len(valid), len(rowErrors)))
	s.notify(ctx, s.Topics.EventsImported, result.BatchID, map[string]interface{}{
		"batch_id": result.BatchID,
		"imported": len(valid),
		"skipped":  len(rowErrors),
	})
	return result, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	for _, col := range importColumns {
		if _, ok := index[col]; !ok {
			return nil, validationErrorf("Missing column: %s", col)
		}
	}
	return index, nil
}

func parseImportRow(record []string, index map[string]int) (models.Event, error) {
	field := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	title := field(colTitle)
	if title == "" {
		return models.Event{}, fmt.Errorf("%s is required", colTitle)
	}

	rawDate := field(colDate)
	date, err := utils.ParseDay(rawDate)
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", rawDate)
	}

	location := field(colLocation)
	if location == "" {
		return models.Event{}, fmt.Errorf("%s is required", colLocation)
	}

	rawCapacity := field(colCapacity)
	capacity, err := strconv.Atoi(rawCapacity)
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid capacity %q", rawCapacity)
	}
	if capacity < 0 {
		return models.Event{}, fmt.Errorf("capacity must be greater than or equal to 0")
	}

	return models.Event{
		Title:       title,
		Description: field(colDescription),
		Date:        date,
		Location:    location,
		Capacity:    capacity,
	}, nil
}
