package events_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/events/db"
	events "ms-events/internal/events/service"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// MockPublisher is a mock implementation of the Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

var testTopics = config.TopicConfig{
	EventCreated:       "events.event.created",
	EventUpdated:       "events.event.updated",
	EventDeleted:       "events.event.deleted",
	AttendeeRegistered: "events.attendee.registered",
	AttendeeUpdated:    "events.attendee.updated",
	EventsImported:     "events.import.completed",
}

type fixture struct {
	store     *db.DB
	publisher *MockPublisher
	events    *events.EventService
	attendees *events.AttendeeService
}

func setup(t *testing.T) *fixture {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })
	require.NoError(t, database.EnsureSchema(context.Background(), bunDB))

	store := &db.DB{Bun: bunDB}
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	return &fixture{
		store:     store,
		publisher: pub,
		events:    events.NewEventService(store, pub, testTopics, logger.Discard()),
		attendees: events.NewAttendeeService(store, pub, testTopics, logger.Discard()),
	}
}

func (f *fixture) createEvent(t *testing.T, title string, capacity int) *models.EventResponse {
	event, err := f.events.Create(context.Background(), models.CreateEventRequest{
		Title:    title,
		Date:     "2025-06-01T10:00:00Z",
		Location: "Hall A",
		Capacity: capacity,
	})
	require.NoError(t, err)
	return event
}

func (f *fixture) register(email, eventID string) (*models.AttendeeResponse, error) {
	return f.attendees.Register(context.Background(), models.RegisterAttendeeRequest{
		Name:    "Attendee " + email,
		Email:   email,
		EventID: eventID,
	})
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateEventValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.CreateEventRequest
		want string
	}{
		{"missing title", models.CreateEventRequest{Date: "2025-06-01", Location: "A", Capacity: 1}, "title is required"},
		{"blank title", models.CreateEventRequest{Title: "   ", Date: "2025-06-01", Location: "A", Capacity: 1}, "title is required"},
		{"blank location", models.CreateEventRequest{Title: "T", Date: "2025-06-01", Location: " \t", Capacity: 1}, "location is required"},
		{"missing date", models.CreateEventRequest{Title: "T", Location: "A", Capacity: 1}, "date is required"},
		{"missing location", models.CreateEventRequest{Title: "T", Date: "2025-06-01", Capacity: 1}, "location is required"},
		{"zero capacity", models.CreateEventRequest{Title: "T", Date: "2025-06-01", Location: "A"}, "capacity is required"},
		{"negative capacity", models.CreateEventRequest{Title: "T", Date: "2025-06-01", Location: "A", Capacity: -1}, "capacity must be greater than or equal to 0"},
		{"bad date", models.CreateEventRequest{Title: "T", Date: "June 1st", Location: "A", Capacity: 1}, "Invalid date format. Use ISO-8601"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.events.Create(ctx, tc.req)
			var verr *events.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.want, verr.Message)
		})
	}

	list, err := f.events.List(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateEventPublishes(t *testing.T) {
	f := setup(t)
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "events.event.created", mock.AnythingOfType("string"), mock.AnythingOfType("models.EventResponse")).Return(nil).Once()
	svc := events.NewEventService(f.store, pub, testTopics, nil)

	event, err := svc.Create(context.Background(), models.CreateEventRequest{
		Title:       "Conf",
		Description: "Annual",
		Date:        "2025-06-01T10:00:00",
		Location:    "Hall A",
		Capacity:    100,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, event.TicketsSold)
	assert.Equal(t, 100, event.TicketsAvailable)
	assert.Equal(t, "2025-06-01T10:00:00Z", event.Date.Format("2006-01-02T15:04:05Z07:00"))
	pub.AssertExpectations(t)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := setup(t)
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	svc := events.NewEventService(f.store, pub, testTopics, logger.Discard())

	_, err := svc.Create(context.Background(), models.CreateEventRequest{
		Title: "Conf", Date: "2025-06-01", Location: "Hall A", Capacity: 1,
	})
	assert.NoError(t, err)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestRegistrationScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.createEvent(t, "Conf", 2)

	first, err := f.register("a@example.com", event.ID)
	require.NoError(t, err)
	require.NotNil(t, first.EventTitle)
	assert.Equal(t, "Conf", *first.EventTitle)

	_, err = f.register("b@example.com", event.ID)
	require.NoError(t, err)

	_, err = f.register("c@example.com", event.ID)
	assert.ErrorIs(t, err, events.ErrEventFull)
	assert.EqualError(t, err, "Event is full")

	got, err := f.events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TicketsSold)
	assert.Equal(t, 0, got.TicketsAvailable)

	attendees, err := f.attendees.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, attendees, 2)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	conf := f.createEvent(t, "Conf", 10)
	other := f.createEvent(t, "Other", 10)

	_, err := f.register("a@example.com", conf.ID)
	require.NoError(t, err)

	_, err = f.register("a@example.com", conf.ID)
	assert.ErrorIs(t, err, events.ErrAlreadyRegistered)

	got, err := f.events.Get(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TicketsSold)

	_, err = f.register("a@example.com", other.ID)
	assert.NoError(t, err)
}

func TestRegisterValidationAndMissingEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.attendees.Register(ctx, models.RegisterAttendeeRequest{Email: "a@example.com", EventID: "x"})
	assert.EqualError(t, err, "name is required")

	_, err = f.attendees.Register(ctx, models.RegisterAttendeeRequest{Name: "  ", Email: "a@example.com", EventID: "x"})
	assert.EqualError(t, err, "name is required")

	_, err = f.attendees.Register(ctx, models.RegisterAttendeeRequest{Name: "A", Email: "not-an-email", EventID: "x"})
	assert.EqualError(t, err, "email must be a valid email address")

	_, err = f.register("a@example.com", "missing")
	assert.ErrorIs(t, err, events.ErrEventNotFound)
	assert.EqualError(t, err, "Event not found")
}

func TestRegisterZeroCapacityEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	event := f.createEvent(t, "Tiny", 1)
	_, err := f.events.Update(ctx, event.ID, models.UpdateEventRequest{Capacity: intPtr(0)})
	require.NoError(t, err)

	_, err = f.register("a@example.com", event.ID)
	assert.ErrorIs(t, err, events.ErrEventFull)
}

func TestUpdateEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.createEvent(t, "Conf", 5)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := f.register(email, event.ID)
		require.NoError(t, err)
	}

	_, err := f.events.Update(ctx, event.ID, models.UpdateEventRequest{Title: strPtr("Changed"), Capacity: intPtr(2)})
	assert.ErrorIs(t, err, events.ErrCapacityBelowSold)

	got, err := f.events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Conf", got.Title)
	assert.Equal(t, 5, got.Capacity)

	updated, err := f.events.Update(ctx, event.ID, models.UpdateEventRequest{
		Title:    strPtr("Conf 2025"),
		Date:     strPtr("2025-07-01T09:30"),
		Capacity: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Conf 2025", updated.Title)
	assert.Equal(t, "Hall A", updated.Location)
	assert.Equal(t, 3, updated.Capacity)
	assert.Equal(t, 0, updated.TicketsAvailable)
	assert.Equal(t, 9, updated.Date.Hour())

	_, err = f.events.Update(ctx, event.ID, models.UpdateEventRequest{Location: strPtr("  ")})
	assert.EqualError(t, err, "location is required")

	_, err = f.events.Update(ctx, event.ID, models.UpdateEventRequest{Title: strPtr("   ")})
	assert.EqualError(t, err, "title is required")

	_, err = f.events.Update(ctx, event.ID, models.UpdateEventRequest{Capacity: intPtr(-1)})
	assert.EqualError(t, err, "capacity must be greater than or equal to 0")

	_, err = f.events.Update(ctx, "missing", models.UpdateEventRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, events.ErrEventNotFound)
}

func TestDeleteEventCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.createEvent(t, "Conf", 5)
	_, err := f.register("a@example.com", event.ID)
	require.NoError(t, err)

	require.NoError(t, f.events.Delete(ctx, event.ID))

	attendees, err := f.attendees.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, attendees)

	_, err = f.events.Get(ctx, event.ID)
	assert.ErrorIs(t, err, events.ErrEventNotFound)

	assert.ErrorIs(t, f.events.Delete(ctx, event.ID), events.ErrEventNotFound)
}

func TestUpdateAttendee(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	event := f.createEvent(t, "Conf", 5)

	a, err := f.register("a@example.com", event.ID)
	require.NoError(t, err)
	_, err = f.register("b@example.com", event.ID)
	require.NoError(t, err)

	_, err = f.attendees.Update(ctx, a.ID, models.UpdateAttendeeRequest{Email: strPtr("b@example.com")})
	assert.ErrorIs(t, err, events.ErrAlreadyRegistered)

	updated, err := f.attendees.Update(ctx, a.ID, models.UpdateAttendeeRequest{
		Name:  strPtr("Ada Lovelace"),
		Email: strPtr("a@example.com"),
		Phone: strPtr("555-0100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, "555-0100", updated.Phone)
	require.NotNil(t, updated.EventTitle)
	assert.Equal(t, "Conf", *updated.EventTitle)

	got, err := f.events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TicketsSold)

	_, err = f.attendees.Update(ctx, a.ID, models.UpdateAttendeeRequest{Name: strPtr(" ")})
	assert.EqualError(t, err, "name is required")

	_, err = f.attendees.Update(ctx, "missing", models.UpdateAttendeeRequest{Name: strPtr("x")})
	assert.ErrorIs(t, err, events.ErrAttendeeNotFound)
	assert.EqualError(t, err, "Attendee not found")
}

func TestListEventsFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createEvent(t, "Go Conf", 5)
	f.createEvent(t, "Rust Conf", 5)

	list, err := f.events.List(ctx, "go", "2025-06-01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Go Conf", list[0].Title)

	list, err = f.events.List(ctx, "", "2025-06-02")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.events.List(ctx, "", "06/01/2025")
	assert.EqualError(t, err, "Invalid date format. Use YYYY-MM-DD")
}

func TestSalesReportFromStore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	half := f.createEvent(t, "Half", 2)
	f.createEvent(t, "Empty", 4)

	_, err := f.register("a@example.com", half.ID)
	require.NoError(t, err)

	report, err := f.events.SalesReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalEvents)
	assert.Equal(t, 6, report.TotalCapacity)
	assert.Equal(t, 1, report.TotalTicketsSold)
	assert.Equal(t, 100, report.TotalRevenue)
	require.Len(t, report.Events, 2)
}

func TestImportPartialSuccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	csv := "\ufeffEvent Title, Description ,Date,Location,Capacity,Extra\n" +
		"One,d,2025-01-01,Hall,10,x\n" +
		"Two,d,2025-01-02,Hall,20,x\n" +
		"Three,,2025-01-03,Hall,0,x\n" +
		"Four,d,2025-01-04,Hall,5,x\n" +
		"Five,d,2025-01-05,Hall,7,x\n" +
		"Six,d,2025-01-06,Hall,many,x\n"

	result, err := f.events.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "Successfully imported 5 events", result.Message)
	assert.Len(t, result.ImportedEvents, 5)
	require.Len(t, result.Warnings, 1)
	assert.True(t, strings.HasPrefix(result.Warnings[0], "Row 6: "), result.Warnings[0])
	assert.NotEmpty(t, result.BatchID)

	list, err := f.events.List(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, list, 5)
	assert.Equal(t, "One", list[0].Title)
	assert.Equal(t, 0, list[0].TicketsSold)
}

func TestImportAllRowsFail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	csv := "Event Title,Description,Date,Location,Capacity\n" +
		"One,d,01/01/2025,Hall,10\n" +
		",d,2025-01-02,Hall,20\n"

	_, err := f.events.Import(ctx, strings.NewReader(csv))
	var importErr *events.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, "All imports failed", importErr.Message)
	require.Len(t, importErr.Details, 2)
	assert.True(t, strings.HasPrefix(importErr.Details[0], "Row 1: "))
	assert.True(t, strings.HasPrefix(importErr.Details[1], "Row 2: "))

	list, err := f.events.List(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportRejectsBadHeader(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.events.Import(ctx, strings.NewReader("Event Title,Date,Location,Capacity\nA,2025-01-01,B,1\n"))
	assert.EqualError(t, err, "Missing column: Description")

	_, err = f.events.Import(ctx, strings.NewReader(""))
	assert.EqualError(t, err, "CSV file is empty")
}
