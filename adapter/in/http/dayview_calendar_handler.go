package http

import (
	"strings"
	"time"

	"dayview_server/core/domain"
	"dayview_server/core/port/in"

	"github.com/gofiber/fiber/v2"
)

type CalendarHandler struct {
	calendarService in.CalendarService
}

func NewCalendarHandler(calendarService in.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

func (h *CalendarHandler) Register(app fiber.Router) {
	cal := app.Group("/calendar")
	cal.Get("/events", h.ListEvents)
	cal.Post("/events", h.CreateEvent)
}

// ListEvents aggregates events across the user's enabled sources for the
// requested window. The response is a bare JSON array of canonical events;
// consumers depend on that shape, so there is no envelope.
func (h *CalendarHandler) ListEvents(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return ErrorResponse(c, 401, "unauthorized")
	}

	startStr := c.Query("start")
	endStr := c.Query("end")
	if startStr == "" || endStr == "" {
		return ErrorResponse(c, 400, "start and end are required")
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return ErrorResponse(c, 400, "invalid start: must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return ErrorResponse(c, 400, "invalid end: must be RFC3339")
	}

	view, ok := domain.ParseViewToken(c.Query("view"))
	if !ok {
		return ErrorResponse(c, 400, "invalid view")
	}

	req := in.AggregateRequest{
		UserID:              userID.String(),
		View:                view,
		Start:               start,
		End:                 end,
		Timezone:            c.Query("timezone"),
		WebhookURL:          QueryString(c, "webhook_url"),
		MultiSource:         QueryBool(c, "multi_source", false),
		IncludePlaceholders: QueryBool(c, "include_placeholders", false),
	}
	if ids := c.Query("calendar_ids"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.CalendarIDs = append(req.CalendarIDs, id)
			}
		}
	}

	events, err := h.calendarService.AggregateEvents(c.Context(), req)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if events == nil {
		events = []*domain.CalendarEvent{}
	}

	return c.JSON(events)
}

type createEventBody struct {
	SourceID    string   `json:"source_id"`
	CalendarID  string   `json:"calendar_id"`
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// parseEventTime accepts an RFC3339 instant or a bare YYYY-MM-DD all-day date.
func parseEventTime(s string) (domain.EventTime, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return domain.NewInstant(t), true
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return domain.NewAllDay(s), true
	}
	return domain.EventTime{}, false
}

// CreateEvent writes an event through the target source. Only sources whose
// provider supports writes accept this; others answer 501.
func (h *CalendarHandler) CreateEvent(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return ErrorResponse(c, 401, "unauthorized")
	}

	var body createEventBody
	if err := c.BodyParser(&body); err != nil {
		return ErrorResponse(c, 400, "invalid request body")
	}
	if body.Title == "" {
		return ErrorResponse(c, 400, "title is required")
	}
	start, ok := parseEventTime(body.Start)
	if !ok {
		return ErrorResponse(c, 400, "invalid start: must be RFC3339 or YYYY-MM-DD")
	}

	event := &domain.CalendarEvent{
		Title:       body.Title,
		Start:       start,
		Description: body.Description,
		Tags:        body.Tags,
	}
	if body.End != "" {
		end, ok := parseEventTime(body.End)
		if !ok {
			return ErrorResponse(c, 400, "invalid end: must be RFC3339 or YYYY-MM-DD")
		}
		event.End = &end
	}

	created, err := h.calendarService.CreateEvent(c.Context(), in.CreateEventRequest{
		UserID:     userID.String(),
		SourceID:   body.SourceID,
		CalendarID: body.CalendarID,
		Event:      event,
	})
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return c.Status(201).JSON(created)
}
