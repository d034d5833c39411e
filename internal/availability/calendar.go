package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

var ErrNoCalendar = errors.New("instructor has no calendar")

// GoogleCalendar derives instructor free windows from Google Calendar free/busy data
type GoogleCalendar struct {
	service *calendar.Service
}

// NewGoogleCalendar authenticates with a stored refresh token
func NewGoogleCalendar(ctx context.Context, clientID, clientSecret, refreshToken string) (*GoogleCalendar, error) {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarReadonlyScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now(),
	}
	return NewGoogleCalendarWithOptions(ctx, option.WithTokenSource(config.TokenSource(ctx, token)))
}

func NewGoogleCalendarWithOptions(ctx context.Context, opts ...option.ClientOption) (*GoogleCalendar, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleCalendar{service: service}, nil
}

// Busy returns the busy periods of a calendar between from and to
func (g *GoogleCalendar) Busy(ctx context.Context, calendarID string, from, to time.Time) ([]models.TimeWindow, error) {
	resp, err := g.service.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar %s missing from free/busy response", calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("calendar %s: %s", calendarID, cal.Errors[0].Reason)
	}

	busy := make([]models.TimeWindow, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			continue
		}
		busy = append(busy, models.TimeWindow{Start: start.UTC(), End: end.UTC()})
	}
	return busy, nil
}

// FreeWindows lists the gaps between an instructor's busy periods
func (g *GoogleCalendar) FreeWindows(ctx context.Context, instructor models.Instructor, from, to time.Time) ([]models.TimeWindow, error) {
	if instructor.CalendarID == "" {
		return nil, ErrNoCalendar
	}
	busy, err := g.Busy(ctx, instructor.CalendarID, from, to)
	if err != nil {
		return nil, err
	}
	return Invert(from, to, busy), nil
}

// Invert returns the parts of [from, to) not covered by any busy window
func Invert(from, to time.Time, busy []models.TimeWindow) []models.TimeWindow {
	sorted := make([]models.TimeWindow, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	free := make([]models.TimeWindow, 0)
	cursor := from
	for _, b := range sorted {
		if !b.End.After(cursor) {
			continue
		}
		if b.Start.After(cursor) {
			end := b.Start
			if end.After(to) {
				end = to
			}
			if end.After(cursor) {
				free = append(free, models.TimeWindow{Start: cursor, End: end})
			}
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(to) {
			return free
		}
	}
	if cursor.Before(to) {
		free = append(free, models.TimeWindow{Start: cursor, End: to})
	}
	return free
}
