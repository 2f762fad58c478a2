package calendar

import (
	"strings"
	"time"

	"github.com/jimdaga/morning-gist/internal/models"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	untitledEvent = "Untitled event"
	allDayLabel   = "All day"
	clockLayout   = "3:04 PM"
	noteSeparator = " • "
)

type eventKind int

const (
	eventUntimed eventKind = iota
	eventTimed
	eventAllDay
)

// event is the part of an API event the digest cares about.
type event struct {
	kind        eventKind
	title       string
	start       time.Time
	end         time.Time // zero when absent or unparseable
	location    string
	description string
}

func eventFromAPI(e *gcal.Event) event {
	ev := event{
		kind:        eventUntimed,
		title:       strings.TrimSpace(e.Summary),
		location:    e.Location,
		description: e.Description,
	}

	if e.Start != nil {
		switch {
		case e.Start.DateTime != "":
			if start, err := time.Parse(time.RFC3339, e.Start.DateTime); err == nil {
				ev.kind = eventTimed
				ev.start = start
			}
		case e.Start.Date != "":
			ev.kind = eventAllDay
		}
	}

	if ev.kind == eventTimed && e.End != nil && e.End.DateTime != "" {
		if end, err := time.Parse(time.RFC3339, e.End.DateTime); err == nil {
			ev.end = end
		}
	}

	return ev
}

func (e event) item(loc *time.Location) models.CalendarItem {
	item := models.CalendarItem{
		Title: e.title,
		Note:  joinNote(e.location, e.description),
	}
	if item.Title == "" {
		item.Title = untitledEvent
	}

	switch e.kind {
	case eventTimed:
		label := e.start.In(loc).Format(clockLayout)
		if !e.end.IsZero() {
			label += "–" + e.end.In(loc).Format(clockLayout)
		}
		item.Time = label
	case eventAllDay:
		item.Time = allDayLabel
	}

	return item
}

// joinNote combines the location with the first non-blank description line.
func joinNote(location, description string) string {
	var parts []string
	if l := strings.TrimSpace(location); l != "" {
		parts = append(parts, l)
	}
	for _, line := range strings.Split(description, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
			break
		}
	}
	return strings.Join(parts, noteSeparator)
}

func mapEvents(events []*gcal.Event, loc *time.Location) []models.CalendarItem {
	items := make([]models.CalendarItem, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		items = append(items, eventFromAPI(e).item(loc))
	}
	return items
}
