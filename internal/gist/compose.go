package gist

import (
	"strings"

	"github.com/jimdaga/morning-gist/internal/models"
)

const (
	// DefaultCity is the weather query when the user has not set one.
	DefaultCity = "New York, NY"

	// OneThing is the fixed closing nudge of every gist.
	OneThing = "Send one message that removes uncertainty today (then stop checking for replies)."

	maxPages     = 3
	defaultPages = 2
)

// DefaultNewsDomains are used when the user has not picked any.
var DefaultNewsDomains = []string{"Tech", "Business", "Culture"}

// ResolveDeliveryMethod picks the explicit method, else web for the web
// plan, else fax.
func ResolveDeliveryMethod(u models.UserView) models.DeliveryMethod {
	if u.Delivery.Method != "" {
		return u.Delivery.Method
	}
	if u.Plan == models.PlanWeb {
		return models.DeliveryWeb
	}
	return models.DeliveryFax
}

// EstimatePages caps a positive preference at three pages, else two.
func EstimatePages(pref int) int {
	if pref > 0 {
		return min(pref, maxPages)
	}
	return defaultPages
}

// FirstEventLabel describes the first calendar item, or nil when there is none.
func FirstEventLabel(items []models.CalendarItem) *string {
	if len(items) == 0 {
		return nil
	}
	first := items[0]
	label := first.Title
	if first.Time != "" {
		label = first.Time + " — " + first.Title
	}
	return &label
}

// Bullets returns the coaching copy. The third bullet names the first event.
func Bullets(firstEvent *string) []string {
	protect := "protect your first block"
	if firstEvent != nil && strings.TrimSpace(*firstEvent) != "" {
		protect = "protect " + *firstEvent
	}
	return []string{
		"Keep your attention narrow: one high-leverage block beats five scattered tasks.",
		"You’re allowed to ignore the noise—check the world once, then close it.",
		"Start clean: " + protect + ".",
	}
}

func cityFor(p models.Preferences) string {
	if c := strings.TrimSpace(p.City); c != "" {
		return c
	}
	return DefaultCity
}

func domainsFor(p models.Preferences) []string {
	if len(p.NewsDomains) == 0 {
		return DefaultNewsDomains
	}
	return p.NewsDomains
}
