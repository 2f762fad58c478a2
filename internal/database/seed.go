package database

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/morning-gist/internal/datekey"
	"github.com/jimdaga/morning-gist/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DevUserUID is the identity key of the seeded development user.
const DevUserUID = "dev-google-id-12345"

// SeedDevData populates the database with a development user and one
// sample gist. Idempotent: skips if the dev user already exists.
func SeedDevData(db *gorm.DB, logger *slog.Logger) error {
	var existing models.User
	err := db.Where("uid = ?", DevUserUID).First(&existing).Error
	if err == nil {
		logger.Info("Seed data already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	email := "dev@morninggist.local"
	hour, minute := 7, 30
	user := models.User{
		UID:   DevUserUID,
		Email: &email,
		Name:  "Dev User",
		Plan:  models.PlanPrint,
		Preferences: datatypes.NewJSONType(models.Preferences{
			Timezone:    "America/Chicago",
			City:        "Chicago, IL",
			NewsDomains: []string{"Tech", "Business"},
			Tone:        "calm, direct",
			MaxPages:    2,
		}),
		Delivery: datatypes.NewJSONType(models.DeliverySettings{
			Method:   models.DeliveryWeb,
			Schedule: &models.DeliverySchedule{Hour: &hour, Minute: &minute, WeekdaysOnly: true},
		}),
		StripeSubscriptionStatus: "demo",
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	now := time.Now()
	firstEvent := "9:00 AM — Sprint Review"
	gist := models.MorningGist{
		GistID:         uuid.NewString(),
		UserUID:        user.UID,
		DateKey:        datekey.FromTime(now, "America/Chicago"),
		Timezone:       "America/Chicago",
		WeatherSummary: "38° / 52° • Partly cloudy • rain after 2pm",
		FirstEvent:     &firstEvent,
		DayItems: datatypes.JSONSlice[models.CalendarItem]{
			{Time: "9:00 AM–9:30 AM", Title: "Sprint Review", Note: "Room 4B"},
			{Time: "All day", Title: "Quarterly planning"},
		},
		WorldItems: datatypes.JSONSlice[models.WorldItem]{
			{Headline: "Headline placeholder — one-line implication.", Implication: "Why it matters: signal vs noise in one sentence."},
		},
		GistBullets: datatypes.JSONSlice[string]{
			"Keep your attention narrow: one high-leverage block beats five scattered tasks.",
			"You’re allowed to ignore the noise—check the world once, then close it.",
			"Start clean: protect 9:00 AM — Sprint Review.",
		},
		OneThing: "Send one message that removes uncertainty today (then stop checking for replies).",
		Delivery: datatypes.NewJSONType(models.GistDelivery{
			Method: models.DeliveryWeb,
			Pages:  2,
			Status: models.DeliveryStatusQueued,
		}),
		CreatedAt: now,
	}
	if err := db.Create(&gist).Error; err != nil {
		return err
	}

	pages := 2
	entry := models.DeliveryLog{
		UserUID: user.UID,
		Type:    models.DeliveryLogMorning,
		Method:  models.DeliveryWeb,
		Status:  models.DeliveryStatusQueued,
		Pages:   &pages,
	}
	if err := db.Create(&entry).Error; err != nil {
		return err
	}

	logger.Info("Seeded dev data: 1 user, 1 gist, 1 delivery log", "uid", user.UID)
	return nil
}
