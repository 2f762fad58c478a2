// Package store is the Postgres-backed persistence layer. Every component
// shares one Store built around the process-wide *gorm.DB pool.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jimdaga/morning-gist/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the shared database handle.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a Store on top of an initialized connection pool.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// ---- users ----

// EnsureUser creates the user record on first login (plan print, billing
// stub demo) and refreshes name and last-login on every later login.
func (s *Store) EnsureUser(ctx context.Context, uid, email, name string) (*models.User, error) {
	now := s.now()
	user := models.User{
		UID:                      uid,
		Name:                     name,
		Plan:                     models.PlanPrint,
		StripeSubscriptionStatus: "demo",
		LastLoginAt:              &now,
	}
	if email != "" {
		user.Email = &email
	}

	err := s.db.WithContext(ctx).
		Where(models.User{UID: uid}).
		Assign(map[string]interface{}{"name": name, "last_login_at": now}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user %s: %w", uid, err)
	}
	return &user, nil
}

// GetUser loads a user by identity key.
func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", uid, err)
	}
	return &user, nil
}

// ListUsers returns every user record, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdatePreferences replaces the preference bag.
func (s *Store) UpdatePreferences(ctx context.Context, uid string, prefs models.Preferences) error {
	return s.updateUser(ctx, uid, map[string]interface{}{"prefs": datatypes.NewJSONType(prefs)})
}

// UpdateDelivery replaces the delivery settings.
func (s *Store) UpdateDelivery(ctx context.Context, uid string, delivery models.DeliverySettings) error {
	return s.updateUser(ctx, uid, map[string]interface{}{"delivery": datatypes.NewJSONType(delivery)})
}

// UpdatePlan changes the plan tier.
func (s *Store) UpdatePlan(ctx context.Context, uid string, plan models.Plan) error {
	return s.updateUser(ctx, uid, map[string]interface{}{"plan": plan})
}

func (s *Store) updateUser(ctx context.Context, uid string, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("uid = ?", uid).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", uid, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- calendar tokens ----

// LoadTokens finds the user's Google Calendar tokens, checking the dedicated
// record first and the legacy nested user field second. A location only
// counts when it holds an access or refresh token.
func (s *Store) LoadTokens(ctx context.Context, uid string) (models.TokenSet, models.TokenLocation, error) {
	var integration models.CalendarIntegration
	err := s.db.WithContext(ctx).Where("user_uid = ?", uid).First(&integration).Error
	switch {
	case err == nil:
		if tokens := integration.TokenSet(); tokens.HasAny() {
			return tokens, models.TokenLocation{Kind: models.TokenLocationIntegration, UserUID: uid}, nil
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return models.TokenSet{}, models.TokenLocation{}, fmt.Errorf("failed to load calendar integration: %w", err)
	}

	user, err := s.GetUser(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		return models.TokenSet{}, models.TokenLocation{}, nil
	}
	if err != nil {
		return models.TokenSet{}, models.TokenLocation{}, err
	}

	if nested := user.Integrations.Data().GoogleCalendar; nested != nil {
		if tokens := nested.TokenSet(); tokens.HasAny() {
			return tokens, models.TokenLocation{Kind: models.TokenLocationUserRecord, UserUID: uid}, nil
		}
	}

	return models.TokenSet{}, models.TokenLocation{}, nil
}

// SaveTokens merges tokens into the location they were loaded from.
func (s *Store) SaveTokens(ctx context.Context, loc models.TokenLocation, tokens models.TokenSet) error {
	switch loc.Kind {
	case models.TokenLocationIntegration:
		return s.upsertIntegration(ctx, loc.UserUID, tokens)
	case models.TokenLocationUserRecord:
		return s.saveLegacyTokens(ctx, loc.UserUID, tokens)
	default:
		return nil
	}
}

func (s *Store) upsertIntegration(ctx context.Context, uid string, tokens models.TokenSet) error {
	row := models.NewCalendarIntegration(uid, tokens)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "scope", "token_type", "id_token", "token_expiry", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save calendar integration: %w", err)
	}
	return nil
}

func (s *Store) saveLegacyTokens(ctx context.Context, uid string, tokens models.TokenSet) error {
	payload, err := json.Marshal(models.NewLegacyTokenSet(tokens, s.now()))
	if err != nil {
		return fmt.Errorf("failed to marshal legacy tokens: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("uid = ?", uid).
		Update("integrations", gorm.Expr(
			"jsonb_set(COALESCE(integrations, '{}'::jsonb), '{googleCalendar}', ?::jsonb, true)",
			string(payload),
		))
	if result.Error != nil {
		return fmt.Errorf("failed to save legacy calendar tokens: %w", result.Error)
	}
	return nil
}

// ---- gists ----

// SaveGist upserts the gist at (user_uid, date_key); a re-run overwrites it.
func (s *Store) SaveGist(ctx context.Context, gist *models.MorningGist) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_uid"}, {Name: "date_key"}},
		UpdateAll: true,
	}).Create(gist).Error
	if err != nil {
		return fmt.Errorf("failed to save gist %s/%s: %w", gist.UserUID, gist.DateKey, err)
	}
	return nil
}

// GetGist loads one gist by date key.
func (s *Store) GetGist(ctx context.Context, uid, dateKey string) (*models.MorningGist, error) {
	var gist models.MorningGist
	err := s.db.WithContext(ctx).Where("user_uid = ? AND date_key = ?", uid, dateKey).First(&gist).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch gist: %w", err)
	}
	return &gist, nil
}

// ListGists returns the user's archive, newest date first.
func (s *Store) ListGists(ctx context.Context, uid string, limit int) ([]models.MorningGist, error) {
	var gists []models.MorningGist
	err := s.db.WithContext(ctx).Where("user_uid = ?", uid).
		Order("date_key DESC").Limit(limit).Find(&gists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gists: %w", err)
	}
	return gists, nil
}

// UpdateGistDeliveryStatus records a delivery outcome reported by the fax worker.
func (s *Store) UpdateGistDeliveryStatus(ctx context.Context, uid, dateKey string, status models.DeliveryStatus, deliveredAt *time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gist models.MorningGist
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_uid = ? AND date_key = ?", uid, dateKey).First(&gist).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch gist: %w", err)
		}

		delivery := gist.Delivery.Data()
		delivery.Status = status
		if deliveredAt != nil {
			delivery.DeliveredAt = deliveredAt
		}

		return tx.Model(&gist).Update("delivery", datatypes.NewJSONType(delivery)).Error
	})
}

// ---- delivery logs & fax queue ----

// AppendDeliveryLog inserts an audit row.
func (s *Store) AppendDeliveryLog(ctx context.Context, entry *models.DeliveryLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append delivery log: %w", err)
	}
	return nil
}

// ListDeliveryLogs returns the user's log, newest first.
func (s *Store) ListDeliveryLogs(ctx context.Context, uid string, limit int) ([]models.DeliveryLog, error) {
	var logs []models.DeliveryLog
	err := s.db.WithContext(ctx).Where("user_uid = ?", uid).
		Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	return logs, nil
}

// CreateFaxJob appends a fax-queue entry.
func (s *Store) CreateFaxJob(ctx context.Context, job *models.FaxJob) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to queue fax: %w", err)
	}
	return nil
}

// UpdateFaxJobStatus marks the newest fax job for the user and day.
func (s *Store) UpdateFaxJobStatus(ctx context.Context, uid, dateKey string, status models.FaxJobStatus) error {
	var job models.FaxJob
	err := s.db.WithContext(ctx).Where("user_uid = ? AND date_key = ?", uid, dateKey).
		Order("id DESC").First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to fetch fax job: %w", err)
	}
	return s.db.WithContext(ctx).Model(&job).Update("status", status).Error
}
