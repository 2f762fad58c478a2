// Package account serves the caller's account record and its settings.
package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jimdaga/morning-gist/internal/auth"
	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/jimdaga/morning-gist/internal/store"
)

const maxBodyBytes = 64 << 10

// Store is the account side of the user store.
type Store interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	UpdatePreferences(ctx context.Context, uid string, prefs models.Preferences) error
	UpdateDelivery(ctx context.Context, uid string, delivery models.DeliverySettings) error
	UpdatePlan(ctx context.Context, uid string, plan models.Plan) error
	LoadTokens(ctx context.Context, uid string) (models.TokenSet, models.TokenLocation, error)
}

// Account is the account payload returned to clients.
type Account struct {
	UID                      string                  `json:"uid"`
	Email                    *string                 `json:"email"`
	Name                     string                  `json:"name"`
	Plan                     models.Plan             `json:"plan"`
	Preferences              models.Preferences      `json:"prefs"`
	Delivery                 models.DeliverySettings `json:"delivery"`
	StripeSubscriptionStatus string                  `json:"stripeSubscriptionStatus"`
	CalendarConnected        bool                    `json:"calendarConnected"`
}

type scheduleRequest struct {
	Hour         *int `json:"hour" binding:"omitempty,min=0,max=23"`
	Minute       *int `json:"minute" binding:"omitempty,min=0,max=59"`
	WeekdaysOnly bool `json:"weekdaysOnly"`
}

type deliveryRequest struct {
	Method    string           `json:"method" binding:"required,oneof=web fax"`
	FaxNumber string           `json:"faxNumber" binding:"omitempty,e164"`
	Schedule  *scheduleRequest `json:"schedule"`
}

type planRequest struct {
	Plan string `json:"plan" binding:"required,oneof=web print loop"`
}

// Handlers serves /api/account.
type Handlers struct {
	store  Store
	logger *slog.Logger
}

// NewHandlers creates account handlers.
func NewHandlers(s Store, logger *slog.Logger) *Handlers {
	return &Handlers{store: s, logger: logger}
}

// Get returns the caller's account
func (h *Handlers) Get(c *gin.Context) {
	h.respondAccount(c, auth.CurrentUID(c))
}

// UpdatePreferences replaces the caller's preferences
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	prefs, fields, err := ParsePreferences(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if fields != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid preferences", "fields": fields})
		return
	}

	uid := auth.CurrentUID(c)
	if err := h.store.UpdatePreferences(c.Request.Context(), uid, prefs); err != nil {
		h.storeError(c, uid, err)
		return
	}
	h.respondAccount(c, uid)
}

// UpdateDelivery replaces the caller's delivery settings
func (h *Handlers) UpdateDelivery(c *gin.Context) {
	var req deliveryRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Method == string(models.DeliveryFax) && req.FaxNumber == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Invalid delivery settings",
			"fields": FieldErrors{"faxNumber": "required for fax delivery"},
		})
		return
	}

	settings := models.DeliverySettings{
		Method:    models.DeliveryMethod(req.Method),
		FaxNumber: req.FaxNumber,
	}
	if req.Schedule != nil {
		settings.Schedule = &models.DeliverySchedule{
			Hour:         req.Schedule.Hour,
			Minute:       req.Schedule.Minute,
			WeekdaysOnly: req.Schedule.WeekdaysOnly,
		}
	}

	uid := auth.CurrentUID(c)
	if err := h.store.UpdateDelivery(c.Request.Context(), uid, settings); err != nil {
		h.storeError(c, uid, err)
		return
	}
	h.respondAccount(c, uid)
}

// UpdatePlan sets the caller's plan. Billing is not wired; only the
// default delivery method follows the plan.
func (h *Handlers) UpdatePlan(c *gin.Context) {
	var req planRequest
	if !bindJSON(c, &req) {
		return
	}

	uid := auth.CurrentUID(c)
	if err := h.store.UpdatePlan(c.Request.Context(), uid, models.Plan(req.Plan)); err != nil {
		h.storeError(c, uid, err)
		return
	}
	h.respondAccount(c, uid)
}

func (h *Handlers) respondAccount(c *gin.Context, uid string) {
	ctx := c.Request.Context()

	user, err := h.store.GetUser(ctx, uid)
	if err != nil {
		h.storeError(c, uid, err)
		return
	}

	_, loc, err := h.store.LoadTokens(ctx, uid)
	if err != nil {
		h.logger.Warn("Failed to check calendar connection", "user_id", uid, "error", err)
	}

	c.JSON(http.StatusOK, Account{
		UID:                      user.UID,
		Email:                    user.Email,
		Name:                     user.Name,
		Plan:                     user.View().Plan,
		Preferences:              user.Preferences.Data(),
		Delivery:                 user.Delivery.Data(),
		StripeSubscriptionStatus: user.StripeSubscriptionStatus,
		CalendarConnected:        loc.Kind != models.TokenLocationNone,
	})
}

func (h *Handlers) storeError(c *gin.Context, uid string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	h.logger.Error("Account store error", "user_id", uid, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update account"})
}

// bindJSON binds and validates the body, writing 400 for malformed JSON and
// 422 with per-field errors for failed validation.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := FieldErrors{}
		for _, fe := range verrs {
			fields[jsonField(fe)] = describe(fe)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": fields})
		return false
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
	return false
}

// jsonField lower-cases the first letter of each namespace segment below the
// request struct, e.g. deliveryRequest.Schedule.Hour -> schedule.hour.
func jsonField(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "e164":
		return "must be an E.164 phone number"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
