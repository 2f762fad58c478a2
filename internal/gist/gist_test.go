package gist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jimdaga/morning-gist/internal/logging"
	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/jimdaga/morning-gist/internal/store"
	"github.com/jimdaga/morning-gist/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// memStore keeps gists keyed by (uid, dateKey) like the unique index does.
type memStore struct {
	mu    sync.Mutex
	users []models.User
	gists map[string]*models.MorningGist
	logs  []models.DeliveryLog
	faxes []models.FaxJob
}

func newMemStore(users ...models.User) *memStore {
	return &memStore{users: users, gists: make(map[string]*models.MorningGist)}
}

func (m *memStore) SaveGist(_ context.Context, g *models.MorningGist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.gists[g.UserUID+"/"+g.DateKey] = &cp
	return nil
}

func (m *memStore) AppendDeliveryLog(_ context.Context, entry *models.DeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memStore) CreateFaxJob(_ context.Context, job *models.FaxJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = uint(len(m.faxes) + 1)
	m.faxes = append(m.faxes, *job)
	return nil
}

func (m *memStore) ListUsers(context.Context) ([]models.User, error) {
	return m.users, nil
}

func (m *memStore) GetUser(_ context.Context, uid string) (*models.User, error) {
	for i := range m.users {
		if m.users[i].UID == uid {
			return &m.users[i], nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeWeather struct {
	failFor string
}

func (f fakeWeather) Forecast(_ context.Context, q weather.Query) (*weather.Result, error) {
	if q.Q == f.failFor {
		return nil, &weather.APIError{StatusCode: 500, Body: "boom"}
	}
	return &weather.Result{Summary: "38° / 52° • Rain • rain after 2pm"}, nil
}

type fakeCalendar struct {
	items []models.CalendarItem
}

func (f fakeCalendar) FetchItems(context.Context, string, string, string) []models.CalendarItem {
	return f.items
}

type fakeWorld struct{}

func (fakeWorld) Items(context.Context, []string) []models.WorldItem {
	return []models.WorldItem{{Headline: "h", Implication: "Why it matters: i"}}
}

type fakeFax struct {
	mu   sync.Mutex
	jobs []models.FaxJob
	err  error
}

func (f *fakeFax) PublishFaxJob(_ context.Context, job models.FaxJob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return "1-0", f.err
}

func newGenerator(st *memStore, w fakeWeather, cal fakeCalendar, fax *fakeFax) *Generator {
	deps := Deps{Store: st, Weather: w, Calendar: cal, World: fakeWorld{}}
	if fax != nil {
		deps.Fax = fax
	}
	return NewGenerator(deps, logging.Discard())
}

func userWith(uid string, plan models.Plan, prefs models.Preferences, delivery models.DeliverySettings) models.User {
	return models.User{
		UID:         uid,
		Plan:        plan,
		Preferences: datatypes.NewJSONType(prefs),
		Delivery:    datatypes.NewJSONType(delivery),
	}
}

func TestGenerate_IdempotentPerDay(t *testing.T) {
	st := newMemStore()
	gen := newGenerator(st, fakeWeather{}, fakeCalendar{}, nil)
	user := userWith("u1", models.PlanWeb, models.Preferences{Timezone: "America/New_York"}, models.DeliverySettings{}).View()

	now := time.Date(2025, 1, 10, 12, 30, 0, 0, time.UTC)
	_, err := gen.Generate(context.Background(), user, now)
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), user, now)
	require.NoError(t, err)

	assert.Len(t, st.gists, 1, "one gist per user and date key")
	assert.Len(t, st.logs, 2, "delivery log is append-only")
	require.Contains(t, st.gists, "u1/2025-01-10")
}

func TestGenerate_ComposesDocument(t *testing.T) {
	st := newMemStore()
	cal := fakeCalendar{items: []models.CalendarItem{{Time: "9:00 AM–9:30 AM", Title: "Standup"}, {Title: "Later"}}}
	gen := newGenerator(st, fakeWeather{}, cal, nil)
	user := userWith("u1", "", models.Preferences{Timezone: "Not/AZone", MaxPages: 7}, models.DeliverySettings{}).View()

	// 03:00 UTC is still the previous day in New York.
	g, err := gen.Generate(context.Background(), user, time.Date(2025, 1, 10, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "2025-01-09", g.DateKey)
	assert.Equal(t, "America/New_York", g.Timezone)
	assert.Equal(t, "38° / 52° • Rain • rain after 2pm", g.WeatherSummary)
	require.NotNil(t, g.FirstEvent)
	assert.Equal(t, "9:00 AM–9:30 AM — Standup", *g.FirstEvent)
	assert.Equal(t, "Start clean: protect 9:00 AM–9:30 AM — Standup.", g.GistBullets[2])
	assert.Equal(t, OneThing, g.OneThing)
	assert.NotEmpty(t, g.GistID)

	delivery := g.Delivery.Data()
	assert.Equal(t, models.DeliveryFax, delivery.Method, "print plan defaults to fax")
	assert.Equal(t, 3, delivery.Pages)
	assert.Equal(t, models.DeliveryStatusQueued, delivery.Status)

	require.Len(t, st.logs, 1)
	assert.Equal(t, models.DeliveryLogMorning, st.logs[0].Type)
	assert.Equal(t, 3, *st.logs[0].Pages)
	assert.Empty(t, st.faxes, "no fax number, no fax job")
}

func TestGenerate_QueuesFax(t *testing.T) {
	st := newMemStore()
	fax := &fakeFax{err: errors.New("redis down")}
	gen := newGenerator(st, fakeWeather{}, fakeCalendar{}, fax)
	user := userWith("u1", models.PlanPrint, models.Preferences{}, models.DeliverySettings{Method: models.DeliveryFax, FaxNumber: "+15551234567"}).View()

	_, err := gen.Generate(context.Background(), user, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err, "a failed publish does not fail generation")

	require.Len(t, st.faxes, 1)
	assert.Equal(t, "+15551234567", st.faxes[0].FaxNumber)
	assert.Equal(t, models.FaxJobQueued, st.faxes[0].Status)
	assert.Len(t, fax.jobs, 1)

	web := userWith("u2", models.PlanPrint, models.Preferences{}, models.DeliverySettings{Method: models.DeliveryWeb, FaxNumber: "+15551234567"}).View()
	_, err = gen.Generate(context.Background(), web, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, st.faxes, 1, "web delivery never queues a fax")
}

func TestGenerate_WeatherErrorFails(t *testing.T) {
	st := newMemStore()
	gen := newGenerator(st, fakeWeather{failFor: DefaultCity}, fakeCalendar{}, nil)

	_, err := gen.Generate(context.Background(), userWith("u1", "", models.Preferences{}, models.DeliverySettings{}).View(), time.Now())

	var apiErr *weather.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Empty(t, st.gists)
	assert.Empty(t, st.logs)
}

func TestBatch_IsolatesFailures(t *testing.T) {
	st := newMemStore(
		userWith("ok-1", models.PlanWeb, models.Preferences{City: "Boston"}, models.DeliverySettings{}),
		userWith("bad", models.PlanWeb, models.Preferences{City: "Nowhere"}, models.DeliverySettings{}),
		userWith("ok-2", models.PlanWeb, models.Preferences{}, models.DeliverySettings{}),
	)
	gen := newGenerator(st, fakeWeather{failFor: "Nowhere"}, fakeCalendar{}, nil)
	batch := NewBatch(st, gen, logging.Discard())

	res, err := batch.RunAll(context.Background(), time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 3, Succeeded: 2, Failed: 1}, res)
	assert.Contains(t, st.gists, "ok-1/2025-01-10")
	assert.Contains(t, st.gists, "ok-2/2025-01-10")
	assert.NotContains(t, st.gists, "bad/2025-01-10")
}

type panicProducer struct{}

func (panicProducer) Generate(context.Context, models.UserView, time.Time) (*models.MorningGist, error) {
	panic("unexpected")
}

func TestBatch_RecoversPanics(t *testing.T) {
	st := newMemStore(userWith("u1", "", models.Preferences{}, models.DeliverySettings{}))
	res, err := NewBatch(st, panicProducer{}, logging.Discard()).RunAll(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
}

func TestBatch_SkipsBlankUIDs(t *testing.T) {
	st := newMemStore(
		userWith("", models.PlanWeb, models.Preferences{}, models.DeliverySettings{}),
		userWith("u1", models.PlanWeb, models.Preferences{}, models.DeliverySettings{}),
	)
	batch := NewBatch(st, newGenerator(st, fakeWeather{}, fakeCalendar{}, nil), logging.Discard())

	res, err := batch.RunAll(context.Background(), time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 1, Succeeded: 1}, res)
	assert.Len(t, st.gists, 1)
	assert.Contains(t, st.gists, "u1/2025-01-10")
}

func TestBatch_RunOne(t *testing.T) {
	st := newMemStore(userWith("u1", models.PlanWeb, models.Preferences{}, models.DeliverySettings{}))
	batch := NewBatch(st, newGenerator(st, fakeWeather{}, fakeCalendar{}, nil), logging.Discard())

	require.NoError(t, batch.RunOne(context.Background(), "u1", time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)))
	assert.Len(t, st.gists, 1)

	err := batch.RunOne(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 2, EstimatePages(0))
	assert.Equal(t, 1, EstimatePages(1))
	assert.Equal(t, 3, EstimatePages(9))

	assert.Nil(t, FirstEventLabel(nil))
	assert.Equal(t, "Lunch", *FirstEventLabel([]models.CalendarItem{{Title: "Lunch"}}))
	assert.Equal(t, "Start clean: protect your first block.", Bullets(nil)[2])

	assert.Equal(t, models.DeliveryWeb, ResolveDeliveryMethod(models.UserView{Plan: models.PlanWeb}))
	assert.Equal(t, models.DeliveryFax, ResolveDeliveryMethod(models.UserView{Plan: models.PlanLoop}))
	assert.Equal(t, models.DeliveryWeb, ResolveDeliveryMethod(models.UserView{
		Plan:     models.PlanPrint,
		Delivery: models.DeliverySettings{Method: models.DeliveryWeb},
	}))
}
