package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	engine "github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
	settlement "github.com/oddsly-wagering-ledger/internal/settlement_processor/service"
)

func newEventRouter(catalog *MockCatalogService, settler *MockSettlementService) http.Handler {
	h := NewEventHandler(newTestLogger(), catalog, settler)
	r := setupTestRouter()
	r.POST("/events", h.Create)
	r.GET("/events", h.List)
	r.GET("/events/:id", h.GetByID)
	r.PUT("/events/:id/odds", h.UpdateOdds)
	r.POST("/events/:id/live", h.MarkLive)
	r.POST("/events/:id/settle", h.Settle)
	return r
}

func sampleEvent(t *testing.T) *event.Event {
	t.Helper()
	ev, err := event.NewEvent("Arsenal", "Chelsea", "EPL", time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	return ev
}

func TestEventHandler_Create(t *testing.T) {
	t.Run("DefaultOdds", func(t *testing.T) {
		catalog := new(MockCatalogService)
		ev := sampleEvent(t)
		catalog.On("CreateEvent", mock.Anything, mock.MatchedBy(func(req engine.CreateEventRequest) bool {
			return req.HomeTeam == "Arsenal" && req.AwayTeam == "Chelsea" && req.Selections == nil && !req.StartsAt.IsZero()
		})).Return(ev, nil)

		body := `{"home_team":"Arsenal","away_team":"Chelsea","league":"EPL","starts_at":"2026-05-01T19:00:00Z"}`
		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodPost, "/events", "", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		var got EventResponse
		dataAs(t, decode(t, w), &got)
		assert.Equal(t, ev.ID.String(), got.ID)
		assert.Equal(t, "scheduled", got.Status)
		require.Len(t, got.Selections, 3)
		assert.Equal(t, "HOME", got.Selections[0].Code)
		assert.True(t, decimal.RequireFromString("2.1").Equal(got.Selections[0].Odds))
	})

	t.Run("LegacyLabels", func(t *testing.T) {
		catalog := new(MockCatalogService)
		catalog.On("CreateEvent", mock.Anything, mock.MatchedBy(func(req engine.CreateEventRequest) bool {
			return len(req.Selections) == 2 &&
				req.Selections[0].Code == event.SelectionHome &&
				req.Selections[1].Code == event.SelectionDraw
		})).Return(sampleEvent(t), nil)

		body := `{"home_team":"A","away_team":"B","starts_at":"2026-05-01T19:00:00Z","selections":[{"code":"П1","odds":"1.8"},{"code":"X","odds":"3.1"}]}`
		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodPost, "/events", "", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		catalog.AssertExpectations(t)
	})

	t.Run("UnknownSelection", func(t *testing.T) {
		catalog := new(MockCatalogService)

		body := `{"home_team":"A","away_team":"B","starts_at":"2026-05-01T19:00:00Z","selections":[{"code":"OVER","odds":"1.8"}]}`
		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodPost, "/events", "", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		catalog.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
	})

	t.Run("MissingTeams", func(t *testing.T) {
		catalog := new(MockCatalogService)

		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodPost, "/events", "", `{"starts_at":"2026-05-01T19:00:00Z"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEventHandler_Reads(t *testing.T) {
	ev := sampleEvent(t)

	t.Run("List", func(t *testing.T) {
		catalog := new(MockCatalogService)
		catalog.On("ListOpenEvents", mock.Anything).Return([]*event.Event{ev}, nil)

		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodGet, "/events", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got []EventResponse
		dataAs(t, decode(t, w), &got)
		assert.Len(t, got, 1)
	})

	t.Run("GetByID", func(t *testing.T) {
		catalog := new(MockCatalogService)
		catalog.On("GetEvent", mock.Anything, ev.ID).Return(ev, nil)

		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodGet, "/events/"+ev.ID.String(), "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		catalog := new(MockCatalogService)
		id := uuid.New()
		catalog.On("GetEvent", mock.Anything, id).Return(nil, event.ErrEventNotFound{EventID: id})

		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodGet, "/events/"+id.String(), "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		w := doRequest(t, newEventRouter(new(MockCatalogService), new(MockSettlementService)), http.MethodGet, "/events/abc", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEventHandler_UpdateOddsAndLive(t *testing.T) {
	ev := sampleEvent(t)

	t.Run("UpdateOdds", func(t *testing.T) {
		catalog := new(MockCatalogService)
		catalog.On("UpdateOdds", mock.Anything, ev.ID, mock.MatchedBy(func(sel []event.Selection) bool {
			return len(sel) == 1 && sel[0].Code == event.SelectionAway && sel[0].Odds.Equal(decimal.RequireFromString("3.05"))
		})).Return(ev, nil)

		body := `{"selections":[{"code":"AWAY","odds":"3.05"}]}`
		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodPut, "/events/"+ev.ID.String()+"/odds", "", body)

		assert.Equal(t, http.StatusOK, w.Code)
		catalog.AssertExpectations(t)
	})

	t.Run("UpdateOddsEmpty", func(t *testing.T) {
		catalog := new(MockCatalogService)

		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodPut, "/events/"+ev.ID.String()+"/odds", "", `{"selections":[]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UpdateOddsClosed", func(t *testing.T) {
		catalog := new(MockCatalogService)
		catalog.On("UpdateOdds", mock.Anything, ev.ID, mock.Anything).Return(nil, event.ErrEventClosed{EventID: ev.ID, Status: event.StatusFinished})

		body := `{"selections":[{"code":"HOME","odds":"1.5"}]}`
		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodPut, "/events/"+ev.ID.String()+"/odds", "", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MarkLive", func(t *testing.T) {
		catalog := new(MockCatalogService)
		live := *ev
		live.Status = event.StatusLive
		catalog.On("MarkLive", mock.Anything, ev.ID).Return(&live, nil)

		w := doRequest(t, newEventRouter(catalog, new(MockSettlementService)), http.MethodPost, "/events/"+ev.ID.String()+"/live", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got EventResponse
		dataAs(t, decode(t, w), &got)
		assert.Equal(t, "live", got.Status)
	})
}

func TestEventHandler_Settle(t *testing.T) {
	eventID := uuid.New()

	t.Run("Settled", func(t *testing.T) {
		settler := new(MockSettlementService)
		settler.On("Settle", mock.Anything, eventID, event.Score{Home: 2, Away: 1}).Return(&settlement.SettlementResult{
			EventID:  eventID,
			Winning:  event.SelectionHome,
			Resolved: 2,
			Won:      1,
			Lost:     1,
			PaidOut:  630,
			Settled:  true,
		}, nil)

		w := doRequest(t, newEventRouter(new(MockCatalogService), settler), http.MethodPost, "/events/"+eventID.String()+"/settle", "", `{"home":2,"away":1}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var got SettlementResponse
		dataAs(t, decode(t, w), &got)
		assert.Equal(t, "HOME", got.Winning)
		assert.Equal(t, int64(630), got.PaidOut)
		assert.True(t, got.Settled)
	})

	t.Run("GoallessDraw", func(t *testing.T) {
		settler := new(MockSettlementService)
		settler.On("Settle", mock.Anything, eventID, event.Score{Home: 0, Away: 0}).
			Return(&settlement.SettlementResult{EventID: eventID, Winning: event.SelectionDraw, Settled: true}, nil)

		w := doRequest(t, newEventRouter(new(MockCatalogService), settler), http.MethodPost, "/events/"+eventID.String()+"/settle", "", `{"home":0,"away":0}`)

		assert.Equal(t, http.StatusOK, w.Code)
		settler.AssertExpectations(t)
	})

	t.Run("AlreadySettled", func(t *testing.T) {
		settler := new(MockSettlementService)
		settler.On("Settle", mock.Anything, eventID, event.Score{Home: 2, Away: 1}).Return(nil, event.ErrEventAlreadySettled{EventID: eventID})

		w := doRequest(t, newEventRouter(new(MockCatalogService), settler), http.MethodPost, "/events/"+eventID.String()+"/settle", "", `{"home":2,"away":1}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ALREADY_SETTLED", decode(t, w).Error.Code)
	})

	t.Run("MissingScore", func(t *testing.T) {
		settler := new(MockSettlementService)

		w := doRequest(t, newEventRouter(new(MockCatalogService), settler), http.MethodPost, "/events/"+eventID.String()+"/settle", "", `{"home":2}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		settler.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything)
	})
}
