package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oddsly-wagering-ledger/internal/api_gateway/middleware"
	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	engine "github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
	settlement "github.com/oddsly-wagering-ledger/internal/settlement_processor/service"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) OpenAccount(ctx context.Context, accountID string) (*account.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockLedgerService) GetAccount(ctx context.Context, accountID string) (*account.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockLedgerService) PlaceStake(ctx context.Context, accountID string, eventID uuid.UUID, sel stake.SelectionRequest, amount money.Money) (*engine.PlaceStakeResult, error) {
	args := m.Called(ctx, accountID, eventID, sel, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.PlaceStakeResult), args.Error(1)
}

// Deposit records how many options were passed instead of the options themselves
func (m *MockLedgerService) Deposit(ctx context.Context, accountID string, amount money.Money, method ledger.DepositMethod, opts ...engine.DepositOption) (*engine.MutationResult, error) {
	args := m.Called(ctx, accountID, amount, method, len(opts))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.MutationResult), args.Error(1)
}

func (m *MockLedgerService) Withdraw(ctx context.Context, accountID string, amount money.Money, destination string) (*engine.MutationResult, error) {
	args := m.Called(ctx, accountID, amount, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.MutationResult), args.Error(1)
}

func (m *MockLedgerService) VoidStake(ctx context.Context, stakeID uuid.UUID, reason string) (*engine.MutationResult, error) {
	args := m.Called(ctx, stakeID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.MutationResult), args.Error(1)
}

func (m *MockLedgerService) ListStakesByAccount(ctx context.Context, accountID string) ([]*stake.Stake, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stake.Stake), args.Error(1)
}

func (m *MockLedgerService) ListLedgerEntries(ctx context.Context, accountID string) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerService) ListHistory(ctx context.Context, accountID string, page, pageSize int) (*engine.HistoryPage, error) {
	args := m.Called(ctx, accountID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.HistoryPage), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateEvent(ctx context.Context, req engine.CreateEventRequest) (*event.Event, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockCatalogService) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockCatalogService) ListOpenEvents(ctx context.Context) ([]*event.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockCatalogService) UpdateOdds(ctx context.Context, id uuid.UUID, selections []event.Selection) (*event.Event, error) {
	args := m.Called(ctx, id, selections)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockCatalogService) MarkLive(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) Settle(ctx context.Context, eventID uuid.UUID, score event.Score) (*settlement.SettlementResult, error) {
	args := m.Called(ctx, eventID, score)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.SettlementResult), args.Error(1)
}

func (m *MockSettlementService) SettleOutcome(ctx context.Context, outcome event.Outcome) (*settlement.SettlementResult, error) {
	args := m.Called(ctx, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.SettlementResult), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// setupTestRouter mirrors the production middleware so identity and
// correlation ids are available to handlers
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

func withIdentity(r *gin.Engine) *gin.RouterGroup {
	return r.Group("", middleware.AccountIdentity())
}

func doRequest(t *testing.T, r http.Handler, method, path, accountID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accountID != "" {
		req.Header.Set(middleware.AccountIDHeader, accountID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// dataAs re-decodes the data field into out
func dataAs(t *testing.T, resp Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

var (
	_ engine.LedgerService         = (*MockLedgerService)(nil)
	_ engine.CatalogService        = (*MockCatalogService)(nil)
	_ settlement.SettlementService = (*MockSettlementService)(nil)
)
