package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/oddsly-wagering-ledger/internal/settlement_processor/service"
)

// MockSettlementService for testing
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) Settle(ctx context.Context, eventID uuid.UUID, score event.Score) (*service.SettlementResult, error) {
	args := m.Called(ctx, eventID, score)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SettlementResult), args.Error(1)
}

func (m *MockSettlementService) SettleOutcome(ctx context.Context, outcome event.Outcome) (*service.SettlementResult, error) {
	args := m.Called(ctx, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SettlementResult), args.Error(1)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	eventID := uuid.New()
	outcome := event.Outcome{
		EventID:    eventID,
		Score:      event.Score{Home: 2, Away: 1},
		FinishedAt: time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC),
	}
	validJSON, err := json.Marshal(outcome)
	assert.NoError(t, err)
	missingID := []byte(`{"score":{"home":1,"away":0}}`)

	forEvent := mock.MatchedBy(func(o event.Outcome) bool {
		return o.EventID == eventID && o.Score == outcome.Score && o.FinishedAt.Equal(outcome.FinishedAt)
	})

	tests := []struct {
		name        string
		value       []byte
		setupMocks  func(svc *MockSettlementService, dlq *MockDeadLetterPublisher)
		expectError bool
		target      error
	}{
		{
			name:  "settled",
			value: validJSON,
			setupMocks: func(svc *MockSettlementService, _ *MockDeadLetterPublisher) {
				svc.On("SettleOutcome", mock.Anything, forEvent).
					Return(&service.SettlementResult{EventID: eventID, Resolved: 3, Settled: true}, nil)
			},
		},
		{
			name:  "redelivery of settled event is acknowledged",
			value: validJSON,
			setupMocks: func(svc *MockSettlementService, _ *MockDeadLetterPublisher) {
				svc.On("SettleOutcome", mock.Anything, forEvent).
					Return(nil, event.ErrEventAlreadySettled{EventID: eventID})
			},
		},
		{
			name:  "partial settlement is retried",
			value: validJSON,
			setupMocks: func(svc *MockSettlementService, _ *MockDeadLetterPublisher) {
				svc.On("SettleOutcome", mock.Anything, forEvent).
					Return(&service.SettlementResult{EventID: eventID, Failed: 1, StillPending: 1}, nil)
			},
			expectError: true,
			target:      ErrSettlementIncomplete,
		},
		{
			name:  "storage failure is retried",
			value: validJSON,
			setupMocks: func(svc *MockSettlementService, _ *MockDeadLetterPublisher) {
				svc.On("SettleOutcome", mock.Anything, forEvent).
					Return(nil, shared.ErrUnavailable)
			},
			expectError: true,
			target:      shared.ErrUnavailable,
		},
		{
			name:  "unknown event goes to DLQ",
			value: validJSON,
			setupMocks: func(svc *MockSettlementService, dlq *MockDeadLetterPublisher) {
				svc.On("SettleOutcome", mock.Anything, forEvent).
					Return(nil, event.ErrEventNotFound{EventID: eventID})
				dlq.On("PublishToDLQ", mock.Anything, "match-1", validJSON, mock.AnythingOfType("string")).Return(nil)
			},
		},
		{
			name:  "undecodable payload goes to DLQ",
			value: []byte("{not json"),
			setupMocks: func(_ *MockSettlementService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "match-1", []byte("{not json"), mock.AnythingOfType("string")).Return(nil)
			},
		},
		{
			name:  "missing event id goes to DLQ",
			value: missingID,
			setupMocks: func(_ *MockSettlementService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "match-1", missingID, mock.AnythingOfType("string")).Return(nil)
			},
		},
		{
			name:  "DLQ failure keeps message",
			value: []byte("{not json"),
			setupMocks: func(_ *MockSettlementService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "match-1", mock.Anything, mock.Anything).Return(errors.New("dlq down"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockSettlementService{}
			dlq := &MockDeadLetterPublisher{}
			tt.setupMocks(svc, dlq)

			handler := NewEventResultHandler(slog.Default(), svc, dlq)
			err := handler.HandleMessage(context.Background(), []byte("match-1"), tt.value)

			if tt.expectError {
				assert.Error(t, err)
				if tt.target != nil {
					assert.ErrorIs(t, err, tt.target)
				}
			} else {
				assert.NoError(t, err)
			}
			svc.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}

func TestHandleMessage_NoDLQ(t *testing.T) {
	handler := NewEventResultHandler(slog.Default(), &MockSettlementService{}, nil)

	err := handler.HandleMessage(context.Background(), []byte("k"), []byte("garbage"))

	assert.Error(t, err)
}
