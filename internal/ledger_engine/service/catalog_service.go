package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
)

// openEventsLimit bounds the public event listing
const openEventsLimit = 200

// CatalogServiceImpl implements CatalogService. Writes go to PostgreSQL and
// then drop the cached copy so placements see the new odds.
type CatalogServiceImpl struct {
	events  event.Repository
	catalog event.Catalog
	logger  *slog.Logger
}

func NewCatalogService(events event.Repository, catalog event.Catalog, logger *slog.Logger) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		events:  events,
		catalog: catalog,
		logger:  logger,
	}
}

var _ CatalogService = (*CatalogServiceImpl)(nil)

func (s *CatalogServiceImpl) CreateEvent(ctx context.Context, req CreateEventRequest) (*event.Event, error) {
	ev, err := event.NewEvent(req.HomeTeam, req.AwayTeam, req.League, req.StartsAt, req.Selections)
	if err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, err
	}

	s.logger.Info("Event created",
		"event_id", ev.ID.String(),
		"home_team", ev.HomeTeam,
		"away_team", ev.AwayTeam,
		"league", ev.League,
	)
	return ev, nil
}

func (s *CatalogServiceImpl) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return s.catalog.GetEvent(ctx, id)
}

func (s *CatalogServiceImpl) ListOpenEvents(ctx context.Context) ([]*event.Event, error) {
	return s.events.ListOpen(ctx, openEventsLimit)
}

// UpdateOdds replaces the odds offered on an open event. Stakes already
// placed keep the odds they were placed at.
func (s *CatalogServiceImpl) UpdateOdds(ctx context.Context, id uuid.UUID, selections []event.Selection) (*event.Event, error) {
	selections, err := event.NormalizeSelections(selections)
	if err != nil {
		return nil, err
	}
	if err := s.events.UpdateSelections(ctx, id, selections); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.logger.Info("Event odds updated", "event_id", id.String(), "selections", len(selections))
	return s.events.GetByID(ctx, id)
}

func (s *CatalogServiceImpl) MarkLive(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	if err := s.events.MarkLive(ctx, id); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.logger.Info("Event is live", "event_id", id.String())
	return s.events.GetByID(ctx, id)
}

func (s *CatalogServiceImpl) invalidate(ctx context.Context, id uuid.UUID) {
	// A stale entry expires with its TTL and placement re-checks odds under lock
	if err := s.catalog.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate cached event", "event_id", id.String(), "error", err)
	}
}
