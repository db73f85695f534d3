package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
)

const (
	// HistoryCollectionName is the name of the ledger history collection in MongoDB
	HistoryCollectionName = "ledger_entries"
)

// HistoryRepository implements ledger.HistoryRepository for MongoDB. It is a
// projection of the PostgreSQL ledger fed by the outbox poller.
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

var _ ledger.HistoryRepository = (*HistoryRepository)(nil)

// EnsureIndexes creates the unique entry index and the per-account timeline index
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(HistoryCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entry_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger history indexes: %w", err)
	}
	return nil
}

// Upsert writes entry keyed by its id. Replaying the same outbox message
// leaves a single document.
func (r *HistoryRepository) Upsert(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"entry_id": entry.ID}
	_, err := collection.ReplaceOne(ctx, filter, entry, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert ledger history entry",
			"entry_id", entry.ID.String(),
			"account_id", entry.AccountID,
			"error", err)
		return fmt.Errorf("failed to upsert ledger history entry: %w", err)
	}

	return nil
}

// GetByAccountID retrieves paginated ledger entries for an account.
// Results are sorted by creation time in descending order (newest first).
func (r *HistoryRepository) GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "entry_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger history",
			"account_id", accountID,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*ledger.Entry, 0, limit)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger history",
			"account_id", accountID,
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger history: %w", err)
	}

	return entries, nil
}

// CountByAccountID counts the total number of ledger entries for an account
func (r *HistoryRepository) CountByAccountID(ctx context.Context, accountID string) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"account_id": accountID})
	if err != nil {
		r.logger.Error("Failed to count ledger history",
			"account_id", accountID,
			"error", err)
		return 0, fmt.Errorf("failed to count ledger history: %w", err)
	}

	return count, nil
}
