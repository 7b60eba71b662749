package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"barterhub/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateItem creates a new listing. Total points are recomputed before
// the insert so the stored value is never stale.
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	item.CalculatePoints()

	query := `
		INSERT INTO items (user_id, category_id, title, description, condition, desired_items,
			utility_score, scarcity_score, durability_score, portability_score, seasonal_score,
			total_points, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, item, query,
		item.UserID, item.CategoryID, item.Title, item.Description, item.Condition, item.DesiredItems,
		item.UtilityScore, item.ScarcityScore, item.DurabilityScore, item.PortabilityScore, item.SeasonalScore,
		item.TotalPoints, item.IsAvailable)
}

// GetItemByID retrieves an item by ID
func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemsByIDs retrieves multiple items by IDs
func (s *Store) GetItemsByIDs(ctx context.Context, ids []int64) ([]models.Item, error) {
	if len(ids) == 0 {
		return []models.Item{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM items WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.Item
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// GetAvailableItems retrieves available listings, newest first
func (s *Store) GetAvailableItems(ctx context.Context, limit, offset int) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM items WHERE is_available = TRUE ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	return items, err
}

// GetAvailableItemsByOwner retrieves a user's available items
func (s *Store) GetAvailableItemsByOwner(ctx context.Context, userID int64) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM items WHERE user_id = $1 AND is_available = TRUE ORDER BY created_at DESC", userID)
	return items, err
}

// UpdateItemScores updates an item's attribute scores and condition and
// persists the recomputed total points in the same statement.
func (s *Store) UpdateItemScores(ctx context.Context, item *models.Item) error {
	item.CalculatePoints()

	_, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET condition = $1, utility_score = $2, scarcity_score = $3, durability_score = $4,
			portability_score = $5, seasonal_score = $6, total_points = $7, updated_at = NOW()
		WHERE id = $8`,
		item.Condition, item.UtilityScore, item.ScarcityScore, item.DurabilityScore,
		item.PortabilityScore, item.SeasonalScore, item.TotalPoints, item.ID)
	return err
}

// SetItemAvailability flips an item's availability flag
func (s *Store) SetItemAvailability(ctx context.Context, itemID int64, available bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE items SET is_available = $1, updated_at = NOW() WHERE id = $2",
		available, itemID)
	return err
}

// HoldItemTx marks an available item unavailable within a transaction
// (FOR UPDATE lock). Returns false if the item was already taken.
func (s *Store) HoldItemTx(ctx context.Context, itemID int64) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var available bool
	err = tx.GetContext(ctx, &available,
		"SELECT is_available FROM items WHERE id = $1 FOR UPDATE", itemID)
	if err != nil {
		return false, fmt.Errorf("failed to lock item: %w", err)
	}

	if !available {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE items SET is_available = FALSE, updated_at = NOW() WHERE id = $1", itemID)
	if err != nil {
		return false, fmt.Errorf("failed to hold item: %w", err)
	}

	return true, tx.Commit()
}
