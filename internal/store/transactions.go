package store

import (
	"context"
	"database/sql"
	"fmt"

	"barterhub/internal/models"
)

// CreateTransaction creates a new barter transaction together with its
// offered-item lines in a single database transaction.
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction, lines []models.TransactionOffer) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO transactions (seller_id, buyer_id, item_id, status,
			seller_confirmation_code, buyer_confirmation_code,
			total_seller_points, total_buyer_points,
			chat_agreement_seller, chat_agreement_buyer, agreement_timestamp, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, txn, query,
		txn.SellerID, txn.BuyerID, txn.ItemID, txn.Status,
		txn.SellerConfirmationCode, txn.BuyerConfirmationCode,
		txn.TotalSellerPoints, txn.TotalBuyerPoints,
		txn.ChatAgreementSeller, txn.ChatAgreementBuyer, txn.AgreementTimestamp, txn.Notes); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	for i := range lines {
		lines[i].TransactionID = txn.ID
		if err := tx.GetContext(ctx, &lines[i].ID, `
			INSERT INTO transaction_offers (transaction_id, item_id, offered_by_id, quantity, points)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			lines[i].TransactionID, lines[i].ItemID, lines[i].OfferedByID, lines[i].Quantity, lines[i].Points); err != nil {
			return fmt.Errorf("failed to insert transaction offer: %w", err)
		}
	}

	return tx.Commit()
}

// GetTransactionByID retrieves a transaction by ID
func (s *Store) GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.GetContext(ctx, &txn, "SELECT * FROM transactions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetTransactionsByUserID retrieves transactions where the user is a party
func (s *Store) GetTransactionsByUserID(ctx context.Context, userID int64) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.SelectContext(ctx, &txns,
		"SELECT * FROM transactions WHERE seller_id = $1 OR buyer_id = $1 ORDER BY created_at DESC", userID)
	return txns, err
}

// UpdateTransactionLocked runs fn against a transaction row held under a
// FOR UPDATE lock and persists the mutated fields before committing.
// Near-simultaneous confirmations from both parties serialize here, so
// neither received_at write can be lost. fn returning an error rolls
// everything back and leaves the row untouched.
func (s *Store) UpdateTransactionLocked(ctx context.Context, id int64, fn func(*models.Transaction) error) (*models.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var txn models.Transaction
	err = tx.GetContext(ctx, &txn, "SELECT * FROM transactions WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}

	if err := fn(&txn); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1,
			seller_tracking_number = $2, buyer_tracking_number = $3,
			seller_shipped_at = $4, buyer_shipped_at = $5,
			seller_received_at = $6, buyer_received_at = $7,
			seller_confirmation_code = $8, buyer_confirmation_code = $9,
			seller_address = $10, buyer_address = $11,
			seller_phone = $12, buyer_phone = $13,
			chat_agreement_seller = $14, chat_agreement_buyer = $15, agreement_timestamp = $16,
			notes = $17, updated_at = NOW()
		WHERE id = $18`,
		txn.Status,
		txn.SellerTrackingNumber, txn.BuyerTrackingNumber,
		txn.SellerShippedAt, txn.BuyerShippedAt,
		txn.SellerReceivedAt, txn.BuyerReceivedAt,
		txn.SellerConfirmationCode, txn.BuyerConfirmationCode,
		txn.SellerAddress, txn.BuyerAddress,
		txn.SellerPhone, txn.BuyerPhone,
		txn.ChatAgreementSeller, txn.ChatAgreementBuyer, txn.AgreementTimestamp,
		txn.Notes, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetTransactionOffers retrieves the offered-item lines for a transaction
func (s *Store) GetTransactionOffers(ctx context.Context, transactionID int64) ([]models.TransactionOffer, error) {
	var offers []models.TransactionOffer
	err := s.db.SelectContext(ctx, &offers,
		"SELECT * FROM transaction_offers WHERE transaction_id = $1", transactionID)
	return offers, err
}

// CreateReview creates a review for a completed transaction
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (transaction_id, reviewer_id, reviewed_user_id, rating, comment,
			communication_rating, item_condition_rating, shipping_speed_rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, review, query,
		review.TransactionID, review.ReviewerID, review.ReviewedUserID, review.Rating, review.Comment,
		review.CommunicationRating, review.ItemConditionRating, review.ShippingSpeedRating)
}

// GetReviewByReviewer retrieves a reviewer's review on a transaction.
// Returns nil when the reviewer has not reviewed yet.
func (s *Store) GetReviewByReviewer(ctx context.Context, transactionID, reviewerID int64) (*models.Review, error) {
	var review models.Review
	err := s.db.GetContext(ctx, &review,
		"SELECT * FROM reviews WHERE transaction_id = $1 AND reviewer_id = $2", transactionID, reviewerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// GetReviewsForUser retrieves reviews received by a user
func (s *Store) GetReviewsForUser(ctx context.Context, userID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews,
		"SELECT * FROM reviews WHERE reviewed_user_id = $1 ORDER BY created_at DESC", userID)
	return reviews, err
}
