package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barterhub/config"
	"barterhub/internal/broker"
	"barterhub/internal/models"
	"barterhub/internal/store"
	"barterhub/internal/tracking"
	"barterhub/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService drives the barter lifecycle from agreement
// through shipping, receipt confirmation, and auto-resolution.
type TransactionService struct {
	store          *store.Store
	items          *ItemClient
	trackingAdp    *tracking.Adapter
	eventPublisher *broker.EventPublisher
	lifecycle      config.LifecycleConfig
	logger         *zap.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(store *store.Store, items *ItemClient, trackingAdp *tracking.Adapter, eventPublisher *broker.EventPublisher, lifecycle config.LifecycleConfig) *TransactionService {
	return &TransactionService{
		store:          store,
		items:          items,
		trackingAdp:    trackingAdp,
		eventPublisher: eventPublisher,
		lifecycle:      lifecycle,
		logger:         util.GetLogger(),
	}
}

// ShippingInfoRequest carries one party's address and phone
type ShippingInfoRequest struct {
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
}

// ConfirmReceiptRequest carries the code found inside the received package
type ConfirmReceiptRequest struct {
	ConfirmationCode string `json:"confirmation_code" binding:"required"`
}

// GetTransaction returns a transaction visible to userID only
func (s *TransactionService) GetTransaction(ctx context.Context, txnID, userID int64) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.GetTransaction")
	defer span.End()

	txn, err := s.store.GetTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.IsParticipant(userID) {
		return nil, ErrAccessDenied
	}
	return txn, nil
}

// ListTransactions returns every transaction userID takes part in
func (s *TransactionService) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.ListTransactions")
	defer span.End()

	return s.store.GetTransactionsByUserID(ctx, userID)
}

// SetShippingInfo records one party's address and phone. Allowed in
// pending and agreed only; shipping details are frozen once packages
// move.
func (s *TransactionService) SetShippingInfo(ctx context.Context, txnID, userID int64, req *ShippingInfoRequest) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.SetShippingInfo")
	defer span.End()

	return s.store.UpdateTransactionLocked(ctx, txnID, func(txn *models.Transaction) error {
		party := txn.PartyOf(userID)
		if party == "" {
			return ErrAccessDenied
		}
		if txn.Status != models.TransactionStatusPending && txn.Status != models.TransactionStatusAgreed {
			return fmt.Errorf("%w: shipping info can only change before shipment", ErrInvalidState)
		}

		switch party {
		case models.PartySeller:
			txn.SellerAddress = req.Address
			txn.SellerPhone = req.Phone
		case models.PartyBuyer:
			txn.BuyerAddress = req.Address
			txn.BuyerPhone = req.Phone
		}
		return nil
	})
}

// SetChatAgreement records one party's agreement. When both flags are
// set and both shipping profiles are complete, the transaction moves
// from pending to agreed and both confirmation codes are issued.
// Re-agreeing is a no-op; the agreement timestamp never moves.
func (s *TransactionService) SetChatAgreement(ctx context.Context, txnID, userID int64) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.SetChatAgreement")
	defer span.End()

	var promoted bool
	var held []int64
	txn, err := s.store.UpdateTransactionLocked(ctx, txnID, func(txn *models.Transaction) error {
		if !txn.IsParticipant(userID) {
			return ErrAccessDenied
		}
		if txn.Terminal() {
			return fmt.Errorf("%w: transaction is closed", ErrInvalidState)
		}

		wasAgreed := txn.Status == models.TransactionStatusAgreed
		txn.SetChatAgreement(userID, time.Now())
		if txn.Status == models.TransactionStatusAgreed && !wasAgreed {
			if !txn.CanProceedToShipping() {
				return fmt.Errorf("%w: both parties must set shipping info before agreeing", ErrInvalidState)
			}
			// the direct-offer path reaches agreed here, so this is
			// where its traded items come off the market
			var err error
			held, err = s.holdTradedItems(ctx, txn)
			if err != nil {
				return err
			}
			txn.GenerateConfirmationCodes()
			promoted = true
		}
		return nil
	})
	if err != nil {
		s.releaseItems(ctx, held)
		return nil, err
	}

	if promoted {
		s.logger.Info("Transaction agreed",
			zap.Int64("transaction_id", txn.ID),
			zap.Time("agreed_at", *txn.AgreementTimestamp))
		s.publishAgreed(ctx, txn)
	}
	return txn, nil
}

// SetTrackingNumber stamps one party's tracking number and shipped
// time. When the second number lands on an agreed transaction the
// status becomes shipped.
func (s *TransactionService) SetTrackingNumber(ctx context.Context, txnID, userID int64, trackingNumber string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.SetTrackingNumber")
	defer span.End()

	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, fmt.Errorf("%w: tracking number is required", ErrValidation)
	}

	var shipped bool
	txn, err := s.store.UpdateTransactionLocked(ctx, txnID, func(txn *models.Transaction) error {
		party := txn.PartyOf(userID)
		if party == "" {
			return ErrAccessDenied
		}
		if txn.Status != models.TransactionStatusAgreed && txn.Status != models.TransactionStatusShipped {
			return fmt.Errorf("%w: transaction must be agreed before shipping", ErrInvalidState)
		}

		now := time.Now()
		switch party {
		case models.PartySeller:
			if txn.SellerTrackingNumber == "" {
				txn.SellerShippedAt = &now
			}
			txn.SellerTrackingNumber = trackingNumber
		case models.PartyBuyer:
			if txn.BuyerTrackingNumber == "" {
				txn.BuyerShippedAt = &now
			}
			txn.BuyerTrackingNumber = trackingNumber
		}

		if txn.Status == models.TransactionStatusAgreed && txn.BothShipped() {
			txn.Status = models.TransactionStatusShipped
			shipped = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if shipped {
		s.logger.Info("Both packages shipped", zap.Int64("transaction_id", txn.ID))
		event := &models.TransactionShippedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeTransactionShipped,
				Timestamp: time.Now(),
			},
			TransactionID:  txn.ID,
			SellerTracking: txn.SellerTrackingNumber,
			BuyerTracking:  txn.BuyerTrackingNumber,
		}
		if err := s.eventPublisher.PublishTransactionShipped(ctx, event); err != nil {
			s.logger.Error("Failed to publish TransactionShipped event", zap.Error(err))
		}
	}
	return txn, nil
}

// ConfirmReceipt verifies the code a party found inside the package
// they received. Each party must present the counterparty's code. The
// second successful confirmation completes the transaction.
func (s *TransactionService) ConfirmReceipt(ctx context.Context, txnID, userID int64, code string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.ConfirmReceipt")
	defer span.End()

	util.ConfirmationAttemptsTotal.Inc()
	code = strings.ToUpper(strings.TrimSpace(code))

	var completed bool
	txn, err := s.store.UpdateTransactionLocked(ctx, txnID, func(txn *models.Transaction) error {
		party := txn.PartyOf(userID)
		if party == "" {
			util.ConfirmationFailuresTotal.WithLabelValues("access_denied").Inc()
			return ErrAccessDenied
		}
		if txn.Status != models.TransactionStatusShipped {
			util.ConfirmationFailuresTotal.WithLabelValues("invalid_state").Inc()
			return fmt.Errorf("%w: nothing to confirm until both packages ship", ErrInvalidState)
		}
		if txn.ReceivedAtFor(party) != nil {
			util.ConfirmationFailuresTotal.WithLabelValues("duplicate").Inc()
			return ErrAlreadyConfirmed
		}
		if code != txn.ExpectedCodeFor(party) {
			util.ConfirmationFailuresTotal.WithLabelValues("wrong_code").Inc()
			return ErrInvalidConfirmationCode
		}

		now := time.Now()
		switch party {
		case models.PartySeller:
			txn.SellerReceivedAt = &now
		case models.PartyBuyer:
			txn.BuyerReceivedAt = &now
		}

		if txn.BothReceived() {
			txn.Status = models.TransactionStatusCompleted
			completed = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		s.finalizeCompletion(ctx, txn, false, "")
	} else {
		s.logger.Info("Receipt confirmed, awaiting counterparty",
			zap.Int64("transaction_id", txn.ID),
			zap.Int64("user_id", userID))
	}
	return txn, nil
}

// TrackShipment looks up live courier status for one side's package
func (s *TransactionService) TrackShipment(ctx context.Context, txnID, userID int64, party models.Party) (*tracking.Status, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.TrackShipment")
	defer span.End()

	txn, err := s.store.GetTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.IsParticipant(userID) {
		return nil, ErrAccessDenied
	}

	number := txn.SellerTrackingNumber
	if party == models.PartyBuyer {
		number = txn.BuyerTrackingNumber
	}
	if number == "" {
		return nil, fmt.Errorf("%w: no tracking number recorded for %s", ErrValidation, party)
	}

	return s.trackingAdp.Lookup(ctx, number), nil
}

// AutoResolutionResult describes what CheckAutoResolution decided
type AutoResolutionResult struct {
	Action         string              `json:"action"`
	Rule           string              `json:"rule,omitempty"`
	HoursRemaining float64             `json:"hours_remaining,omitempty"`
	Transaction    *models.Transaction `json:"transaction"`
}

const (
	autoActionNone      = "none"
	autoActionCompleted = "completed"
	autoActionCancelled = "cancelled"

	autoRuleBothDelivered = "both_delivered"
	autoRuleStale         = "stale_no_confirmation"
	autoRuleSafetyNet     = "safety_net"
)

// CheckAutoResolution evaluates the shipped-state timers and applies
// whichever fires. It runs on read, so a stale transaction resolves
// the next time anyone looks at it.
func (s *TransactionService) CheckAutoResolution(ctx context.Context, txnID int64) (*AutoResolutionResult, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.CheckAutoResolution")
	defer span.End()

	current, err := s.store.GetTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.TransactionStatusShipped {
		return &AutoResolutionResult{Action: autoActionNone, Transaction: current}, nil
	}

	sellerDelivered, buyerDelivered := s.deliveryStatus(ctx, current)

	var decision autoDecision
	txn, err := s.store.UpdateTransactionLocked(ctx, txnID, func(txn *models.Transaction) error {
		decision = evaluateAutoResolution(txn, sellerDelivered, buyerDelivered, time.Now(), s.lifecycle)
		switch decision.action {
		case autoActionCompleted:
			now := time.Now()
			if txn.SellerReceivedAt == nil {
				txn.SellerReceivedAt = &now
			}
			if txn.BuyerReceivedAt == nil {
				txn.BuyerReceivedAt = &now
			}
			txn.Status = models.TransactionStatusCompleted
		case autoActionCancelled:
			txn.Status = models.TransactionStatusCancelled
			txn.Notes = appendNote(txn.Notes, "Auto-cancelled: no receipt confirmed within the allowed window.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch decision.action {
	case autoActionCompleted:
		util.TransactionsAutoResolvedTotal.WithLabelValues(decision.rule).Inc()
		s.finalizeCompletion(ctx, txn, true, decision.rule)
	case autoActionCancelled:
		util.TransactionsAutoResolvedTotal.WithLabelValues(decision.rule).Inc()
		s.finalizeCancellation(ctx, txn, "auto-cancel: both parties unresponsive")
	}

	return &AutoResolutionResult{
		Action:         decision.action,
		Rule:           decision.rule,
		HoursRemaining: decision.hoursRemaining,
		Transaction:    txn,
	}, nil
}

type autoDecision struct {
	action         string
	rule           string
	hoursRemaining float64
}

// evaluateAutoResolution applies the shipped-state timer rules in
// priority order:
//  1. both packages delivered per tracking and the delivered grace
//     period has passed since last shipment: complete
//  2. the cancel window has passed with zero confirmations: cancel
//  3. the safety net window has passed: complete
//  4. otherwise report hours until the safety net fires
func evaluateAutoResolution(txn *models.Transaction, sellerDelivered, buyerDelivered bool, now time.Time, cfg config.LifecycleConfig) autoDecision {
	if txn.Status != models.TransactionStatusShipped {
		return autoDecision{action: autoActionNone}
	}

	elapsed := now.Sub(txn.LastShippedAt())

	if sellerDelivered && buyerDelivered && elapsed >= time.Duration(cfg.DeliveredConfirmHours)*time.Hour {
		return autoDecision{action: autoActionCompleted, rule: autoRuleBothDelivered}
	}

	noConfirmations := txn.SellerReceivedAt == nil && txn.BuyerReceivedAt == nil
	if noConfirmations && elapsed >= time.Duration(cfg.AutoCancelHours)*time.Hour {
		return autoDecision{action: autoActionCancelled, rule: autoRuleStale}
	}

	if elapsed >= time.Duration(cfg.SafetyNetHours)*time.Hour {
		return autoDecision{action: autoActionCompleted, rule: autoRuleSafetyNet}
	}

	remaining := time.Duration(cfg.SafetyNetHours)*time.Hour - elapsed
	return autoDecision{action: autoActionNone, hoursRemaining: remaining.Hours()}
}

// deliveryStatus consults the tracking adapter for both sides. The
// lookup never errors; an unreachable courier falls back to simulation.
func (s *TransactionService) deliveryStatus(ctx context.Context, txn *models.Transaction) (sellerDelivered, buyerDelivered bool) {
	if txn.SellerTrackingNumber != "" {
		if st := s.trackingAdp.Lookup(ctx, txn.SellerTrackingNumber); st != nil {
			sellerDelivered = st.Delivered
		}
	}
	if txn.BuyerTrackingNumber != "" {
		if st := s.trackingAdp.Lookup(ctx, txn.BuyerTrackingNumber); st != nil {
			buyerDelivered = st.Delivered
		}
	}
	return sellerDelivered, buyerDelivered
}

// FileDispute flags a transaction for manual review. Allowed to either
// participant any time before completion.
func (s *TransactionService) FileDispute(ctx context.Context, txnID, userID int64, reason string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.FileDispute")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a dispute needs a reason", ErrValidation)
	}

	txn, err := s.store.UpdateTransactionLocked(ctx, txnID, func(txn *models.Transaction) error {
		if !txn.IsParticipant(userID) {
			return ErrAccessDenied
		}
		if txn.Status != models.TransactionStatusAgreed && txn.Status != models.TransactionStatusShipped {
			return fmt.Errorf("%w: disputes open between agreement and completion", ErrInvalidState)
		}
		txn.Status = models.TransactionStatusDispute
		txn.Notes = appendNote(txn.Notes, fmt.Sprintf("Dispute filed by user %d: %s", userID, reason))
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.TransactionsDisputedTotal.Inc()
	s.logger.Warn("Dispute filed",
		zap.Int64("transaction_id", txn.ID),
		zap.Int64("filed_by", userID))

	event := &models.TransactionDisputedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransactionDisputed,
			Timestamp: time.Now(),
		},
		TransactionID: txn.ID,
		FiledByID:     userID,
		Reason:        reason,
	}
	if err := s.eventPublisher.PublishTransactionDisputed(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionDisputed event", zap.Error(err))
	}
	return txn, nil
}

// CancelTransaction backs out of a deal that has not shipped yet
func (s *TransactionService) CancelTransaction(ctx context.Context, txnID, userID int64, reason string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.CancelTransaction")
	defer span.End()

	txn, err := s.store.UpdateTransactionLocked(ctx, txnID, func(txn *models.Transaction) error {
		if !txn.IsParticipant(userID) {
			return ErrAccessDenied
		}
		if txn.Status != models.TransactionStatusPending && txn.Status != models.TransactionStatusAgreed {
			return fmt.Errorf("%w: only unshipped transactions can be cancelled", ErrInvalidState)
		}
		txn.Status = models.TransactionStatusCancelled
		if reason != "" {
			txn.Notes = appendNote(txn.Notes, fmt.Sprintf("Cancelled by user %d: %s", userID, reason))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.finalizeCancellation(ctx, txn, reason)
	return txn, nil
}

// SubmitReviewRequest carries a post-completion review
type SubmitReviewRequest struct {
	Rating              int    `json:"rating" binding:"required"`
	Comment             string `json:"comment"`
	CommunicationRating int    `json:"communication_rating"`
	ItemConditionRating int    `json:"item_condition_rating"`
	ShippingSpeedRating int    `json:"shipping_speed_rating"`
}

// SubmitReview records a rating for the counterparty. One review per
// participant per transaction, completed transactions only.
func (s *TransactionService) SubmitReview(ctx context.Context, txnID, userID int64, req *SubmitReviewRequest) (*models.Review, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.SubmitReview")
	defer span.End()

	if err := validateReview(req); err != nil {
		return nil, err
	}

	txn, err := s.store.GetTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !txn.IsParticipant(userID) {
		return nil, ErrAccessDenied
	}
	if txn.Status != models.TransactionStatusCompleted {
		return nil, fmt.Errorf("%w: reviews open after completion", ErrInvalidState)
	}

	existing, err := s.store.GetReviewByReviewer(ctx, txnID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: review already submitted", ErrValidation)
	}

	review := &models.Review{
		TransactionID:       txnID,
		ReviewerID:          userID,
		ReviewedUserID:      txn.CounterpartyID(userID),
		Rating:              req.Rating,
		Comment:             req.Comment,
		CommunicationRating: req.CommunicationRating,
		ItemConditionRating: req.ItemConditionRating,
		ShippingSpeedRating: req.ShippingSpeedRating,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.Info("Review submitted",
		zap.Int64("transaction_id", txnID),
		zap.Int64("reviewer_id", userID),
		zap.Int("rating", req.Rating))
	return review, nil
}

// validateReview checks the rating ranges. The overall rating is
// required; sub-ratings are optional and 0 means not provided.
func validateReview(req *SubmitReviewRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return fmt.Errorf("%w: overall rating runs from 1 to 5", ErrValidation)
	}
	subs := []int{req.CommunicationRating, req.ItemConditionRating, req.ShippingSpeedRating}
	for _, r := range subs {
		if r != 0 && (r < 1 || r > 5) {
			return fmt.Errorf("%w: sub-ratings run from 1 to 5 when provided", ErrValidation)
		}
	}
	return nil
}

// holdTradedItems takes the listing plus every offered line off the
// market. The listing must still be available or the promotion fails;
// an offered line that cannot be held is logged and skipped, matching
// the acceptance path. Returns the ids actually held so the caller
// can release them if the surrounding update fails.
func (s *TransactionService) holdTradedItems(ctx context.Context, txn *models.Transaction) ([]int64, error) {
	held := make([]int64, 0, 4)

	ok, err := s.items.HoldItem(ctx, txn.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to hold listing: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: listed item is no longer available", ErrInvalidState)
	}
	held = append(held, txn.ItemID)

	lines, err := s.store.GetTransactionOffers(ctx, txn.ID)
	if err != nil {
		s.releaseItems(ctx, held)
		return nil, fmt.Errorf("failed to load offered lines: %w", err)
	}
	for _, line := range lines {
		ok, err := s.items.HoldItem(ctx, line.ItemID)
		if err != nil || !ok {
			s.logger.Warn("Offered item could not be held",
				zap.Int64("item_id", line.ItemID),
				zap.Error(err))
			continue
		}
		held = append(held, line.ItemID)
	}
	return held, nil
}

func (s *TransactionService) releaseItems(ctx context.Context, held []int64) {
	for _, id := range held {
		if err := s.items.ReleaseItem(ctx, id); err != nil {
			s.logger.Error("Failed to release held item",
				zap.Int64("item_id", id),
				zap.Error(err))
		}
	}
}

// finalizeCompletion fires the side effects after a transaction
// reaches completed: metrics and the completion event. The traded
// items were already held at agreement and stay off the market.
func (s *TransactionService) finalizeCompletion(ctx context.Context, txn *models.Transaction, auto bool, rule string) {
	util.TransactionsCompletedTotal.Inc()
	s.logger.Info("Transaction completed",
		zap.Int64("transaction_id", txn.ID),
		zap.Bool("auto_resolved", auto),
		zap.String("rule", rule))

	event := &models.TransactionCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransactionCompleted,
			Timestamp: time.Now(),
		},
		TransactionID: txn.ID,
		SellerID:      txn.SellerID,
		BuyerID:       txn.BuyerID,
		AutoResolved:  auto,
	}
	if err := s.eventPublisher.PublishTransactionCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionCompleted event", zap.Error(err))
	}
}

// finalizeCancellation releases held items back to the market and
// publishes the cancellation event.
func (s *TransactionService) finalizeCancellation(ctx context.Context, txn *models.Transaction, reason string) {
	util.TransactionsCancelledTotal.Inc()
	s.logger.Info("Transaction cancelled",
		zap.Int64("transaction_id", txn.ID),
		zap.String("reason", reason))

	if err := s.items.ReleaseItem(ctx, txn.ItemID); err != nil {
		s.logger.Error("Failed to release listed item",
			zap.Int64("item_id", txn.ItemID),
			zap.Error(err))
	}
	offers, err := s.store.GetTransactionOffers(ctx, txn.ID)
	if err != nil {
		s.logger.Error("Failed to load offered lines for release", zap.Error(err))
	} else {
		for _, line := range offers {
			if err := s.items.ReleaseItem(ctx, line.ItemID); err != nil {
				s.logger.Error("Failed to release offered item",
					zap.Int64("item_id", line.ItemID),
					zap.Error(err))
			}
		}
	}

	event := &models.TransactionCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransactionCancelled,
			Timestamp: time.Now(),
		},
		TransactionID: txn.ID,
		Reason:        reason,
	}
	if err := s.eventPublisher.PublishTransactionCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionCancelled event", zap.Error(err))
	}
}

func (s *TransactionService) publishAgreed(ctx context.Context, txn *models.Transaction) {
	event := &models.TransactionAgreedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransactionAgreed,
			Timestamp: time.Now(),
		},
		TransactionID: txn.ID,
		SellerID:      txn.SellerID,
		BuyerID:       txn.BuyerID,
		SellerPoints:  txn.TotalSellerPoints,
		BuyerPoints:   txn.TotalBuyerPoints,
	}
	if err := s.eventPublisher.PublishTransactionAgreed(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionAgreed event", zap.Error(err))
	}
}

func appendNote(existing, note string) string {
	stamp := time.Now().Format("2006-01-02 15:04")
	line := fmt.Sprintf("[%s] %s", stamp, note)
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
