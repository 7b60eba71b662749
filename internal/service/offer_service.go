package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"barterhub/internal/broker"
	"barterhub/internal/models"
	"barterhub/internal/store"
	"barterhub/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OfferService handles offer negotiation inside chat rooms
type OfferService struct {
	store          *store.Store
	items          *ItemClient
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOfferService creates a new offer service
func NewOfferService(store *store.Store, items *ItemClient, eventPublisher *broker.EventPublisher) *OfferService {
	return &OfferService{
		store:          store,
		items:          items,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// OfferedItemRequest is one offered line in a submission
type OfferedItemRequest struct {
	ItemID   int64  `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// SubmitOfferRequest represents a request to submit an offer proposal
type SubmitOfferRequest struct {
	RoomID         int64                `json:"-"`
	ProposerID     int64                `json:"-"`
	OfferedItems   []OfferedItemRequest `json:"offered_items"`
	RequestedItems []string             `json:"requested_items"`
}

// RespondOfferRequest represents an accept/decline response to a proposal
type RespondOfferRequest struct {
	ResponderID int64
	Accept      bool
	Reason      string
}

// SubmitOffer records a new proposal in a negotiation room. Offered
// items that the proposer does not own, or that are off the market,
// are silently skipped rather than failing the whole submission.
func (s *OfferService) SubmitOffer(ctx context.Context, req *SubmitOfferRequest) (*models.Proposal, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.SubmitOffer")
	defer span.End()

	if len(req.OfferedItems) == 0 && len(req.RequestedItems) == 0 {
		util.OffersFailedTotal.WithLabelValues("empty_offer").Inc()
		return nil, fmt.Errorf("%w: offer must contain offered items or requested items", ErrValidation)
	}

	room, err := s.store.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if req.ProposerID != room.User1ID && req.ProposerID != room.User2ID {
		return nil, fmt.Errorf("%w: not a member of this negotiation", ErrAccessDenied)
	}

	valid, items, err := s.validOfferedItems(ctx, req.ProposerID, req.OfferedItems)
	if err != nil {
		return nil, err
	}
	if len(valid) == 0 && len(req.RequestedItems) == 0 {
		util.OffersFailedTotal.WithLabelValues("no_valid_items").Inc()
		return nil, fmt.Errorf("%w: no valid offered items", ErrValidation)
	}

	offeredJSON, err := json.Marshal(valid)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal offered items: %w", err)
	}
	requestedJSON := ""
	if len(req.RequestedItems) > 0 {
		data, err := json.Marshal(req.RequestedItems)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal requested items: %w", err)
		}
		requestedJSON = string(data)
	}

	subtotal := offerSubtotal(valid, items)
	summary := renderOfferSummary(valid, items, req.RequestedItems, subtotal)

	proposal := &models.Proposal{
		RoomID:        req.RoomID,
		ProposerID:    req.ProposerID,
		OfferedJSON:   string(offeredJSON),
		RequestedJSON: requestedJSON,
		Summary:       summary,
		Status:        models.ProposalStatusPending,
	}

	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	msg := &models.ChatMessage{
		RoomID:      req.RoomID,
		SenderID:    req.ProposerID,
		Message:     summary,
		MessageType: models.MessageTypeOffer,
	}
	if err := s.store.CreateChatMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to append offer message", zap.Error(err))
	}

	if err := s.store.UpdateRoomStatus(ctx, req.RoomID, models.RoomStatusNegotiating); err != nil {
		s.logger.Error("Failed to update room status", zap.Error(err))
	}

	util.OffersSubmittedTotal.Inc()
	s.logger.Info("Offer submitted",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("room_id", req.RoomID),
		zap.Int("points", subtotal))

	event := &models.OfferSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOfferSubmitted,
			Timestamp: time.Now(),
		},
		ProposalID: proposal.ID,
		RoomID:     req.RoomID,
		ProposerID: req.ProposerID,
		Points:     subtotal,
	}
	if err := s.eventPublisher.PublishOfferSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OfferSubmitted event", zap.Error(err))
	}

	return proposal, nil
}

// RespondToOffer resolves a pending proposal. Accepting creates the
// barter transaction; declining only closes the proposal. Either way a
// system message describing the outcome lands in the transcript.
func (s *OfferService) RespondToOffer(ctx context.Context, proposalID int64, req *RespondOfferRequest) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.RespondToOffer")
	defer span.End()

	proposal, err := s.store.GetProposalByID(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load proposal: %w", err)
	}

	if err := validateResponder(proposal, req.ResponderID); err != nil {
		return nil, err
	}

	room, err := s.store.GetRoomByID(ctx, proposal.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if req.ResponderID != room.User1ID && req.ResponderID != room.User2ID {
		return nil, fmt.Errorf("%w: not a member of this negotiation", ErrAccessDenied)
	}

	if !req.Accept {
		return nil, s.declineOffer(ctx, proposal, req)
	}
	return s.acceptOffer(ctx, proposal, room, req)
}

func (s *OfferService) declineOffer(ctx context.Context, proposal *models.Proposal, req *RespondOfferRequest) error {
	ok, err := s.store.ResolveProposal(ctx, proposal.ID, models.ProposalStatusDeclined)
	if err != nil {
		return fmt.Errorf("failed to resolve proposal: %w", err)
	}
	if !ok {
		return ErrAlreadyResolved
	}

	text := "Offer declined."
	if req.Reason != "" {
		text = fmt.Sprintf("Offer declined: %s", req.Reason)
	}
	s.appendSystemMessage(ctx, proposal.RoomID, req.ResponderID, text)

	util.OffersDeclinedTotal.Inc()
	s.logger.Info("Offer declined", zap.Int64("proposal_id", proposal.ID))

	event := &models.OfferDeclinedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOfferDeclined,
			Timestamp: time.Now(),
		},
		ProposalID: proposal.ID,
		RoomID:     proposal.RoomID,
		Reason:     req.Reason,
	}
	if err := s.eventPublisher.PublishOfferDeclined(ctx, event); err != nil {
		s.logger.Error("Failed to publish OfferDeclined event", zap.Error(err))
	}

	return nil
}

func (s *OfferService) acceptOffer(ctx context.Context, proposal *models.Proposal, room *models.ChatRoom, req *RespondOfferRequest) (*models.Transaction, error) {
	listing, err := s.store.GetItemByID(ctx, room.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listed item: %w", err)
	}

	// roles follow listing ownership: the listing's owner is the seller
	sellerID := listing.UserID
	buyerID := room.User1ID
	if buyerID == sellerID {
		buyerID = room.User2ID
	}

	offered := make([]OfferedItemRequest, 0, len(proposal.OfferedItems()))
	for _, line := range proposal.OfferedItems() {
		offered = append(offered, OfferedItemRequest{ItemID: line.ItemID, Quantity: line.Quantity, Note: line.Note})
	}
	valid, items, err := s.validOfferedItems(ctx, proposal.ProposerID, offered)
	if err != nil {
		return nil, err
	}

	held, err := s.holdItems(ctx, listing.ID, valid)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.ResolveProposal(ctx, proposal.ID, models.ProposalStatusAccepted)
	if err != nil {
		s.releaseItems(ctx, held)
		return nil, fmt.Errorf("failed to resolve proposal: %w", err)
	}
	if !ok {
		s.releaseItems(ctx, held)
		return nil, ErrAlreadyResolved
	}

	now := time.Now()
	txn := &models.Transaction{
		SellerID:            sellerID,
		BuyerID:             buyerID,
		ItemID:              listing.ID,
		Status:              models.TransactionStatusAgreed,
		TotalSellerPoints:   listing.TotalPoints,
		TotalBuyerPoints:    offerSubtotal(valid, items),
		ChatAgreementSeller: true,
		ChatAgreementBuyer:  true,
		AgreementTimestamp:  &now,
	}
	// acceptance is the mutual agreement; codes are issued on entry to agreed
	txn.GenerateConfirmationCodes()

	lines := make([]models.TransactionOffer, 0, len(valid))
	for _, line := range valid {
		lines = append(lines, models.TransactionOffer{
			ItemID:      line.ItemID,
			OfferedByID: proposal.ProposerID,
			Quantity:    line.Quantity,
			Points:      items[line.ItemID].TotalPoints * line.Quantity,
		})
	}

	if err := s.store.CreateTransaction(ctx, txn, lines); err != nil {
		s.releaseItems(ctx, held)
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	util.OffersAcceptedTotal.Inc()
	util.TransactionsCreatedTotal.Inc()
	s.logger.Info("Offer accepted",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("transaction_id", txn.ID),
		zap.Int64("seller_id", sellerID),
		zap.Int64("buyer_id", buyerID))

	balance := "balanced"
	if !models.PointsBalanced(txn.TotalSellerPoints, txn.TotalBuyerPoints) {
		balance = "uneven"
	}
	s.appendSystemMessage(ctx, proposal.RoomID, req.ResponderID, fmt.Sprintf(
		"Offer accepted. Trade value: %d points for %d points (%s). Both parties can now exchange shipping details.",
		txn.TotalBuyerPoints, txn.TotalSellerPoints, balance))

	if err := s.store.UpdateRoomStatus(ctx, proposal.RoomID, models.RoomStatusClosed); err != nil {
		s.logger.Error("Failed to close room", zap.Error(err))
	}

	s.publishAccepted(ctx, proposal, txn)

	return txn, nil
}

func (s *OfferService) publishAccepted(ctx context.Context, proposal *models.Proposal, txn *models.Transaction) {
	accepted := &models.OfferAcceptedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOfferAccepted,
			Timestamp: time.Now(),
		},
		ProposalID:    proposal.ID,
		RoomID:        proposal.RoomID,
		TransactionID: txn.ID,
		SellerID:      txn.SellerID,
		BuyerID:       txn.BuyerID,
	}
	if err := s.eventPublisher.PublishOfferAccepted(ctx, accepted); err != nil {
		s.logger.Error("Failed to publish OfferAccepted event", zap.Error(err))
	}

	agreed := &models.TransactionAgreedEvent{
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
	if err := s.eventPublisher.PublishTransactionAgreed(ctx, agreed); err != nil {
		s.logger.Error("Failed to publish TransactionAgreed event", zap.Error(err))
	}
}

// CreateDirectOffer is the no-chat path: the buyer picks own items
// against a listing. The transaction starts in pending with neither
// agreement flag set.
func (s *OfferService) CreateDirectOffer(ctx context.Context, itemID, buyerID int64, offered []OfferedItemRequest) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.CreateDirectOffer")
	defer span.End()

	listing, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listed item: %w", err)
	}
	if listing.UserID == buyerID {
		return nil, fmt.Errorf("%w: cannot make an offer on your own item", ErrAccessDenied)
	}
	if !listing.IsAvailable {
		return nil, fmt.Errorf("%w: item is off the market", ErrInvalidState)
	}

	valid, items, err := s.validOfferedItems(ctx, buyerID, offered)
	if err != nil {
		return nil, err
	}
	if len(valid) == 0 {
		util.OffersFailedTotal.WithLabelValues("no_valid_items").Inc()
		return nil, fmt.Errorf("%w: select at least one of your available items", ErrValidation)
	}

	txn := &models.Transaction{
		SellerID:          listing.UserID,
		BuyerID:           buyerID,
		ItemID:            listing.ID,
		Status:            models.TransactionStatusPending,
		TotalSellerPoints: listing.TotalPoints,
		TotalBuyerPoints:  offerSubtotal(valid, items),
	}

	lines := make([]models.TransactionOffer, 0, len(valid))
	for _, line := range valid {
		lines = append(lines, models.TransactionOffer{
			ItemID:      line.ItemID,
			OfferedByID: buyerID,
			Quantity:    line.Quantity,
			Points:      items[line.ItemID].TotalPoints * line.Quantity,
		})
	}

	if err := s.store.CreateTransaction(ctx, txn, lines); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	util.OffersSubmittedTotal.Inc()
	util.TransactionsCreatedTotal.Inc()
	s.logger.Info("Direct offer created",
		zap.Int64("transaction_id", txn.ID),
		zap.Int64("item_id", itemID),
		zap.Int64("buyer_id", buyerID))

	return txn, nil
}

// validOfferedItems filters offered lines down to items the proposer
// owns and that are still on the market. Failing lines are dropped,
// not rejected wholesale.
func (s *OfferService) validOfferedItems(ctx context.Context, proposerID int64, offered []OfferedItemRequest) ([]models.OfferedItem, map[int64]*models.Item, error) {
	if len(offered) == 0 {
		return nil, map[int64]*models.Item{}, nil
	}

	ids := make([]int64, 0, len(offered))
	for _, line := range offered {
		ids = append(ids, line.ItemID)
	}

	items, err := s.store.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load offered items: %w", err)
	}

	byID := make(map[int64]*models.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	valid := make([]models.OfferedItem, 0, len(offered))
	for _, line := range offered {
		item, ok := byID[line.ItemID]
		if !ok || item.UserID != proposerID || !item.IsAvailable {
			continue
		}
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		valid = append(valid, models.OfferedItem{ItemID: line.ItemID, Quantity: qty, Note: line.Note})
	}

	return valid, byID, nil
}

// holdItems takes the listing plus every valid offered item off the
// market. A listing that is already taken aborts the acceptance; an
// already-taken offered item is logged and the hold continues.
func (s *OfferService) holdItems(ctx context.Context, listingID int64, valid []models.OfferedItem) ([]int64, error) {
	held := make([]int64, 0, len(valid)+1)

	ok, err := s.items.HoldItem(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to hold listing: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: listed item is no longer available", ErrInvalidState)
	}
	held = append(held, listingID)

	for _, line := range valid {
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

func (s *OfferService) releaseItems(ctx context.Context, held []int64) {
	for _, id := range held {
		if err := s.items.ReleaseItem(ctx, id); err != nil {
			s.logger.Error("Failed to release held item",
				zap.Int64("item_id", id),
				zap.Error(err))
		}
	}
}

func (s *OfferService) appendSystemMessage(ctx context.Context, roomID, senderID int64, text string) {
	msg := &models.ChatMessage{
		RoomID:      roomID,
		SenderID:    senderID,
		Message:     text,
		MessageType: models.MessageTypeSystem,
	}
	if err := s.store.CreateChatMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to append system message",
			zap.Int64("room_id", roomID),
			zap.Error(err))
	}
}

// validateResponder enforces the proposal response rules: the proposer
// cannot resolve their own proposal, and resolved proposals are final.
func validateResponder(proposal *models.Proposal, responderID int64) error {
	if responderID == proposal.ProposerID {
		return fmt.Errorf("%w: cannot respond to your own offer", ErrAccessDenied)
	}
	if proposal.Resolved() {
		return ErrAlreadyResolved
	}
	return nil
}

// offerSubtotal sums item points times quantity over the valid lines
func offerSubtotal(valid []models.OfferedItem, items map[int64]*models.Item) int {
	total := 0
	for _, line := range valid {
		if item, ok := items[line.ItemID]; ok {
			total += item.TotalPoints * line.Quantity
		}
	}
	return total
}

// renderOfferSummary builds the human-readable itemized offer text.
// The structured lines are persisted separately; this is display only.
func renderOfferSummary(valid []models.OfferedItem, items map[int64]*models.Item, requested []string, subtotal int) string {
	var b strings.Builder

	if len(valid) > 0 {
		b.WriteString("Offered items:\n")
		for _, line := range valid {
			item := items[line.ItemID]
			fmt.Fprintf(&b, "- %s (%d points, %s)", item.Title, item.TotalPoints, item.Condition)
			if line.Quantity > 1 {
				fmt.Fprintf(&b, " x%d", line.Quantity)
			}
			if line.Note != "" {
				fmt.Fprintf(&b, " - %s", line.Note)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Total offered: %d points\n", subtotal)
	}

	if len(requested) > 0 {
		b.WriteString("Requested in return:\n")
		for _, r := range requested {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
