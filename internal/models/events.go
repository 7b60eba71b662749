package models

import "time"

// Event types
const (
	EventTypeOfferSubmitted       = "OFFER_SUBMITTED"
	EventTypeOfferAccepted        = "OFFER_ACCEPTED"
	EventTypeOfferDeclined        = "OFFER_DECLINED"
	EventTypeTransactionAgreed    = "TRANSACTION_AGREED"
	EventTypeTransactionShipped   = "TRANSACTION_SHIPPED"
	EventTypeTransactionCompleted = "TRANSACTION_COMPLETED"
	EventTypeTransactionCancelled = "TRANSACTION_CANCELLED"
	EventTypeTransactionDisputed  = "TRANSACTION_DISPUTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OfferSubmittedEvent published when a proposal lands in a room
type OfferSubmittedEvent struct {
	BaseEvent
	ProposalID int64 `json:"proposal_id"`
	RoomID     int64 `json:"room_id"`
	ProposerID int64 `json:"proposer_id"`
	Points     int   `json:"points"`
}

// OfferAcceptedEvent published when a proposal is accepted
type OfferAcceptedEvent struct {
	BaseEvent
	ProposalID    int64 `json:"proposal_id"`
	RoomID        int64 `json:"room_id"`
	TransactionID int64 `json:"transaction_id"`
	SellerID      int64 `json:"seller_id"`
	BuyerID       int64 `json:"buyer_id"`
}

// OfferDeclinedEvent published when a proposal is declined
type OfferDeclinedEvent struct {
	BaseEvent
	ProposalID int64  `json:"proposal_id"`
	RoomID     int64  `json:"room_id"`
	Reason     string `json:"reason,omitempty"`
}

// TransactionAgreedEvent published when both parties have agreed terms
type TransactionAgreedEvent struct {
	BaseEvent
	TransactionID int64 `json:"transaction_id"`
	SellerID      int64 `json:"seller_id"`
	BuyerID       int64 `json:"buyer_id"`
	SellerPoints  int   `json:"seller_points"`
	BuyerPoints   int   `json:"buyer_points"`
}

// TransactionShippedEvent published when both tracking numbers are in
type TransactionShippedEvent struct {
	BaseEvent
	TransactionID  int64  `json:"transaction_id"`
	SellerTracking string `json:"seller_tracking"`
	BuyerTracking  string `json:"buyer_tracking"`
}

// TransactionCompletedEvent published when both receipts are confirmed
type TransactionCompletedEvent struct {
	BaseEvent
	TransactionID int64 `json:"transaction_id"`
	SellerID      int64 `json:"seller_id"`
	BuyerID       int64 `json:"buyer_id"`
	AutoResolved  bool  `json:"auto_resolved"`
}

// TransactionCancelledEvent published when a deal is cancelled
type TransactionCancelledEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// TransactionDisputedEvent published when a party files a dispute
type TransactionDisputedEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	FiledByID     int64  `json:"filed_by_id"`
	Reason        string `json:"reason"`
}
