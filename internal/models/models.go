package models

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"time"
)

// User represents a marketplace participant
type User struct {
	ID         int64     `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	FullName   string    `db:"full_name" json:"full_name"`
	Phone      string    `db:"phone" json:"phone,omitempty"`
	Address    string    `db:"address" json:"address,omitempty"`
	PostalCode string    `db:"postal_code" json:"postal_code,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Item conditions
const (
	ConditionNew     = "New"
	ConditionLikeNew = "Like New"
	ConditionGood    = "Good"
	ConditionFair    = "Fair"
	ConditionPoor    = "Poor"
)

// conditionMultipliers maps an item condition to its scoring factor.
// Unknown conditions fall back to the Good multiplier.
var conditionMultipliers = map[string]float64{
	ConditionNew:     1.0,
	ConditionLikeNew: 0.9,
	ConditionGood:    0.8,
	ConditionFair:    0.6,
	ConditionPoor:    0.4,
}

// AttributeScores holds the five 1-10 trade-value attributes of an item
type AttributeScores struct {
	Utility     int `json:"utility"`
	Scarcity    int `json:"scarcity"`
	Durability  int `json:"durability"`
	Portability int `json:"portability"`
	Seasonal    int `json:"seasonal"`
}

// ComputeScore derives the normalized trade-value score for a listing:
// arithmetic mean of the five attributes, scaled by the condition
// multiplier and by 10, truncated to an integer.
func ComputeScore(scores AttributeScores, condition string) int {
	base := float64(scores.Utility+scores.Scarcity+scores.Durability+scores.Portability+scores.Seasonal) / 5

	multiplier, ok := conditionMultipliers[condition]
	if !ok {
		multiplier = 0.8
	}

	return int(base * multiplier * 10)
}

// PointsBalanced reports whether a point exchange is within the 10%
// fairness tolerance of the larger side.
func PointsBalanced(sellerPoints, buyerPoints int) bool {
	diff := sellerPoints - buyerPoints
	if diff < 0 {
		diff = -diff
	}
	max := sellerPoints
	if buyerPoints > max {
		max = buyerPoints
	}
	return float64(diff) <= float64(max)*0.1
}

// Item represents a listed item available for barter
type Item struct {
	ID          int64  `db:"id" json:"id"`
	UserID      int64  `db:"user_id" json:"user_id"`
	CategoryID  int64  `db:"category_id" json:"category_id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Condition   string `db:"condition" json:"condition"`
	// DesiredItems is free text describing what the owner wants in trade
	DesiredItems string `db:"desired_items" json:"desired_items"`

	UtilityScore     int `db:"utility_score" json:"utility_score"`
	ScarcityScore    int `db:"scarcity_score" json:"scarcity_score"`
	DurabilityScore  int `db:"durability_score" json:"durability_score"`
	PortabilityScore int `db:"portability_score" json:"portability_score"`
	SeasonalScore    int `db:"seasonal_score" json:"seasonal_score"`

	TotalPoints int  `db:"total_points" json:"total_points"`
	IsAvailable bool `db:"is_available" json:"is_available"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Attributes returns the item's five attribute scores as a bundle
func (i *Item) Attributes() AttributeScores {
	return AttributeScores{
		Utility:     i.UtilityScore,
		Scarcity:    i.ScarcityScore,
		Durability:  i.DurabilityScore,
		Portability: i.PortabilityScore,
		Seasonal:    i.SeasonalScore,
	}
}

// CalculatePoints recomputes and stores the item's total points.
// Must be called whenever any attribute score or the condition changes.
func (i *Item) CalculatePoints() int {
	i.TotalPoints = ComputeScore(i.Attributes(), i.Condition)
	return i.TotalPoints
}

// ChatRoom statuses
const (
	RoomStatusActive      = "active"
	RoomStatusNegotiating = "negotiating"
	RoomStatusClosed      = "closed"
)

// ChatRoom is the negotiation context between two users over one item
type ChatRoom struct {
	ID        int64     `db:"id" json:"id"`
	User1ID   int64     `db:"user1_id" json:"user1_id"`
	User2ID   int64     `db:"user2_id" json:"user2_id"`
	ItemID    int64     `db:"item_id" json:"item_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Chat message types
const (
	MessageTypeText   = "text"
	MessageTypeOffer  = "offer"
	MessageTypeSystem = "system"
)

// ChatMessage is one entry in a negotiation transcript
type ChatMessage struct {
	ID          int64     `db:"id" json:"id"`
	RoomID      int64     `db:"room_id" json:"room_id"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	Message     string    `db:"message" json:"message"`
	MessageType string    `db:"message_type" json:"message_type"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Proposal statuses. A proposal is terminal once it leaves pending.
const (
	ProposalStatusPending  = "pending"
	ProposalStatusAccepted = "accepted"
	ProposalStatusDeclined = "declined"
)

// OfferedItem is one structured line in a proposal
type OfferedItem struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// Proposal is an immutable-once-sent offer attached to a chat room.
// The structured lines are kept separately from the rendered summary
// so that acceptance can re-derive points programmatically.
type Proposal struct {
	ID            int64     `db:"id" json:"id"`
	RoomID        int64     `db:"room_id" json:"room_id"`
	ProposerID    int64     `db:"proposer_id" json:"proposer_id"`
	OfferedJSON   string    `db:"offered_json" json:"-"`
	RequestedJSON string    `db:"requested_json" json:"-"`
	Summary       string    `db:"summary" json:"summary"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// OfferedItems parses the structured offered lines. A malformed or
// empty payload yields an empty slice, never an error.
func (p *Proposal) OfferedItems() []OfferedItem {
	if p.OfferedJSON == "" {
		return nil
	}
	var items []OfferedItem
	if err := json.Unmarshal([]byte(p.OfferedJSON), &items); err != nil {
		return nil
	}
	return items
}

// RequestedItems parses the free-text requested item descriptions
func (p *Proposal) RequestedItems() []string {
	if p.RequestedJSON == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(p.RequestedJSON), &items); err != nil {
		return nil
	}
	return items
}

// Resolved reports whether the proposal has left pending
func (p *Proposal) Resolved() bool {
	return p.Status != ProposalStatusPending
}

// Transaction statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusAgreed    = "agreed"
	TransactionStatusShipped   = "shipped"
	TransactionStatusCompleted = "completed"
	TransactionStatusCancelled = "cancelled"
	TransactionStatusDispute   = "dispute"
)

// Party identifies which side of a transaction a caller is on
type Party string

const (
	PartySeller Party = "seller"
	PartyBuyer  Party = "buyer"
)

const confirmationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ConfirmationCodeLength is the fixed length of receipt codes
const ConfirmationCodeLength = 8

// NewConfirmationCode draws an 8-character uppercase alphanumeric code
// from a cryptographically strong source.
func NewConfirmationCode() string {
	buf := make([]byte, ConfirmationCodeLength)
	alphabetLen := big.NewInt(int64(len(confirmationCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			panic(err)
		}
		buf[i] = confirmationCodeAlphabet[n.Int64()]
	}
	return string(buf)
}

// Transaction is the persisted state of one barter deal
type Transaction struct {
	ID       int64 `db:"id" json:"id"`
	SellerID int64 `db:"seller_id" json:"seller_id"`
	BuyerID  int64 `db:"buyer_id" json:"buyer_id"`
	ItemID   int64 `db:"item_id" json:"item_id"`

	Status string `db:"status" json:"status"`

	SellerTrackingNumber string     `db:"seller_tracking_number" json:"seller_tracking_number,omitempty"`
	BuyerTrackingNumber  string     `db:"buyer_tracking_number" json:"buyer_tracking_number,omitempty"`
	SellerShippedAt      *time.Time `db:"seller_shipped_at" json:"seller_shipped_at,omitempty"`
	BuyerShippedAt       *time.Time `db:"buyer_shipped_at" json:"buyer_shipped_at,omitempty"`
	SellerReceivedAt     *time.Time `db:"seller_received_at" json:"seller_received_at,omitempty"`
	BuyerReceivedAt      *time.Time `db:"buyer_received_at" json:"buyer_received_at,omitempty"`

	// Each code proves receipt of that party's outbound package and is
	// known only to that party until handed over with the shipment.
	SellerConfirmationCode string `db:"seller_confirmation_code" json:"-"`
	BuyerConfirmationCode  string `db:"buyer_confirmation_code" json:"-"`

	TotalSellerPoints int `db:"total_seller_points" json:"total_seller_points"`
	TotalBuyerPoints  int `db:"total_buyer_points" json:"total_buyer_points"`

	SellerAddress string `db:"seller_address" json:"seller_address,omitempty"`
	BuyerAddress  string `db:"buyer_address" json:"buyer_address,omitempty"`
	SellerPhone   string `db:"seller_phone" json:"seller_phone,omitempty"`
	BuyerPhone    string `db:"buyer_phone" json:"buyer_phone,omitempty"`

	ChatAgreementSeller bool       `db:"chat_agreement_seller" json:"chat_agreement_seller"`
	ChatAgreementBuyer  bool       `db:"chat_agreement_buyer" json:"chat_agreement_buyer"`
	AgreementTimestamp  *time.Time `db:"agreement_timestamp" json:"agreement_timestamp,omitempty"`

	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PartyOf returns which side of the transaction userID is on, or ""
func (t *Transaction) PartyOf(userID int64) Party {
	switch userID {
	case t.SellerID:
		return PartySeller
	case t.BuyerID:
		return PartyBuyer
	}
	return ""
}

// IsParticipant reports whether userID is a party to the transaction
func (t *Transaction) IsParticipant(userID int64) bool {
	return t.PartyOf(userID) != ""
}

// CounterpartyID returns the other participant's user id
func (t *Transaction) CounterpartyID(userID int64) int64 {
	if userID == t.SellerID {
		return t.BuyerID
	}
	return t.SellerID
}

// Terminal reports whether the transaction can no longer change state
func (t *Transaction) Terminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusCancelled
}

// CanProceedToShipping reports whether both parties agreed in chat and
// supplied complete shipping details.
func (t *Transaction) CanProceedToShipping() bool {
	return t.ChatAgreementSeller && t.ChatAgreementBuyer &&
		t.SellerAddress != "" && t.BuyerAddress != "" &&
		t.SellerPhone != "" && t.BuyerPhone != ""
}

// SetChatAgreement marks the caller's one-way agreement flag. When the
// second flag lands the agreement timestamp is stamped and the status
// advances to agreed; both happen on the same write.
func (t *Transaction) SetChatAgreement(userID int64, now time.Time) {
	switch userID {
	case t.SellerID:
		t.ChatAgreementSeller = true
	case t.BuyerID:
		t.ChatAgreementBuyer = true
	}

	if t.ChatAgreementSeller && t.ChatAgreementBuyer && t.AgreementTimestamp == nil {
		ts := now
		t.AgreementTimestamp = &ts
		if t.Status == TransactionStatusPending {
			t.Status = TransactionStatusAgreed
		}
	}
}

// GenerateConfirmationCodes assigns both receipt codes. Generation is
// idempotent: an existing code is never regenerated.
func (t *Transaction) GenerateConfirmationCodes() {
	if t.SellerConfirmationCode == "" {
		t.SellerConfirmationCode = NewConfirmationCode()
	}
	if t.BuyerConfirmationCode == "" {
		t.BuyerConfirmationCode = NewConfirmationCode()
	}
}

// ExpectedCodeFor returns the code the given party must present to
// confirm receipt: always the counterparty's code.
func (t *Transaction) ExpectedCodeFor(party Party) string {
	if party == PartySeller {
		return t.BuyerConfirmationCode
	}
	return t.SellerConfirmationCode
}

// ReceivedAtFor returns the given party's received_at timestamp
func (t *Transaction) ReceivedAtFor(party Party) *time.Time {
	if party == PartySeller {
		return t.SellerReceivedAt
	}
	return t.BuyerReceivedAt
}

// BothReceived reports whether both sides have confirmed receipt
func (t *Transaction) BothReceived() bool {
	return t.SellerReceivedAt != nil && t.BuyerReceivedAt != nil
}

// BothShipped reports whether both sides have recorded a shipment
func (t *Transaction) BothShipped() bool {
	return t.SellerShippedAt != nil && t.BuyerShippedAt != nil
}

// LastShippedAt returns the later of the two shipped timestamps
func (t *Transaction) LastShippedAt() time.Time {
	if t.SellerShippedAt == nil {
		if t.BuyerShippedAt == nil {
			return time.Time{}
		}
		return *t.BuyerShippedAt
	}
	if t.BuyerShippedAt == nil || t.SellerShippedAt.After(*t.BuyerShippedAt) {
		return *t.SellerShippedAt
	}
	return *t.BuyerShippedAt
}

// TransactionOffer is one offered-item line attached to a transaction
type TransactionOffer struct {
	ID            int64     `db:"id" json:"id"`
	TransactionID int64     `db:"transaction_id" json:"transaction_id"`
	ItemID        int64     `db:"item_id" json:"item_id"`
	OfferedByID   int64     `db:"offered_by_id" json:"offered_by_id"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Points        int       `db:"points" json:"points"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Review is a post-completion rating, at most one per reviewer per deal
type Review struct {
	ID             int64  `db:"id" json:"id"`
	TransactionID  int64  `db:"transaction_id" json:"transaction_id"`
	ReviewerID     int64  `db:"reviewer_id" json:"reviewer_id"`
	ReviewedUserID int64  `db:"reviewed_user_id" json:"reviewed_user_id"`
	Rating         int    `db:"rating" json:"rating"`
	Comment        string `db:"comment" json:"comment,omitempty"`

	CommunicationRating int `db:"communication_rating" json:"communication_rating"`
	ItemConditionRating int `db:"item_condition_rating" json:"item_condition_rating"`
	ShippingSpeedRating int `db:"shipping_speed_rating" json:"shipping_speed_rating"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
