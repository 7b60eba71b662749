package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScore(t *testing.T) {
	// (9+7+8+10+8)/5 = 8.4, Like New = 0.9 -> 8.4*0.9*10 = 75.6 -> 75
	score := ComputeScore(AttributeScores{
		Utility:     9,
		Scarcity:    7,
		Durability:  8,
		Portability: 10,
		Seasonal:    8,
	}, ConditionLikeNew)

	assert.Equal(t, 75, score)
}

func TestComputeScoreConditionMultipliers(t *testing.T) {
	all10 := AttributeScores{Utility: 10, Scarcity: 10, Durability: 10, Portability: 10, Seasonal: 10}

	tests := []struct {
		condition string
		expected  int
	}{
		{ConditionNew, 100},
		{ConditionLikeNew, 90},
		{ConditionGood, 80},
		{ConditionFair, 60},
		{ConditionPoor, 40},
		{"Refurbished", 80}, // unknown condition defaults to the Good factor
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ComputeScore(all10, tt.condition), "condition %s", tt.condition)
	}
}

func TestComputeScoreMonotonic(t *testing.T) {
	base := AttributeScores{Utility: 5, Scarcity: 5, Durability: 5, Portability: 5, Seasonal: 5}

	prev := ComputeScore(base, ConditionGood)
	for u := 6; u <= 10; u++ {
		scores := base
		scores.Utility = u
		cur := ComputeScore(scores, ConditionGood)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestComputeScoreDeterministic(t *testing.T) {
	scores := AttributeScores{Utility: 3, Scarcity: 9, Durability: 1, Portability: 7, Seasonal: 4}
	first := ComputeScore(scores, ConditionFair)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeScore(scores, ConditionFair))
	}
}

func TestItemCalculatePoints(t *testing.T) {
	item := &Item{
		Condition:        ConditionLikeNew,
		UtilityScore:     9,
		ScarcityScore:    7,
		DurabilityScore:  8,
		PortabilityScore: 10,
		SeasonalScore:    8,
	}

	assert.Equal(t, 75, item.CalculatePoints())
	assert.Equal(t, 75, item.TotalPoints)

	item.Condition = ConditionPoor
	item.CalculatePoints()
	assert.Equal(t, 33, item.TotalPoints)
}

func TestPointsBalanced(t *testing.T) {
	assert.True(t, PointsBalanced(100, 100))
	assert.True(t, PointsBalanced(100, 91))
	assert.True(t, PointsBalanced(91, 100))
	assert.False(t, PointsBalanced(100, 80))
	assert.False(t, PointsBalanced(50, 100))
}

func TestNewConfirmationCodeFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := NewConfirmationCode()
		require.Len(t, code, ConfirmationCodeLength)
		for _, r := range code {
			ok := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			assert.True(t, ok, "unexpected character %q in code %s", r, code)
		}
		seen[code] = true
	}
	// 50 independent draws from a 36^8 space should not collide
	assert.Greater(t, len(seen), 45)
}

func TestGenerateConfirmationCodesIdempotent(t *testing.T) {
	txn := &Transaction{}
	txn.GenerateConfirmationCodes()

	sellerCode := txn.SellerConfirmationCode
	buyerCode := txn.BuyerConfirmationCode
	require.NotEmpty(t, sellerCode)
	require.NotEmpty(t, buyerCode)

	for i := 0; i < 5; i++ {
		txn.GenerateConfirmationCodes()
		assert.Equal(t, sellerCode, txn.SellerConfirmationCode)
		assert.Equal(t, buyerCode, txn.BuyerConfirmationCode)
	}
}

func TestSetChatAgreement(t *testing.T) {
	txn := &Transaction{
		SellerID: 1,
		BuyerID:  2,
		Status:   TransactionStatusPending,
	}

	now := time.Now()
	txn.SetChatAgreement(1, now)
	assert.True(t, txn.ChatAgreementSeller)
	assert.False(t, txn.ChatAgreementBuyer)
	assert.Nil(t, txn.AgreementTimestamp)
	assert.Equal(t, TransactionStatusPending, txn.Status)

	later := now.Add(time.Minute)
	txn.SetChatAgreement(2, later)
	assert.True(t, txn.ChatAgreementBuyer)
	require.NotNil(t, txn.AgreementTimestamp)
	assert.Equal(t, later, *txn.AgreementTimestamp)
	assert.Equal(t, TransactionStatusAgreed, txn.Status)

	// the joint timestamp never moves once set
	txn.SetChatAgreement(1, later.Add(time.Hour))
	assert.Equal(t, later, *txn.AgreementTimestamp)
}

func TestSetChatAgreementIgnoresStrangers(t *testing.T) {
	txn := &Transaction{SellerID: 1, BuyerID: 2, Status: TransactionStatusPending}
	txn.SetChatAgreement(99, time.Now())
	assert.False(t, txn.ChatAgreementSeller)
	assert.False(t, txn.ChatAgreementBuyer)
}

func TestExpectedCodeFor(t *testing.T) {
	txn := &Transaction{
		SellerConfirmationCode: "SELLER0A",
		BuyerConfirmationCode:  "BUYER00B",
	}

	// each party confirms with the counterparty's code
	assert.Equal(t, "BUYER00B", txn.ExpectedCodeFor(PartySeller))
	assert.Equal(t, "SELLER0A", txn.ExpectedCodeFor(PartyBuyer))
}

func TestCanProceedToShipping(t *testing.T) {
	txn := &Transaction{
		SellerID:            1,
		BuyerID:             2,
		ChatAgreementSeller: true,
		ChatAgreementBuyer:  true,
	}
	assert.False(t, txn.CanProceedToShipping())

	txn.SellerAddress = "Jl. Merdeka 1"
	txn.BuyerAddress = "Jl. Sudirman 2"
	txn.SellerPhone = "08123"
	assert.False(t, txn.CanProceedToShipping())

	txn.BuyerPhone = "08456"
	assert.True(t, txn.CanProceedToShipping())
}

func TestLastShippedAt(t *testing.T) {
	early := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	late := early.Add(5 * time.Hour)

	txn := &Transaction{SellerShippedAt: &early, BuyerShippedAt: &late}
	assert.Equal(t, late, txn.LastShippedAt())

	txn = &Transaction{SellerShippedAt: &late, BuyerShippedAt: &early}
	assert.Equal(t, late, txn.LastShippedAt())

	txn = &Transaction{SellerShippedAt: &early}
	assert.Equal(t, early, txn.LastShippedAt())

	txn = &Transaction{}
	assert.True(t, txn.LastShippedAt().IsZero())
}

func TestProposalOfferedItems(t *testing.T) {
	p := &Proposal{OfferedJSON: `[{"item_id":7,"quantity":2},{"item_id":9,"quantity":1,"note":"minor scratch"}]`}

	items := p.OfferedItems()
	require.Len(t, items, 2)
	assert.Equal(t, int64(7), items[0].ItemID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "minor scratch", items[1].Note)

	assert.Nil(t, (&Proposal{}).OfferedItems())
	assert.Nil(t, (&Proposal{OfferedJSON: "not-json"}).OfferedItems())
}

func TestPartyOf(t *testing.T) {
	txn := &Transaction{SellerID: 10, BuyerID: 20}

	assert.Equal(t, PartySeller, txn.PartyOf(10))
	assert.Equal(t, PartyBuyer, txn.PartyOf(20))
	assert.Equal(t, Party(""), txn.PartyOf(30))
	assert.True(t, txn.IsParticipant(10))
	assert.False(t, txn.IsParticipant(30))
	assert.Equal(t, int64(20), txn.CounterpartyID(10))
	assert.Equal(t, int64(10), txn.CounterpartyID(20))
}
