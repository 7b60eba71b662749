package service

import (
	"context"
	"fmt"
	"strings"

	"barterhub/internal/models"
	"barterhub/internal/store"
	"barterhub/internal/util"

	"go.uber.org/zap"
)

// MarketplaceService handles item listings and negotiation rooms
type MarketplaceService struct {
	store  *store.Store
	items  *ItemClient
	logger *zap.Logger
}

// NewMarketplaceService creates a new marketplace service
func NewMarketplaceService(store *store.Store, items *ItemClient) *MarketplaceService {
	return &MarketplaceService{
		store:  store,
		items:  items,
		logger: util.GetLogger(),
	}
}

// CreateItemRequest carries a new listing
type CreateItemRequest struct {
	CategoryID   int64  `json:"category_id"`
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Condition    string `json:"condition" binding:"required"`
	DesiredItems string `json:"desired_items"`

	UtilityScore     int `json:"utility_score" binding:"required"`
	ScarcityScore    int `json:"scarcity_score" binding:"required"`
	DurabilityScore  int `json:"durability_score" binding:"required"`
	PortabilityScore int `json:"portability_score" binding:"required"`
	SeasonalScore    int `json:"seasonal_score" binding:"required"`
}

// UpdateItemScoresRequest carries a score or condition change
type UpdateItemScoresRequest struct {
	Condition        string `json:"condition" binding:"required"`
	UtilityScore     int    `json:"utility_score" binding:"required"`
	ScarcityScore    int    `json:"scarcity_score" binding:"required"`
	DurabilityScore  int    `json:"durability_score" binding:"required"`
	PortabilityScore int    `json:"portability_score" binding:"required"`
	SeasonalScore    int    `json:"seasonal_score" binding:"required"`
}

// CreateItem lists a new item. Trade points derive from the scores
// and condition and are never accepted from the caller.
func (s *MarketplaceService) CreateItem(ctx context.Context, userID int64, req *CreateItemRequest) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "MarketplaceService.CreateItem")
	defer span.End()

	if err := validateScores(req.UtilityScore, req.ScarcityScore, req.DurabilityScore, req.PortabilityScore, req.SeasonalScore); err != nil {
		return nil, err
	}

	item := &models.Item{
		UserID:           userID,
		CategoryID:       req.CategoryID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Condition:        req.Condition,
		DesiredItems:     req.DesiredItems,
		UtilityScore:     req.UtilityScore,
		ScarcityScore:    req.ScarcityScore,
		DurabilityScore:  req.DurabilityScore,
		PortabilityScore: req.PortabilityScore,
		SeasonalScore:    req.SeasonalScore,
		IsAvailable:      true,
	}
	if item.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Info("Item listed",
		zap.Int64("item_id", item.ID),
		zap.Int64("user_id", userID),
		zap.Int("points", item.TotalPoints))
	return item, nil
}

// UpdateItemScores changes an item's attribute scores or condition and
// recomputes its trade points in the same write. Owner only.
func (s *MarketplaceService) UpdateItemScores(ctx context.Context, itemID, userID int64, req *UpdateItemScoresRequest) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "MarketplaceService.UpdateItemScores")
	defer span.End()

	if err := validateScores(req.UtilityScore, req.ScarcityScore, req.DurabilityScore, req.PortabilityScore, req.SeasonalScore); err != nil {
		return nil, err
	}

	item, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, fmt.Errorf("%w: only the owner can edit a listing", ErrAccessDenied)
	}

	item.Condition = req.Condition
	item.UtilityScore = req.UtilityScore
	item.ScarcityScore = req.ScarcityScore
	item.DurabilityScore = req.DurabilityScore
	item.PortabilityScore = req.PortabilityScore
	item.SeasonalScore = req.SeasonalScore

	if err := s.store.UpdateItemScores(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// GetItem returns one listing
func (s *MarketplaceService) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	return s.store.GetItemByID(ctx, itemID)
}

// ListAvailableItems returns a page of on-market listings
func (s *MarketplaceService) ListAvailableItems(ctx context.Context, limit, offset int) ([]models.Item, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.GetAvailableItems(ctx, limit, offset)
}

// OpenRoom starts (or reuses) a negotiation room between the caller
// and the owner of the target listing.
func (s *MarketplaceService) OpenRoom(ctx context.Context, itemID, userID int64) (*models.ChatRoom, error) {
	ctx, span := util.StartSpan(ctx, "MarketplaceService.OpenRoom")
	defer span.End()

	item, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID == userID {
		return nil, fmt.Errorf("%w: cannot open a room on your own listing", ErrAccessDenied)
	}
	if !item.IsAvailable {
		return nil, fmt.Errorf("%w: item is off the market", ErrInvalidState)
	}

	rooms, err := s.store.GetRoomsByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		r := &rooms[i]
		if r.Status != models.RoomStatusClosed && (r.User1ID == userID || r.User2ID == userID) {
			return r, nil
		}
	}

	room := &models.ChatRoom{
		User1ID: item.UserID,
		User2ID: userID,
		ItemID:  itemID,
		Status:  models.RoomStatusActive,
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.Info("Room opened",
		zap.Int64("room_id", room.ID),
		zap.Int64("item_id", itemID),
		zap.Int64("user_id", userID))
	return room, nil
}

// PostMessage appends a text message to a room transcript
func (s *MarketplaceService) PostMessage(ctx context.Context, roomID, userID int64, text string) (*models.ChatMessage, error) {
	ctx, span := util.StartSpan(ctx, "MarketplaceService.PostMessage")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrValidation)
	}

	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if userID != room.User1ID && userID != room.User2ID {
		return nil, fmt.Errorf("%w: not a member of this room", ErrAccessDenied)
	}
	if room.Status == models.RoomStatusClosed {
		return nil, fmt.Errorf("%w: room is closed", ErrInvalidState)
	}

	msg := &models.ChatMessage{
		RoomID:      roomID,
		SenderID:    userID,
		Message:     text,
		MessageType: models.MessageTypeText,
	}
	if err := s.store.CreateChatMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	return msg, nil
}

// GetMessages returns a room transcript, members only
func (s *MarketplaceService) GetMessages(ctx context.Context, roomID, userID int64) ([]models.ChatMessage, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if userID != room.User1ID && userID != room.User2ID {
		return nil, fmt.Errorf("%w: not a member of this room", ErrAccessDenied)
	}
	return s.store.GetMessagesByRoomID(ctx, roomID)
}

func validateScores(scores ...int) error {
	for _, sc := range scores {
		if sc < 1 || sc > 10 {
			return fmt.Errorf("%w: attribute scores run from 1 to 10", ErrValidation)
		}
	}
	return nil
}
