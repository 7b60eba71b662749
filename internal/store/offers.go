package store

import (
	"context"
	"database/sql"
	"fmt"

	"barterhub/internal/models"
)

// GetRoomByID retrieves a chat room by ID
func (s *Store) GetRoomByID(ctx context.Context, id int64) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.db.GetContext(ctx, &room, "SELECT * FROM chat_rooms WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chat room not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// CreateRoom creates a negotiation room between two users over an item
func (s *Store) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	query := `
		INSERT INTO chat_rooms (user1_id, user2_id, item_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, room, query,
		room.User1ID, room.User2ID, room.ItemID, room.Status)
}

// GetRoomsByItemID retrieves every room opened over a given listing
func (s *Store) GetRoomsByItemID(ctx context.Context, itemID int64) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.db.SelectContext(ctx, &rooms,
		"SELECT * FROM chat_rooms WHERE item_id = $1 ORDER BY created_at", itemID)
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// UpdateRoomStatus updates a room's status
func (s *Store) UpdateRoomStatus(ctx context.Context, roomID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE chat_rooms SET status = $1 WHERE id = $2", status, roomID)
	return err
}

// CreateChatMessage appends a message to a room transcript
func (s *Store) CreateChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (room_id, sender_id, message, message_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, msg, query,
		msg.RoomID, msg.SenderID, msg.Message, msg.MessageType)
}

// GetMessagesByRoomID retrieves a room's transcript, oldest first
func (s *Store) GetMessagesByRoomID(ctx context.Context, roomID int64) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.db.SelectContext(ctx, &messages,
		"SELECT * FROM chat_messages WHERE room_id = $1 ORDER BY created_at ASC", roomID)
	return messages, err
}

// CreateProposal records a new offer proposal in a room
func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	query := `
		INSERT INTO proposals (room_id, proposer_id, offered_json, requested_json, summary, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, p, query,
		p.RoomID, p.ProposerID, p.OfferedJSON, p.RequestedJSON, p.Summary, p.Status)
}

// GetProposalByID retrieves a proposal by ID
func (s *Store) GetProposalByID(ctx context.Context, id int64) (*models.Proposal, error) {
	var p models.Proposal
	err := s.db.GetContext(ctx, &p, "SELECT * FROM proposals WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("proposal not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ResolveProposal transitions a pending proposal to a terminal status.
// The conditional WHERE enforces that pending is the only state a
// proposal can leave: a second resolution reports false.
func (s *Store) ResolveProposal(ctx context.Context, id int64, status string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE proposals SET status = $1 WHERE id = $2 AND status = $3",
		status, id, models.ProposalStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// GetProposalsByRoomID retrieves a room's proposals, newest first
func (s *Store) GetProposalsByRoomID(ctx context.Context, roomID int64) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := s.db.SelectContext(ctx, &proposals,
		"SELECT * FROM proposals WHERE room_id = $1 ORDER BY created_at DESC", roomID)
	return proposals, err
}
