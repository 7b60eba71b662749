package worker

import (
	"context"
	"fmt"
	"log"

	"barterhub/internal/broker"
	"barterhub/internal/models"
	"barterhub/internal/store"
)

// NotificationWorker consumes lifecycle events and writes the
// user-facing system messages into the relevant chat rooms. State
// transitions happen synchronously in the services; this worker only
// reacts to them.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, st *store.Store) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    st,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOfferAccepted(w.handleOfferAccepted)
	eventHandler.OnTransactionCompleted(w.handleCompleted)
	eventHandler.OnTransactionCancelled(w.handleCancelled)
	eventHandler.OnTransactionDisputed(w.handleDisputed)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOfferAccepted(ctx context.Context, event *models.OfferAcceptedEvent) error {
	log.Printf("Offer %d accepted, transaction %d created", event.ProposalID, event.TransactionID)
	return nil
}

func (w *NotificationWorker) handleCompleted(ctx context.Context, event *models.TransactionCompletedEvent) error {
	text := "Trade completed. Both parties confirmed receipt. You can now leave a review."
	if event.AutoResolved {
		text = "Trade completed automatically after the confirmation window elapsed."
	}
	return w.notifyRooms(ctx, event.TransactionID, event.SellerID, text)
}

func (w *NotificationWorker) handleCancelled(ctx context.Context, event *models.TransactionCancelledEvent) error {
	log.Printf("Transaction %d cancelled: %s", event.TransactionID, event.Reason)
	return nil
}

func (w *NotificationWorker) handleDisputed(ctx context.Context, event *models.TransactionDisputedEvent) error {
	log.Printf("Transaction %d disputed by user %d: %s", event.TransactionID, event.FiledByID, event.Reason)
	return nil
}

// notifyRooms posts the outcome into the rooms between the
// transaction's two parties. Rooms a third party opened on the same
// listing never see it.
func (w *NotificationWorker) notifyRooms(ctx context.Context, transactionID, senderID int64, text string) error {
	txn, err := w.store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("failed to load transaction %d: %w", transactionID, err)
	}

	rooms, err := w.store.GetRoomsByItemID(ctx, txn.ItemID)
	if err != nil {
		return fmt.Errorf("failed to load rooms for item %d: %w", txn.ItemID, err)
	}

	for _, room := range rooms {
		if !roomBetween(&room, txn.SellerID, txn.BuyerID) {
			continue
		}
		msg := &models.ChatMessage{
			RoomID:      room.ID,
			SenderID:    senderID,
			Message:     text,
			MessageType: models.MessageTypeSystem,
		}
		if err := w.store.CreateChatMessage(ctx, msg); err != nil {
			log.Printf("Failed to post system message to room %d: %v", room.ID, err)
		}
	}
	return nil
}

// roomBetween reports whether the room's two members are exactly the
// given pair, in either order.
func roomBetween(room *models.ChatRoom, a, b int64) bool {
	return (room.User1ID == a && room.User2ID == b) ||
		(room.User1ID == b && room.User2ID == a)
}
