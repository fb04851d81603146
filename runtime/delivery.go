package runtime

import (
	"chat-link/contract"
	"chat-link/domain"
	"chat-link/moderation"
	"chat-link/observability"
	"chat-link/repositories"
	"context"
	"log/slog"
	"time"
)

// DeliveryCoordinator persists a chat message in both histories, then forwards it
// to the receiver's live connection if there is one.
type DeliveryCoordinator struct {
	userRepository repositories.IUserRepository
	registry       contract.IRegistry
	moderator      *moderation.Moderator
	metrics        *observability.Metrics
	log            *slog.Logger
	pushTimeout    time.Duration
}

func NewDeliveryCoordinator(
	userRepository repositories.IUserRepository,
	registry contract.IRegistry,
	moderator *moderation.Moderator,
	metrics *observability.Metrics,
	log *slog.Logger,
	pushTimeout time.Duration) *DeliveryCoordinator {
	return &DeliveryCoordinator{
		userRepository: userRepository,
		registry:       registry,
		moderator:      moderator,
		metrics:        metrics,
		log:            log,
		pushTimeout:    pushTimeout,
	}
}

// Deliver never fails: each append is attempted independently and a failure is only
// logged, so a broken history never prevents the live push.
// The returned flag tells whether the receiver's connection accepted the message.
func (d *DeliveryCoordinator) Deliver(ctx context.Context, in domain.InboundMessage) (domain.ChatMessage, bool) {
	text, censored := d.moderator.Censor(in.Message)
	if censored > 0 {
		d.log.Debug("Message censored", "sender_id", in.SenderID, "words", censored)
		d.metrics.WordsCensored(censored)
	}
	message := domain.NewChatMessage(text, in.SenderID, in.ReceiverID, time.Now().UTC())

	d.persist(message, in.SenderID, observability.PartySender)
	// A message to oneself lives once in the single history involved
	if in.ReceiverID != in.SenderID {
		d.persist(message, in.ReceiverID, observability.PartyReceiver)
	}

	conn, ok := d.registry.Lookup(in.ReceiverID)
	if !ok {
		d.log.Debug("Receiver not connected, message kept in history", "receiver_id", in.ReceiverID)
		d.metrics.MessageHandled(observability.OutcomeStored)
		return message, false
	}

	pushCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	defer cancel()
	err := conn.Push(pushCtx, domain.ReceivedMessage{Message: message.Message, SenderID: message.SenderID})
	if err != nil {
		d.log.Warn("Live push failed",
			"receiver_id", in.ReceiverID,
			"connection_id", conn.ID(),
			"error", err)
		d.metrics.MessageHandled(observability.OutcomeStored)
		return message, false
	}

	d.metrics.MessageHandled(observability.OutcomeLive)
	return message, true
}

func (d *DeliveryCoordinator) persist(message domain.ChatMessage, ownerID, party string) {
	if err := d.userRepository.AppendMessage(ownerID, message); err != nil {
		d.log.Error("Failed to append message to history",
			"party", party,
			"owner_id", ownerID,
			"message_id", message.ID,
			"error", err)
		d.metrics.PersistenceFailed(party)
	}
}
