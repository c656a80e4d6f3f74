// Package worker provides async handoff processing.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Worker acknowledges handoff tickets asynchronously from the EventBus.
// When an advisor handoff is created, the API publishes to the handoff
// topic; the worker picks it up and transitions the ticket from
// scheduled to acknowledged, simulating the advisor desk intake step.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the handoff topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicHandoffCreated, w.handleHandoff)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("handoff worker started",
		"topic", domain.TopicHandoffCreated,
	)

	return nil
}

// HandoffMessage is the message payload for handoff processing.
type HandoffMessage struct {
	TicketID      string `json:"ticketId"`
	QuoteID       string `json:"quoteId,omitempty"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	PreferredTime string `json:"preferredTime,omitempty"`
}

// handleHandoff acknowledges a newly created handoff ticket.
func (w *Worker) handleHandoff(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var hm HandoffMessage
	if err := json.Unmarshal(msg.Payload, &hm); err != nil {
		slog.Error("failed to parse handoff message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if w.repo != nil {
		if err := w.repo.UpdateHandoffStatus(ctx, hm.TicketID, domain.HandoffAcknowledged); err != nil {
			slog.Error("failed to acknowledge handoff",
				"ticket_id", hm.TicketID,
				"error", err,
			)
			return err
		}
	}

	slog.Info("handoff acknowledged",
		"ticket_id", hm.TicketID,
		"quote_id", hm.QuoteID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("handoff worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
