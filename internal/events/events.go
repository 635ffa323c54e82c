// Package events publishes ledger facts (account opened, transfer completed, etc.) to interested parties.
// Events are sent only after the unit of work is committed and never affect its outcome.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/ledgerbank/internal/logger"
)

// Exchange all ledger events are published to
const Exchange = "ledger_events"

// Routing keys
const (
	AccountOpened     = "account.opened"
	AccountFrozen     = "account.frozen"
	AccountUnfrozen   = "account.unfrozen"
	TransferCompleted = "transfer.completed"
	LoanOriginated    = "loan.originated"
	LoanSettled       = "loan.settled"
)

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     uuid.UUID `json:"user_id"`
	Payload    any       `json:"payload,omitempty"`
}

func New(typ string, userID uuid.UUID, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		UserID:     userID,
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Publisher used when no broker is configured
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}

// Publish event and log failure
// Callers have already committed their changes so the error is not returned
func Notify(ctx context.Context, p Publisher, log logger.Logger, event Event) {
	if err := p.Publish(ctx, event); err != nil {
		log.Warn("event publish failed", "type", event.Type, "event_id", event.ID, "error", err)
	}
}
