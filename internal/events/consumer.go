package events

import (
	"context"

	"budget/internal/log"
)

// Handler processes one consumed event.
type Handler func(ctx context.Context, e Event) error

type outcome int

const (
	outcomeAck outcome = iota
	outcomeDrop
	outcomeRetry
)

func dispatch(ctx context.Context, body []byte, handler Handler, logger *log.Logger) outcome {
	e, err := FromJSON(body)
	if err != nil {
		logger.ErrorContext(ctx, "Dropping undecodable event", log.FieldError, err.Error())
		return outcomeDrop
	}
	if err := handler(ctx, e); err != nil {
		logger.ErrorContext(ctx, "Event handler failed",
			"type", e.Type,
			log.FieldEntityID, e.EntityID,
			log.FieldError, err.Error())
		return outcomeRetry
	}
	return outcomeAck
}

// LogHandler writes each event to logger, giving an audit trail of ledger
// changes.
func LogHandler(logger *log.Logger) Handler {
	return func(ctx context.Context, e Event) error {
		logger.InfoContext(ctx, "Ledger event",
			"type", e.Type,
			log.FieldEntityID, e.EntityID,
			log.FieldUserID, e.OwnerID,
			"timestamp", e.Timestamp)
		return nil
	}
}
