package driven

import (
	"context"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// ThreadStore is the append-only message log keyed by thread ID.
type ThreadStore interface {
	Append(ctx context.Context, msg model.Message) (model.Message, error)

	// List returns up to limit messages with ID greater than cursor, oldest first.
	List(ctx context.Context, threadID string, cursor int64, limit int) (model.MessagePage, error)

	// Recent returns the newest limit messages of the thread, oldest first.
	Recent(ctx context.Context, threadID string, limit int) ([]model.Message, error)
}
