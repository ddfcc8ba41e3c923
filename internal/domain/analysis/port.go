package analysis

import "context"

// Repository port for reading analysis logs
type Repository interface {
	GetByInteraction(ctx context.Context, interactionID string) (*Log, error)
}
