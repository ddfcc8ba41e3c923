package interactions

import "context"

// Repository port for reading committed interactions. Writes happen through
// the pipeline's transactional store.
type Repository interface {
	Get(ctx context.Context, tenant string, id InteractionID) (*Interaction, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Interaction, error)
}
