package catalog

import "context"

// Resolver maps extracted SKU strings to priced products in one bulk,
// tenant-scoped lookup. SKUs missing from the returned map are unresolved;
// partial misses are not an error.
type Resolver interface {
	ResolveBatch(ctx context.Context, tenant string, skus []string) (map[string]*Product, error)
}

// Repository port for catalog access outside the pipeline. Create exists
// for provisioning and seeding; the pipeline treats the catalog as
// read-only.
type Repository interface {
	Resolver
	List(ctx context.Context, tenant string) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
}
