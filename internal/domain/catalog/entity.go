package catalog

import "time"

// Product is a priced catalog entry. The catalog is externally managed and
// read-only to the pipeline; SKUs are unique per tenant.
type Product struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
