package customers

import "time"

// CustomerID identifier type
type CustomerID string

// Customer is a buying account within a tenant. Orders and interactions
// reference it by id.
type Customer struct {
	ID                 CustomerID `json:"id"`
	TenantID           string     `json:"tenant_id"`
	CompanyName        string     `json:"company_name"`
	ContactName        string     `json:"contact_name,omitempty"`
	Email              string     `json:"email,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	PaymentTerms       string     `json:"payment_terms,omitempty"`
	ShippingPreference string     `json:"shipping_preference,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}
