package orders

import "time"

// OrderID identifier type
type OrderID string

// Status enum. Orders are born DRAFT, become FLAGGED when anomaly detection
// fires at creation time, and reach CONFIRMED only through a reviewer
// action. SYNCED belongs to the external fulfillment sync.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusFlagged   Status = "FLAGGED"
	StatusConfirmed Status = "CONFIRMED"
	StatusSynced    Status = "SYNCED"
)

// Aggregate Root: Order
type Order struct {
	ID            OrderID    `json:"id"`
	TenantID      string     `json:"tenant_id"`
	CustomerID    string     `json:"customer_id"`
	InteractionID string     `json:"interaction_id,omitempty"` // empty when untraced
	Status        Status     `json:"status"`
	TotalAmount   float64    `json:"total_amount"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []*Item    `json:"items,omitempty"`
	Anomalies     []*Anomaly `json:"anomalies,omitempty"`
}

// Item is one resolved order line. UnitPrice is a snapshot of the catalog
// price at resolution time and does not track later catalog changes.
type Item struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Anomaly is a rule-engine flag on an order requiring review. Resolved is
// the only mutable field.
type Anomaly struct {
	ID            string  `json:"id"`
	OrderID       string  `json:"order_id"`
	RuleCode      string  `json:"rule_code"`
	Description   string  `json:"description"`
	SeverityScore float64 `json:"severity_score"`
	Resolved      bool    `json:"resolved"`
}
