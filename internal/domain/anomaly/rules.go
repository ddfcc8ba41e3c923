package anomaly

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bryanwahyu/orderflow-ai/internal/domain/orders"
)

// Rule codes
const (
	CodeUnusualVolume = "UNUSUAL_VOLUME"
	CodeZeroPrice     = "ZERO_PRICE"
)

// DefaultMaxQuantity is the volume threshold used when none is configured.
const DefaultMaxQuantity = 10000

// Rule pairs a predicate with an anomaly builder. Rules are evaluated per
// item, in registry order, and each may fire independently.
type Rule struct {
	Code  string
	Match func(it *orders.Item) bool
	Build func(orderID string, it *orders.Item) *orders.Anomaly
}

// DefaultRules returns the built-in registry: UNUSUAL_VOLUME then
// ZERO_PRICE. maxQty <= 0 falls back to DefaultMaxQuantity.
func DefaultRules(maxQty int) []Rule {
	if maxQty <= 0 {
		maxQty = DefaultMaxQuantity
	}
	return []Rule{
		{
			Code:  CodeUnusualVolume,
			Match: func(it *orders.Item) bool { return it.Quantity > maxQty },
			Build: func(orderID string, it *orders.Item) *orders.Anomaly {
				return &orders.Anomaly{
					ID:            uuid.NewString(),
					OrderID:       orderID,
					RuleCode:      CodeUnusualVolume,
					Description:   fmt.Sprintf("Quantity %d for product %s exceeds threshold of %d", it.Quantity, it.ProductID, maxQty),
					SeverityScore: 8.0,
				}
			},
		},
		{
			Code:  CodeZeroPrice,
			Match: func(it *orders.Item) bool { return it.UnitPrice <= 0 },
			Build: func(orderID string, it *orders.Item) *orders.Anomaly {
				return &orders.Anomaly{
					ID:            uuid.NewString(),
					OrderID:       orderID,
					RuleCode:      CodeZeroPrice,
					Description:   fmt.Sprintf("Unit price is %.2f for product %s", it.UnitPrice, it.ProductID),
					SeverityScore: 6.5,
				}
			},
		},
	}
}

// Detector runs the rule registry over order items. It is a pure value
// object; persistence of the returned anomalies is the caller's job.
type Detector struct {
	rules []Rule
}

func NewDetector(rules []Rule) *Detector {
	return &Detector{rules: rules}
}

// Detect evaluates every rule against every item, preserving item order and
// registry order within an item.
func (d *Detector) Detect(orderID string, items []*orders.Item) []*orders.Anomaly {
	var out []*orders.Anomaly
	for _, it := range items {
		for _, r := range d.rules {
			if r.Match(it) {
				out = append(out, r.Build(orderID, it))
			}
		}
	}
	return out
}
