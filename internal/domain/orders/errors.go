package orders

import "errors"

// ErrNotFound indicates the order or anomaly does not exist for the tenant.
var ErrNotFound = errors.New("order not found")

// ErrStatusConflict indicates a reviewer action was attempted from a status
// that does not permit it (e.g. confirming an already CONFIRMED order).
var ErrStatusConflict = errors.New("order status conflict")
