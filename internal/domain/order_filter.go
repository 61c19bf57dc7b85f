package domain

import (
	"errors"
	"fmt"
)

// OrderFilter has AND semantics across fields, OR semantics within Statuses.
// An empty filter matches every order.
type OrderFilter struct {
	UserID   string
	Statuses []OrderStatus
	Limit    int
}

func (f OrderFilter) Validate() error {
	for _, status := range f.Statuses {
		if _, ok := validOrderStatuses[status]; !ok {
			return fmt.Errorf("status[%s]: %w", status, errors.New("invalid order status"))
		}
	}

	if f.Limit < 0 {
		return errors.New("limit is negative")
	}

	return nil
}
