package sales

import (
	"errors"
	"strings"

	"metavendas/internal/domain"
)

// Validation failures, in the order the rules are applied. The first rule
// that fails wins; later rules are not evaluated.
var (
	ErrEmptyOrderNumber   = errors.New("order number is required")
	ErrNonPositiveAmount  = errors.New("amount must be greater than zero")
	ErrMissingLinkedOrder = errors.New("pickup-later sale requires an origin order")
)

// ValidateSale is the pure pre-save check for a sale record. Duplicate order
// numbers are deliberately not checked here: duplicate detection is advisory
// and never blocks a save.
func ValidateSale(sale domain.Sale) error {
	if strings.TrimSpace(sale.OrderNumber) == "" {
		return ErrEmptyOrderNumber
	}
	if !sale.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if sale.PickupLater == domain.PickupPending {
		origin := strings.TrimSpace(sale.OriginOrder)
		if origin == "" || origin == domain.OriginPlaceholder {
			return ErrMissingLinkedOrder
		}
	}
	return nil
}
