package sheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"metavendas/internal/domain"
)

// Column layout is a positional contract shared with any other tool editing
// the sheet document. The first six sale columns are fixed by that contract;
// created_at trails them so newest-first ordering survives a reload.
var (
	salesHeader = []string{"date", "order_number", "seller", "pickup_later", "amount", "origin_order", "created_at"}
	usersHeader = []string{"login", "password", "name", "role", "photo_url", "created_at"}
)

const dateLayout = "2006-01-02"

func encodeSaleRow(sale domain.Sale) []string {
	return []string{
		sale.OrderDate.Format(dateLayout),
		sale.OrderNumber,
		sale.Seller,
		sale.PickupLater,
		sale.Amount.String(),
		sale.OriginOrder,
		sale.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// decodeSaleRow validates every field by name instead of trusting position
// blindly: a row that decodes is a row the rest of the system can use.
func decodeSaleRow(record []string) (domain.Sale, error) {
	if len(record) != len(salesHeader) {
		return domain.Sale{}, fmt.Errorf("sale row has %d columns, want %d", len(record), len(salesHeader))
	}

	orderDate, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return domain.Sale{}, fmt.Errorf("sale row date %q: %w", record[0], err)
	}

	orderNumber := strings.TrimSpace(record[1])
	if orderNumber == "" {
		return domain.Sale{}, fmt.Errorf("sale row has empty order number")
	}

	status := strings.TrimSpace(record[3])
	switch status {
	case domain.PickupNo, domain.PickupPending, domain.PickupDelivered:
	default:
		return domain.Sale{}, fmt.Errorf("sale row pickup status %q is not one of no/yes/delivered", status)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return domain.Sale{}, fmt.Errorf("sale row amount %q: %w", record[4], err)
	}

	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(record[6]))
	if err != nil {
		return domain.Sale{}, fmt.Errorf("sale row created_at %q: %w", record[6], err)
	}

	return domain.Sale{
		OrderDate:   orderDate,
		OrderNumber: orderNumber,
		Seller:      strings.TrimSpace(record[2]),
		PickupLater: status,
		Amount:      amount,
		OriginOrder: strings.TrimSpace(record[5]),
		CreatedAt:   createdAt,
	}, nil
}

func encodeUserRow(user domain.UserAccount) []string {
	return []string{
		user.Login,
		user.Password,
		user.Name,
		user.Role,
		user.PhotoURL,
		user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func decodeUserRow(record []string) (domain.UserAccount, error) {
	if len(record) != len(usersHeader) {
		return domain.UserAccount{}, fmt.Errorf("user row has %d columns, want %d", len(record), len(usersHeader))
	}

	login := strings.ToLower(strings.TrimSpace(record[0]))
	if login == "" {
		return domain.UserAccount{}, fmt.Errorf("user row has empty login")
	}

	role := strings.TrimSpace(record[3])
	switch role {
	case domain.RoleAdmin, domain.RoleSeller:
	default:
		return domain.UserAccount{}, fmt.Errorf("user row role %q is not one of admin/seller", role)
	}

	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(record[5]))
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("user row created_at %q: %w", record[5], err)
	}

	return domain.UserAccount{
		Login:     login,
		Password:  record[1],
		Name:      strings.TrimSpace(record[2]),
		Role:      role,
		PhotoURL:  strings.TrimSpace(record[4]),
		CreatedAt: createdAt,
	}, nil
}
