package store

import (
	"context"
	"errors"

	"metavendas/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidSale   = errors.New("invalid sale")
	ErrDuplicateUser = errors.New("user already exists")
	// ErrConnection wraps backend-unreachable failures so callers can surface
	// them as a retryable condition instead of a generic server error.
	ErrConnection = errors.New("backend unavailable")
)

// Repository is the contract both persistence backends (postgres and the
// spreadsheet-style sheet store) satisfy. ListSales returns newest first.
// CreateSale never enforces order-number uniqueness; duplicate detection is
// an advisory check done by the caller. Update and delete locate the first
// record matching the order number and fail with ErrNotFound on a miss.
type Repository interface {
	ListSales(ctx context.Context) ([]domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) error
	UpdateSaleByNumber(ctx context.Context, orderNumber string, sale domain.Sale) error
	DeleteSaleByNumber(ctx context.Context, orderNumber string) error
	SetPickupStatus(ctx context.Context, orderNumber string, status string) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	GetUserByLogin(ctx context.Context, login string) (*domain.UserAccount, error)
	DeleteUser(ctx context.Context, login string) error
	UpdateUserPassword(ctx context.Context, login string, password string) error
	UpdateUserPhoto(ctx context.Context, login string, photoURL string) error
}
