package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a single registered sale row. OrderNumber is the natural key used
// by update/delete lookups; the storage layer does not enforce uniqueness.
type Sale struct {
	OrderDate   time.Time       `json:"order_date"`
	OrderNumber string          `json:"order_number"`
	Seller      string          `json:"seller"`
	PickupLater string          `json:"pickup_later"`
	Amount      decimal.Decimal `json:"amount"`
	OriginOrder string          `json:"origin_order"`
	CreatedAt   time.Time       `json:"created_at"`
}

const (
	PickupNo        = "no"
	PickupPending   = "yes"
	PickupDelivered = "delivered"
)

// OriginPlaceholder marks a sale that is not linked to an origin order.
const OriginPlaceholder = "-"

type SaleCreateRequest struct {
	OrderDate   string `json:"order_date"`
	OrderNumber string `json:"order_number"`
	Amount      string `json:"amount"`
	PickupLater bool   `json:"pickup_later"`
	OriginOrder string `json:"origin_order"`
}

type SaleUpdateRequest struct {
	OrderDate   string `json:"order_date"`
	OrderNumber string `json:"order_number"`
	Amount      string `json:"amount"`
	PickupLater bool   `json:"pickup_later"`
	OriginOrder string `json:"origin_order"`
}

type SaleCreateResponse struct {
	Sale Sale `json:"sale"`
	// Duplicate is advisory: another sale with the same order number already
	// exists. The save is never blocked on it.
	Duplicate bool `json:"duplicate"`
}

type SaleListResponse struct {
	Sales       []Sale `json:"sales"`
	Count       int    `json:"count"`
	TotalAmount string `json:"total_amount"`
}

type PendingPickupsResponse struct {
	Sales []Sale `json:"sales"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	PhotoURL    string `json:"photo_url,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated identity carried through request contexts.
type Actor struct {
	Login string
	Name  string
	Role  string
}

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

type UserCreateRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type UserView struct {
	Login     string    `json:"login"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the internal persistence model for auth credentials.
type UserAccount struct {
	Login     string
	Password  string
	Name      string
	Role      string
	PhotoURL  string
	CreatedAt time.Time
}

type SellerTotal struct {
	Seller      string `json:"seller"`
	Count       int    `json:"count"`
	TotalAmount string `json:"total_amount"`
}

type SummaryReport struct {
	GeneratedAt    string        `json:"generated_at"`
	Count          int           `json:"count"`
	TotalAmount    string        `json:"total_amount"`
	PendingPickups int           `json:"pending_pickups"`
	BySeller       []SellerTotal `json:"by_seller"`
}
