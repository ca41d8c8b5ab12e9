// Package sales implements the sale entry, report and pickup workflows on
// top of the repository contract.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"metavendas/internal/domain"
	"metavendas/internal/money"
	"metavendas/internal/report"
	"metavendas/internal/store"
)

// ErrForbidden marks operations the current actor's role does not allow.
var ErrForbidden = errors.New("forbidden")

// Seller join keys. Which identity field partitions row visibility is
// configuration, not code: the historical data is inconsistent about it.
const (
	SellerKeyLogin = "login"
	SellerKeyName  = "name"
)

const dateLayout = "2006-01-02"

type Service struct {
	repo      store.Repository
	reports   *report.Builder
	sellerKey string
}

func New(repo store.Repository, reports *report.Builder, sellerKey string) *Service {
	if sellerKey != SellerKeyName {
		sellerKey = SellerKeyLogin
	}

	return &Service{
		repo:      repo,
		reports:   reports,
		sellerKey: sellerKey,
	}
}

// identity returns the actor field used as the seller partition key.
func (s *Service) identity(actor domain.Actor) string {
	if s.sellerKey == SellerKeyName {
		return actor.Name
	}
	return actor.Login
}

// VisibleSales applies the row-level visibility rule: admins see every
// record, everyone else only their own.
func VisibleSales(all []domain.Sale, actor domain.Actor, identity string) []domain.Sale {
	if actor.Role == domain.RoleAdmin {
		return all
	}

	visible := make([]domain.Sale, 0, len(all))
	for _, sale := range all {
		if sale.Seller == identity {
			visible = append(visible, sale)
		}
	}
	return visible
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleCreateResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.SaleCreateResponse{}, ErrForbidden
	}

	sale, err := s.buildSale(req.OrderDate, req.OrderNumber, req.Amount, req.PickupLater, req.OriginOrder)
	if err != nil {
		return domain.SaleCreateResponse{}, err
	}
	sale.Seller = s.identity(actor)
	sale.CreatedAt = time.Now().UTC()

	if err := ValidateSale(sale); err != nil {
		return domain.SaleCreateResponse{}, err
	}

	// Advisory duplicate check. The scan and the insert are separate calls
	// with no isolation between them; a racing writer can still slip a
	// duplicate in, and that is accepted.
	duplicate := false
	if existing, err := s.repo.ListSales(ctx); err == nil {
		for _, other := range existing {
			if other.OrderNumber == sale.OrderNumber {
				duplicate = true
				break
			}
		}
	}

	if err := s.repo.CreateSale(ctx, sale); err != nil {
		return domain.SaleCreateResponse{}, err
	}
	s.reports.Invalidate(ctx)

	return domain.SaleCreateResponse{Sale: sale, Duplicate: duplicate}, nil
}

func (s *Service) ListSales(ctx context.Context) (domain.SaleListResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.SaleListResponse{}, ErrForbidden
	}

	all, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SaleListResponse{}, err
	}

	visible := VisibleSales(all, actor, s.identity(actor))
	total := decimal.Zero
	for _, sale := range visible {
		total = total.Add(sale.Amount)
	}

	return domain.SaleListResponse{
		Sales:       visible,
		Count:       len(visible),
		TotalAmount: money.FormatAmount(total),
	}, nil
}

func (s *Service) UpdateSale(ctx context.Context, originalNumber string, req domain.SaleUpdateRequest) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, ErrForbidden
	}

	originalNumber = strings.TrimSpace(originalNumber)
	existing, err := s.findByNumber(ctx, originalNumber)
	if err != nil {
		return domain.Sale{}, err
	}
	if actor.Role != domain.RoleAdmin && existing.Seller != s.identity(actor) {
		return domain.Sale{}, ErrForbidden
	}

	sale, err := s.buildSale(req.OrderDate, req.OrderNumber, req.Amount, req.PickupLater, req.OriginOrder)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Seller = existing.Seller
	sale.CreatedAt = existing.CreatedAt

	if err := ValidateSale(sale); err != nil {
		return domain.Sale{}, err
	}

	if err := s.repo.UpdateSaleByNumber(ctx, originalNumber, sale); err != nil {
		return domain.Sale{}, err
	}
	s.reports.Invalidate(ctx)

	return sale, nil
}

func (s *Service) DeleteSale(ctx context.Context, orderNumber string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}

	if err := s.repo.DeleteSaleByNumber(ctx, strings.TrimSpace(orderNumber)); err != nil {
		return err
	}
	s.reports.Invalidate(ctx)
	return nil
}

// PendingPickups lists every sale still flagged for deferred handover,
// regardless of seller: anyone at the counter can hand an order over.
func (s *Service) PendingPickups(ctx context.Context) (domain.PendingPickupsResponse, error) {
	all, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.PendingPickupsResponse{}, err
	}

	pending := make([]domain.Sale, 0, len(all))
	for _, sale := range all {
		if sale.PickupLater == domain.PickupPending {
			pending = append(pending, sale)
		}
	}
	return domain.PendingPickupsResponse{Sales: pending}, nil
}

// MarkDelivered advances a pending pickup to delivered.
func (s *Service) MarkDelivered(ctx context.Context, orderNumber string) error {
	orderNumber = strings.TrimSpace(orderNumber)
	existing, err := s.findByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if existing.PickupLater != domain.PickupPending {
		return fmt.Errorf("%w: sale %s is not pending pickup", store.ErrInvalidSale, orderNumber)
	}

	if err := s.repo.SetPickupStatus(ctx, orderNumber, domain.PickupDelivered); err != nil {
		return err
	}
	s.reports.Invalidate(ctx)
	return nil
}

func (s *Service) Summary(ctx context.Context) (domain.SummaryReport, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.SummaryReport{}, ErrForbidden
	}

	all, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SummaryReport{}, err
	}
	return s.reports.Summary(ctx, all), nil
}

// findByNumber returns the newest sale carrying orderNumber, mirroring the
// lookup rule the repositories use for update and delete.
func (s *Service) findByNumber(ctx context.Context, orderNumber string) (domain.Sale, error) {
	all, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	for _, sale := range all {
		if sale.OrderNumber == orderNumber {
			return sale, nil
		}
	}
	return domain.Sale{}, store.ErrNotFound
}

func (s *Service) buildSale(orderDate, orderNumber, amount string, pickupLater bool, originOrder string) (domain.Sale, error) {
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if strings.TrimSpace(orderDate) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(orderDate))
		if err != nil {
			return domain.Sale{}, fmt.Errorf("%w: order date %q", store.ErrInvalidSale, orderDate)
		}
		date = parsed
	}

	status := domain.PickupNo
	origin := domain.OriginPlaceholder
	if pickupLater {
		status = domain.PickupPending
		origin = strings.TrimSpace(originOrder)
	}

	return domain.Sale{
		OrderDate:   date,
		OrderNumber: strings.TrimSpace(orderNumber),
		PickupLater: status,
		Amount:      money.ParseAmount(amount),
		OriginOrder: origin,
	}, nil
}
