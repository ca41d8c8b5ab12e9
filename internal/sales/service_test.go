package sales

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"metavendas/internal/domain"
	"metavendas/internal/report"
	"metavendas/internal/store"
	"metavendas/internal/store/sheet"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "test-password")

	repo, err := sheet.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open sheet store: %v", err)
	}
	return New(repo, report.NewBuilder(nil, 0), SellerKeyLogin)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Login: "admin", Name: "Administrador", Role: domain.RoleAdmin})
}

func sellerCtx(login string) context.Context {
	return WithActor(context.Background(), domain.Actor{Login: login, Name: login, Role: domain.RoleSeller})
}

func TestCreateSaleValidationOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := sellerCtx("maria")

	cases := []struct {
		name string
		req  domain.SaleCreateRequest
		want error
	}{
		{
			name: "empty order number",
			req:  domain.SaleCreateRequest{OrderNumber: "  ", Amount: "10,00"},
			want: ErrEmptyOrderNumber,
		},
		{
			name: "zero amount",
			req:  domain.SaleCreateRequest{OrderNumber: "100", Amount: "0"},
			want: ErrNonPositiveAmount,
		},
		{
			name: "garbage amount parses to zero",
			req:  domain.SaleCreateRequest{OrderNumber: "100", Amount: "abc"},
			want: ErrNonPositiveAmount,
		},
		{
			name: "pickup without origin",
			req:  domain.SaleCreateRequest{OrderNumber: "100", Amount: "10,00", PickupLater: true},
			want: ErrMissingLinkedOrder,
		},
		{
			name: "order number beats amount",
			req:  domain.SaleCreateRequest{OrderNumber: "", Amount: "0", PickupLater: true},
			want: ErrEmptyOrderNumber,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSale(ctx, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSaleStampsSellerAndDefaults(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.CreateSale(sellerCtx("maria"), domain.SaleCreateRequest{
		OrderNumber: " 1001 ",
		Amount:      "1.874,97",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Sale.Seller != "maria" {
		t.Fatalf("expected seller stamped from actor, got %q", resp.Sale.Seller)
	}
	if resp.Sale.OrderNumber != "1001" {
		t.Fatalf("expected trimmed order number, got %q", resp.Sale.OrderNumber)
	}
	if resp.Sale.PickupLater != domain.PickupNo {
		t.Fatalf("expected pickup status no, got %q", resp.Sale.PickupLater)
	}
	if resp.Sale.OriginOrder != domain.OriginPlaceholder {
		t.Fatalf("expected origin placeholder, got %q", resp.Sale.OriginOrder)
	}
	if resp.Sale.Amount.String() != "1874.97" {
		t.Fatalf("expected amount 1874.97, got %s", resp.Sale.Amount)
	}
	if resp.Duplicate {
		t.Fatalf("first sale should not be flagged duplicate")
	}
}

func TestCreateSaleDuplicateIsAdvisory(t *testing.T) {
	svc := newTestService(t)
	ctx := sellerCtx("maria")

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{OrderNumber: "2000", Amount: "10,00"}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	resp, err := svc.CreateSale(ctx, domain.SaleCreateRequest{OrderNumber: "2000", Amount: "20,00"})
	if err != nil {
		t.Fatalf("duplicate create must not be blocked: %v", err)
	}
	if !resp.Duplicate {
		t.Fatalf("expected duplicate flag on second sale with same number")
	}

	list, err := svc.ListSales(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("expected both sales saved, got %d", list.Count)
	}
}

func TestListSalesVisibility(t *testing.T) {
	svc := newTestService(t)

	sellers := map[string]int{"maria": 4, "joao": 3, "ana": 3}
	number := 3000
	for seller, count := range sellers {
		for i := 0; i < count; i++ {
			number++
			_, err := svc.CreateSale(sellerCtx(seller), domain.SaleCreateRequest{
				OrderNumber: strconv.Itoa(number),
				Amount:      "10,00",
			})
			if err != nil {
				t.Fatalf("create for %s: %v", seller, err)
			}
		}
	}

	adminList, err := svc.ListSales(adminCtx())
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if adminList.Count != 10 {
		t.Fatalf("admin should see all 10 sales, got %d", adminList.Count)
	}

	mariaList, err := svc.ListSales(sellerCtx("maria"))
	if err != nil {
		t.Fatalf("seller list: %v", err)
	}
	if mariaList.Count != 4 {
		t.Fatalf("maria should see only her 4 sales, got %d", mariaList.Count)
	}
	for _, sale := range mariaList.Sales {
		if sale.Seller != "maria" {
			t.Fatalf("seller view leaked a row from %q", sale.Seller)
		}
	}
	if mariaList.TotalAmount != "40,00" {
		t.Fatalf("expected formatted total 40,00, got %q", mariaList.TotalAmount)
	}
}

func TestUpdateSaleMissingNumberReturnsNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UpdateSale(adminCtx(), "555", domain.SaleUpdateRequest{
		OrderNumber: "555",
		Amount:      "10,00",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing sale, got %v", err)
	}
}

func TestUpdateSaleKeepsSellerAndOwnership(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.CreateSale(sellerCtx("maria"), domain.SaleCreateRequest{OrderNumber: "4000", Amount: "10,00"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Another seller cannot touch maria's sale.
	_, err := svc.UpdateSale(sellerCtx("joao"), "4000", domain.SaleUpdateRequest{OrderNumber: "4000", Amount: "99,00"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign seller, got %v", err)
	}

	// Admin can, and the original seller stays on the row.
	updated, err := svc.UpdateSale(adminCtx(), "4000", domain.SaleUpdateRequest{OrderNumber: "4001", Amount: "99,00"})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Seller != "maria" {
		t.Fatalf("expected original seller preserved, got %q", updated.Seller)
	}
	if updated.OrderNumber != "4001" {
		t.Fatalf("expected renumbered sale, got %q", updated.OrderNumber)
	}
}

func TestDeleteSaleRequiresAdmin(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.CreateSale(sellerCtx("maria"), domain.SaleCreateRequest{OrderNumber: "5000", Amount: "10,00"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteSale(sellerCtx("maria"), "5000"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for seller delete, got %v", err)
	}
	if err := svc.DeleteSale(adminCtx(), "5000"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := svc.DeleteSale(adminCtx(), "5000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPickupFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := sellerCtx("maria")

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		OrderNumber: "6000",
		Amount:      "10,00",
		PickupLater: true,
		OriginOrder: "5999",
	}); err != nil {
		t.Fatalf("create pickup sale: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{OrderNumber: "6001", Amount: "10,00"}); err != nil {
		t.Fatalf("create plain sale: %v", err)
	}

	pending, err := svc.PendingPickups(ctx)
	if err != nil {
		t.Fatalf("pending pickups: %v", err)
	}
	if len(pending.Sales) != 1 || pending.Sales[0].OrderNumber != "6000" {
		t.Fatalf("expected only sale 6000 pending, got %+v", pending.Sales)
	}

	if err := svc.MarkDelivered(ctx, "6000"); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}

	// Delivered sales cannot be delivered twice.
	if err := svc.MarkDelivered(ctx, "6000"); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale on second delivery, got %v", err)
	}
	// A sale never flagged for pickup cannot be delivered either.
	if err := svc.MarkDelivered(ctx, "6001"); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for non-pickup sale, got %v", err)
	}

	pending, err = svc.PendingPickups(ctx)
	if err != nil {
		t.Fatalf("pending pickups after delivery: %v", err)
	}
	if len(pending.Sales) != 0 {
		t.Fatalf("expected empty pending list, got %d", len(pending.Sales))
	}
}

func TestSummaryRequiresAdmin(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Summary(sellerCtx("maria")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for seller summary, got %v", err)
	}

	if _, err := svc.CreateSale(sellerCtx("maria"), domain.SaleCreateRequest{OrderNumber: "7000", Amount: "25,00"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateSale(sellerCtx("joao"), domain.SaleCreateRequest{OrderNumber: "7001", Amount: "75,00"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	summary, err := svc.Summary(adminCtx())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 2 {
		t.Fatalf("expected 2 sales in summary, got %d", summary.Count)
	}
	if summary.TotalAmount != "100,00" {
		t.Fatalf("expected total 100,00, got %q", summary.TotalAmount)
	}
	if len(summary.BySeller) != 2 {
		t.Fatalf("expected 2 seller buckets, got %d", len(summary.BySeller))
	}
}
