package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"metavendas/internal/domain"
)

func saleFor(seller string, amount string, pickup string) domain.Sale {
	value, _ := decimal.NewFromString(amount)
	return domain.Sale{
		OrderDate:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		OrderNumber: "100",
		Seller:      seller,
		PickupLater: pickup,
		Amount:      value,
		OriginOrder: domain.OriginPlaceholder,
	}
}

func TestAggregateComputesTotalsPerSeller(t *testing.T) {
	sales := []domain.Sale{
		saleFor("maria", "100.50", domain.PickupNo),
		saleFor("maria", "49.50", domain.PickupPending),
		saleFor("joao", "200.00", domain.PickupDelivered),
	}

	summary := Aggregate(sales)

	if summary.Count != 3 {
		t.Fatalf("expected count 3, got %d", summary.Count)
	}
	if summary.TotalAmount != "350,00" {
		t.Fatalf("expected total 350,00, got %q", summary.TotalAmount)
	}
	if summary.PendingPickups != 1 {
		t.Fatalf("expected 1 pending pickup, got %d", summary.PendingPickups)
	}
	if len(summary.BySeller) != 2 {
		t.Fatalf("expected 2 seller buckets, got %d", len(summary.BySeller))
	}
	// Sellers are sorted alphabetically.
	if summary.BySeller[0].Seller != "joao" || summary.BySeller[1].Seller != "maria" {
		t.Fatalf("expected sorted sellers, got %+v", summary.BySeller)
	}
	if summary.BySeller[1].TotalAmount != "150,00" || summary.BySeller[1].Count != 2 {
		t.Fatalf("unexpected maria bucket: %+v", summary.BySeller[1])
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	summary := Aggregate(nil)
	if summary.Count != 0 {
		t.Fatalf("expected count 0, got %d", summary.Count)
	}
	if summary.TotalAmount != "0,00" {
		t.Fatalf("expected total 0,00, got %q", summary.TotalAmount)
	}
	if len(summary.BySeller) != 0 {
		t.Fatalf("expected no seller buckets, got %d", len(summary.BySeller))
	}
}
