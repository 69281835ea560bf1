package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPriceWithDiscount(t *testing.T) {
	cases := []struct {
		name       string
		price      int64
		percentage float64
		want       int64
	}{
		{"zero percent keeps price", 500, 0, 500},
		{"exact division", 500, 5, 475},
		{"rounds up", 999, 5, 950},
		{"half percent rounds up", 100, 0.5, 100},
		{"full discount", 100, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PriceWithDiscount(tc.price, tc.percentage); got != tc.want {
				t.Fatalf("PriceWithDiscount(%d, %v) = %d, want %d", tc.price, tc.percentage, got, tc.want)
			}
		})
	}
}

func TestDiscount_Percentage_Cumulative(t *testing.T) {
	d := &Discount{Type: DiscountTypeCumulative, MinAmount: 10, Percentage: 7}

	if got := d.DiscountPercentage(9, 100); got != 0 {
		t.Fatalf("discount must not apply below threshold, got %v", got)
	}
	if got := d.DiscountPercentage(10, 0); got != 7 {
		t.Fatalf("discount must apply at threshold, got %v", got)
	}
	if got := d.DiscountPercentage(50, 0); got != 7 {
		t.Fatalf("discount must apply above threshold, got %v", got)
	}

	// Порог задает единственное условие, нулевой порог открыт всем
	open := &Discount{Type: DiscountTypeCumulative, MinAmount: 0, Percentage: 7}
	if got := open.DiscountPercentage(0, 0); got != 7 {
		t.Fatalf("zero threshold must apply without history, got %v", got)
	}
}

func TestDiscount_Percentage_Bulk(t *testing.T) {
	d := &Discount{Type: DiscountTypeBulk, MinAmount: 5, Percentage: 3}

	if got := d.DiscountPercentage(100, 4); got != 0 {
		t.Fatalf("bulk discount must ignore purchase history, got %v", got)
	}
	if got := d.DiscountPercentage(0, 5); got != 3 {
		t.Fatalf("bulk discount must apply at current amount, got %v", got)
	}
}

func TestCampaign_ActiveAt(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	c := &MarketingCampaign{
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC),
	}

	if !c.ActiveAt(now) {
		t.Fatalf("campaign must be active inside window")
	}
	if !c.ActiveAt(c.StartDate) || !c.ActiveAt(c.EndDate) {
		t.Fatalf("campaign bounds are inclusive")
	}
	if c.ActiveAt(c.StartDate.Add(-time.Second)) {
		t.Fatalf("campaign must not be active before start")
	}
	if c.ActiveAt(c.EndDate.Add(time.Second)) {
		t.Fatalf("campaign must not be active after end")
	}
}

func TestCampaign_AppliesTo(t *testing.T) {
	vesta := &Car{ID: uuid.New(), Brand: "Lada", Model: "Vesta", Generation: "I", YearRelease: 2015}
	granta := &Car{ID: uuid.New(), Brand: "Lada", Model: "Granta", Generation: "I", YearRelease: 2011}
	c := &MarketingCampaign{Cars: []*Car{granta, vesta}}

	if !c.AppliesTo(vesta.ID) {
		t.Fatalf("expected campaign to cover car")
	}
	if c.AppliesTo(uuid.New()) {
		t.Fatalf("campaign must not cover unrelated car")
	}
}

func TestCampaign_AppliesToCharacteristic(t *testing.T) {
	vesta := &Car{ID: uuid.New(), Brand: "Lada", Model: "Vesta", Generation: "I", YearRelease: 2015}
	c := &MarketingCampaign{Cars: []*Car{vesta}}

	if !c.AppliesToCharacteristic(&CarCharacteristic{Brand: "Lada", Model: "Vesta", Generation: "I"}) {
		t.Fatalf("expected campaign to cover characteristic")
	}
	if c.AppliesToCharacteristic(&CarCharacteristic{Brand: "Kia"}) {
		t.Fatalf("campaign must not cover foreign brand")
	}
	if c.AppliesToCharacteristic(nil) {
		t.Fatalf("nil characteristic must not match")
	}
}
