package executor

import (
	"context"
	"testing"
	"time"

	"SpikeHunter/internal/exchange"
	"SpikeHunter/internal/model"
)

func snapshot(quote, baseQty, avgCost float64) *model.Snapshot {
	return &model.Snapshot{
		Balances: map[string]model.Position{
			"KRW": {Quantity: quote},
			"AAA": {Quantity: baseQty, AvgCost: avgCost},
		},
		Prices:  map[string]float64{"KRW-AAA": 100},
		TakenAt: time.Now(),
	}
}

func TestResolveSize(t *testing.T) {
	tests := []struct {
		name      string
		fraction  float64
		available float64
		want      float64
	}{
		{"simple", 0.1, 100000, 10000},
		{"full", 1.0, 100000, 100000},
		{"clamped high", 1.5, 100000, 100000},
		{"clamped negative", -0.5, 100000, 0},
		{"zero available", 0.5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveSize(tt.fraction, tt.available); got != tt.want {
				t.Errorf("ResolveSize(%v, %v) = %v, want %v", tt.fraction, tt.available, got, tt.want)
			}
		})
	}
}

func TestBuy_DryRunReceipt(t *testing.T) {
	mock := exchange.NewMockClient()
	x := New(mock, true, 5000, "KRW")

	receipt, err := x.Buy(context.Background(), "KRW-AAA", 0.1, snapshot(100000, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if receipt == nil {
		t.Fatal("expected a synthetic receipt")
	}
	if !receipt.DryRun {
		t.Error("receipt not marked dry-run")
	}
	if receipt.Side != exchange.SideBuy {
		t.Errorf("side = %s", receipt.Side)
	}
	if receipt.Amount != 10000 {
		t.Errorf("amount = %v, want 10000", receipt.Amount)
	}
	if len(mock.PlacedOrders) != 0 {
		t.Error("dry-run buy reached the exchange")
	}
}

func TestBuy_BelowMinNotionalSkips(t *testing.T) {
	mock := exchange.NewMockClient()
	x := New(mock, true, 5000, "KRW")

	// 10% of 40000 = 4000, under the 5000 floor.
	receipt, err := x.Buy(context.Background(), "KRW-AAA", 0.1, snapshot(40000, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if receipt != nil {
		t.Fatalf("expected the skip sentinel, got %+v", receipt)
	}
}

func TestBuy_LivePlacesOrder(t *testing.T) {
	mock := exchange.NewMockClient()
	x := New(mock, false, 5000, "KRW")

	receipt, err := x.Buy(context.Background(), "KRW-AAA", 0.1, snapshot(100000, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if receipt == nil || receipt.DryRun {
		t.Fatalf("expected a live receipt, got %+v", receipt)
	}
	if len(mock.PlacedOrders) != 1 {
		t.Fatalf("placed orders = %d, want 1", len(mock.PlacedOrders))
	}
	if got := mock.PlacedOrders[0]; got.Side != exchange.SideBuy || got.Amount != 10000 {
		t.Errorf("order = %+v", got)
	}
}

func TestSell_UnheldIsNoop(t *testing.T) {
	mock := exchange.NewMockClient()
	x := New(mock, false, 5000, "KRW")

	receipt, err := x.Sell(context.Background(), "KRW-AAA", 0.5, snapshot(100000, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if receipt != nil {
		t.Fatalf("sell against an empty position must be a no-op, got %+v", receipt)
	}
	if len(mock.PlacedOrders) != 0 {
		t.Error("order placed for an unheld asset")
	}
}

func TestSell_FractionOfHolding(t *testing.T) {
	mock := exchange.NewMockClient()
	x := New(mock, false, 5000, "KRW")

	receipt, err := x.Sell(context.Background(), "KRW-AAA", 0.5, snapshot(0, 2.0, 100))
	if err != nil {
		t.Fatal(err)
	}
	if receipt == nil {
		t.Fatal("expected a receipt")
	}
	if receipt.Side != exchange.SideSell || receipt.Amount != 1.0 {
		t.Errorf("receipt = %+v, want SELL of 1.0", receipt)
	}
}

func TestLiquidate_SellsFullPosition(t *testing.T) {
	mock := exchange.NewMockClient()
	x := New(mock, false, 5000, "KRW")

	receipt, err := x.Liquidate(context.Background(), "KRW-AAA", snapshot(0, 2.5, 100))
	if err != nil {
		t.Fatal(err)
	}
	if receipt == nil || receipt.Amount != 2.5 {
		t.Fatalf("liquidate receipt = %+v, want full 2.5", receipt)
	}
}

func TestFlatten_CancelsAndLiquidates(t *testing.T) {
	mock := exchange.NewMockClient()
	mock.OpenOrders = []exchange.OpenOrder{{ID: "o-1", Market: "KRW-AAA"}, {ID: "o-2", Market: "KRW-BBB"}}
	mock.Balances = []exchange.Balance{
		{Currency: "KRW", Quantity: 50000},
		{Currency: "AAA", Quantity: 100.0, AvgCost: 100},
		{Currency: "DUST", Quantity: 0.001, AvgCost: 100},
	}
	mock.Prices["KRW-AAA"] = 100
	mock.Prices["KRW-DUST"] = 100

	x := New(mock, false, 5000, "KRW")
	x.Flatten(context.Background())

	if len(mock.Cancelled) != 2 {
		t.Errorf("cancelled = %v, want both open orders", mock.Cancelled)
	}
	if len(mock.PlacedOrders) != 1 {
		t.Fatalf("placed orders = %d, want 1 (quote and dust excluded)", len(mock.PlacedOrders))
	}
	got := mock.PlacedOrders[0]
	if got.Market != "KRW-AAA" || got.Side != exchange.SideSell || got.Amount != 100.0 {
		t.Errorf("liquidation order = %+v", got)
	}
}

func TestFlatten_DryRunSkips(t *testing.T) {
	mock := exchange.NewMockClient()
	mock.OpenOrders = []exchange.OpenOrder{{ID: "o-1", Market: "KRW-AAA"}}
	mock.Balances = []exchange.Balance{{Currency: "AAA", Quantity: 2.0}}
	mock.Prices["KRW-AAA"] = 100

	x := New(mock, true, 5000, "KRW")
	x.Flatten(context.Background())

	if len(mock.Cancelled) != 0 || len(mock.PlacedOrders) != 0 {
		t.Error("dry-run flatten must not touch the exchange")
	}
}
