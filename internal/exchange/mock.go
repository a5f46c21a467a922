package exchange

import (
	"context"
	"fmt"
	"time"

	"SpikeHunter/internal/model"
)

// MockClient returns controllable fixed data for development and testing.
// Zero-value fields fall back to harmless defaults; per-market errors can be
// injected through the error maps.
type MockClient struct {
	Candles      map[string]model.Series
	Prices       map[string]float64
	Balances     []Balance
	Stats        []model.MarketStats
	Trades       map[string][]model.Trade
	OpenOrders   []OpenOrder
	CandleErr    map[string]error
	PriceErr     map[string]error
	OrderErr     error
	BalancesErr  error
	PlacedOrders []Receipt
	Cancelled    []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		Candles: make(map[string]model.Series),
		Prices:  make(map[string]float64),
		Trades:  make(map[string][]model.Trade),
	}
}

func (m *MockClient) Name() string { return "mock" }

func (m *MockClient) GetCandles(_ context.Context, market, _ string, count int) (model.Series, error) {
	if err := m.CandleErr[market]; err != nil {
		return nil, err
	}
	s, ok := m.Candles[market]
	if !ok {
		return nil, fmt.Errorf("mock: no candles for %s", market)
	}
	return s.Tail(count), nil
}

func (m *MockClient) GetCurrentPrice(_ context.Context, market string) (float64, error) {
	if err := m.PriceErr[market]; err != nil {
		return 0, err
	}
	p, ok := m.Prices[market]
	if !ok {
		return 0, fmt.Errorf("mock: no price for %s", market)
	}
	return p, nil
}

func (m *MockClient) GetBalances(_ context.Context) ([]Balance, error) {
	if m.BalancesErr != nil {
		return nil, m.BalancesErr
	}
	return m.Balances, nil
}

func (m *MockClient) GetMarketStats(_ context.Context, _ string) ([]model.MarketStats, error) {
	return m.Stats, nil
}

func (m *MockClient) GetRecentTrades(_ context.Context, market string, count int) ([]model.Trade, error) {
	trades := m.Trades[market]
	if len(trades) > count {
		trades = trades[len(trades)-count:]
	}
	return trades, nil
}

func (m *MockClient) PlaceMarketOrder(_ context.Context, market string, side OrderSide, amount float64) (*Receipt, error) {
	if m.OrderErr != nil {
		return nil, m.OrderErr
	}
	r := Receipt{
		ID:        fmt.Sprintf("mock-%d", len(m.PlacedOrders)+1),
		Market:    market,
		Side:      side,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	m.PlacedOrders = append(m.PlacedOrders, r)
	return &r, nil
}

func (m *MockClient) ListOpenOrders(_ context.Context) ([]OpenOrder, error) {
	return m.OpenOrders, nil
}

func (m *MockClient) CancelOrder(_ context.Context, id string) (*Receipt, error) {
	m.Cancelled = append(m.Cancelled, id)
	return &Receipt{ID: id, CreatedAt: time.Now()}, nil
}

// GenerateSeries builds count candles of synthetic flat data around basePrice
// with the given per-candle volume, useful as a starting point for tests.
func GenerateSeries(basePrice, volume float64, count int) model.Series {
	s := make(model.Series, count)
	now := time.Now()
	for i := 0; i < count; i++ {
		s[i] = model.Candle{
			Time:   now.Add(time.Duration(i-count) * time.Second),
			Open:   basePrice,
			High:   basePrice * 1.0001,
			Low:    basePrice * 0.9999,
			Close:  basePrice,
			Volume: volume,
		}
	}
	return s
}
