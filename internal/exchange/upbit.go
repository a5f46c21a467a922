package exchange

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"SpikeHunter/internal/model"
	"SpikeHunter/internal/ratelimit"
)

// Rate limiter keys: Upbit throttles quotation and exchange endpoints
// separately.
const (
	groupQuotation = "quotation"
	groupExchange  = "exchange"
)

// UpbitClient talks to the Upbit REST API. Public quotation endpoints work
// without credentials; account and order endpoints require a key pair and
// sign each request with an HS256 JWT.
type UpbitClient struct {
	baseURL   string
	accessKey string
	secretKey string
	http      *http.Client
	limiter   *ratelimit.Limiter
	rateCap   float64
	rateRef   float64

	mu          sync.Mutex
	marketCache []string
	cacheAt     time.Time
}

// NewUpbitClient creates a client. Credentials may be empty for dry-run use;
// authenticated calls will then fail with a descriptive error.
func NewUpbitClient(baseURL, accessKey, secretKey string, rateCapacity, rateRefill float64) *UpbitClient {
	return &UpbitClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   ratelimit.New(),
		rateCap:   rateCapacity,
		rateRef:   rateRefill,
	}
}

func (u *UpbitClient) Name() string { return "upbit" }

type upbitCandle struct {
	Market     string  `json:"market"`
	TimeUTC    string  `json:"candle_date_time_utc"`
	Open       float64 `json:"opening_price"`
	High       float64 `json:"high_price"`
	Low        float64 `json:"low_price"`
	Close      float64 `json:"trade_price"`
	AccPrice   float64 `json:"candle_acc_trade_price"`
	AccVolume  float64 `json:"candle_acc_trade_volume"`
	TimestampM int64   `json:"timestamp"`
}

// GetCandles fetches candles at the given resolution ("seconds", "minute1",
// "minute5", ...). Upbit returns newest first; the result is reversed to
// oldest first.
func (u *UpbitClient) GetCandles(ctx context.Context, market, resolution string, count int) (model.Series, error) {
	path, err := candlePath(resolution)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("market", market)
	q.Set("count", strconv.Itoa(count))

	var raw []upbitCandle
	if err := u.public(ctx, path, q, &raw); err != nil {
		return nil, fmt.Errorf("get candles %s: %w", market, err)
	}

	series := make(model.Series, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		c := raw[i]
		t, _ := time.Parse("2006-01-02T15:04:05", c.TimeUTC)
		series = append(series, model.Candle{
			Time:   t,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.AccVolume,
			Value:  c.AccPrice,
		})
	}
	return series, nil
}

func candlePath(resolution string) (string, error) {
	if resolution == "seconds" {
		return "/v1/candles/seconds", nil
	}
	if unit, ok := strings.CutPrefix(resolution, "minute"); ok {
		if _, err := strconv.Atoi(unit); err == nil {
			return "/v1/candles/minutes/" + unit, nil
		}
	}
	return "", fmt.Errorf("unsupported candle resolution %q", resolution)
}

type upbitTicker struct {
	Market           string  `json:"market"`
	TradePrice       float64 `json:"trade_price"`
	SignedChangeRate float64 `json:"signed_change_rate"`
	AccTradePrice24  float64 `json:"acc_trade_price_24h"`
}

func (u *UpbitClient) GetCurrentPrice(ctx context.Context, market string) (float64, error) {
	q := url.Values{}
	q.Set("markets", market)
	var raw []upbitTicker
	if err := u.public(ctx, "/v1/ticker", q, &raw); err != nil {
		return 0, fmt.Errorf("get price %s: %w", market, err)
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("get price %s: empty ticker response", market)
	}
	return raw[0].TradePrice, nil
}

// GetMarketStats lists all markets quoted in the given asset and fetches
// their 24h ticker rows in one call. The market list itself changes rarely
// and is cached for an hour.
func (u *UpbitClient) GetMarketStats(ctx context.Context, quote string) ([]model.MarketStats, error) {
	markets, err := u.listMarkets(ctx, quote)
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("markets", strings.Join(markets, ","))
	var raw []upbitTicker
	if err := u.public(ctx, "/v1/ticker", q, &raw); err != nil {
		return nil, fmt.Errorf("get market stats: %w", err)
	}
	stats := make([]model.MarketStats, 0, len(raw))
	for _, t := range raw {
		stats = append(stats, model.MarketStats{
			Market:        t.Market,
			Price:         t.TradePrice,
			TradedValue24: t.AccTradePrice24,
			ChangeRate24:  t.SignedChangeRate,
		})
	}
	return stats, nil
}

func (u *UpbitClient) listMarkets(ctx context.Context, quote string) ([]string, error) {
	u.mu.Lock()
	if len(u.marketCache) > 0 && time.Since(u.cacheAt) < time.Hour {
		cached := u.marketCache
		u.mu.Unlock()
		return cached, nil
	}
	u.mu.Unlock()

	var raw []struct {
		Market string `json:"market"`
	}
	if err := u.public(ctx, "/v1/market/all", url.Values{}, &raw); err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	markets := make([]string, 0, len(raw))
	for _, m := range raw {
		if strings.HasPrefix(m.Market, quote+"-") {
			markets = append(markets, m.Market)
		}
	}
	sort.Strings(markets)

	u.mu.Lock()
	u.marketCache = markets
	u.cacheAt = time.Now()
	u.mu.Unlock()
	return markets, nil
}

type upbitTick struct {
	TradePrice  float64 `json:"trade_price"`
	TradeVolume float64 `json:"trade_volume"`
	AskBid      string  `json:"ask_bid"`
}

func (u *UpbitClient) GetRecentTrades(ctx context.Context, market string, count int) ([]model.Trade, error) {
	q := url.Values{}
	q.Set("market", market)
	q.Set("count", strconv.Itoa(count))
	var raw []upbitTick
	if err := u.public(ctx, "/v1/trades/ticks", q, &raw); err != nil {
		return nil, fmt.Errorf("get trades %s: %w", market, err)
	}
	trades := make([]model.Trade, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		t := raw[i]
		trades = append(trades, model.Trade{
			Price:  t.TradePrice,
			Volume: t.TradeVolume,
			Side:   model.TradeSide(t.AskBid),
		})
	}
	return trades, nil
}

type upbitAccount struct {
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	AvgBuyPrice string `json:"avg_buy_price"`
}

func (u *UpbitClient) GetBalances(ctx context.Context) ([]Balance, error) {
	var raw []upbitAccount
	if err := u.signed(ctx, http.MethodGet, "/v1/accounts", url.Values{}, &raw); err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	balances := make([]Balance, 0, len(raw))
	for _, a := range raw {
		qty, _ := strconv.ParseFloat(a.Balance, 64)
		avg, _ := strconv.ParseFloat(a.AvgBuyPrice, 64)
		if qty <= 0 {
			continue
		}
		balances = append(balances, Balance{Currency: a.Currency, Quantity: qty, AvgCost: avg})
	}
	return balances, nil
}

type upbitOrder struct {
	UUID   string `json:"uuid"`
	Market string `json:"market"`
	Side   string `json:"side"`
}

// PlaceMarketOrder submits a market order. Upbit models a market buy as
// ord_type "price" (spend this much quote) and a market sell as ord_type
// "market" (sell this base volume).
func (u *UpbitClient) PlaceMarketOrder(ctx context.Context, market string, side OrderSide, amount float64) (*Receipt, error) {
	q := url.Values{}
	q.Set("market", market)
	switch side {
	case SideBuy:
		q.Set("side", "bid")
		q.Set("ord_type", "price")
		q.Set("price", strconv.FormatFloat(amount, 'f', -1, 64))
	case SideSell:
		q.Set("side", "ask")
		q.Set("ord_type", "market")
		q.Set("volume", strconv.FormatFloat(amount, 'f', -1, 64))
	default:
		return nil, fmt.Errorf("invalid order side %q", side)
	}

	var raw upbitOrder
	if err := u.signed(ctx, http.MethodPost, "/v1/orders", q, &raw); err != nil {
		return nil, fmt.Errorf("place %s %s: %w", side, market, err)
	}
	return &Receipt{
		ID:        raw.UUID,
		Market:    market,
		Side:      side,
		Amount:    amount,
		CreatedAt: time.Now(),
	}, nil
}

func (u *UpbitClient) ListOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	q := url.Values{}
	q.Set("state", "wait")
	var raw []upbitOrder
	if err := u.signed(ctx, http.MethodGet, "/v1/orders", q, &raw); err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	orders := make([]OpenOrder, 0, len(raw))
	for _, o := range raw {
		side := SideBuy
		if o.Side == "ask" {
			side = SideSell
		}
		orders = append(orders, OpenOrder{ID: o.UUID, Market: o.Market, Side: side})
	}
	return orders, nil
}

func (u *UpbitClient) CancelOrder(ctx context.Context, id string) (*Receipt, error) {
	q := url.Values{}
	q.Set("uuid", id)
	var raw upbitOrder
	if err := u.signed(ctx, http.MethodDelete, "/v1/order", q, &raw); err != nil {
		return nil, fmt.Errorf("cancel order %s: %w", id, err)
	}
	return &Receipt{ID: raw.UUID, Market: raw.Market, CreatedAt: time.Now()}, nil
}

// public performs an unauthenticated GET against a quotation endpoint.
func (u *UpbitClient) public(ctx context.Context, path string, q url.Values, out any) error {
	if err := u.limiter.Wait(ctx, groupQuotation, u.rateCap, u.rateRef); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return u.do(req, out)
}

// signed performs an authenticated request. The query string is hashed into
// the JWT so the venue can verify parameter integrity.
func (u *UpbitClient) signed(ctx context.Context, method, path string, q url.Values, out any) error {
	if u.accessKey == "" || u.secretKey == "" {
		return fmt.Errorf("%s %s: API credentials not configured", method, path)
	}
	if err := u.limiter.Wait(ctx, groupExchange, u.rateCap, u.rateRef); err != nil {
		return err
	}

	token, err := u.authToken(q.Encode())
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	endpoint := u.baseURL + path
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(q.Encode())
	} else if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return u.do(req, out)
}

func (u *UpbitClient) authToken(query string) (string, error) {
	claims := jwt.MapClaims{
		"access_key": u.accessKey,
		"nonce":      uuid.New().String(),
	}
	if query != "" {
		sum := sha512.Sum512([]byte(query))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(u.secretKey))
}

func (u *UpbitClient) do(req *http.Request, out any) error {
	resp, err := u.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Debug().Str("url", req.URL.Path).Int("status", resp.StatusCode).Msg("upbit request rejected")
		return fmt.Errorf("upbit %s: status %d: %s", req.URL.Path, resp.StatusCode, truncate(string(data), 200))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
