// Package binance provides a USDT-M futures REST client implementing the exchange capabilities
// consumed by the rebalancer: candles, last prices, account, market orders and trade history.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the production USDT-M futures endpoint
	BaseURL = "https://fapi.binance.com"
	// TestnetURL is the futures testnet endpoint
	TestnetURL = "https://testnet.binancefuture.com"

	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
	maxRetryDelay  = 5 * time.Second
	recvWindow     = "10000"

	// DefaultRequestsPerSecond keeps request weight well below the 2400/min futures budget
	DefaultRequestsPerSecond = 10
)

// Config holds client credentials and limits
type Config struct {
	APIKey            string
	APISecret         string
	Testnet           bool
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client is a signed REST session against the futures API
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
	offsetMs   atomic.Int64
	log        zerolog.Logger

	lotMu    sync.Mutex
	lotSizes map[string]lotStep
}

var _ domain.ExchangeClient = (*Client)(nil)

// NewClient creates a futures client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := BaseURL
	if cfg.Testnet {
		baseURL = TestnetURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		secretKey:  strings.TrimSpace(cfg.APISecret),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		retryDelay: baseRetryDelay,
		log:        log.With().Str("client", "binance-futures").Logger(),
	}
}

// FetchOHLCV returns the latest limit bars for symbol, oldest first
func (c *Client) FetchOHLCV(ctx context.Context, symbol, interval string, limit int) (domain.CandleSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/fapi/v1/klines", params, false)
	if err != nil {
		return domain.CandleSeries{}, fmt.Errorf("fetch klines %s: %w", symbol, err)
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.CandleSeries{}, fmt.Errorf("parse klines %s: %w", symbol, err)
	}
	return transformKlines(symbol, interval, raw)
}

// LastPrice returns the latest traded price. Every failure wraps domain.ErrPriceUnavailable.
func (c *Client) LastPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "/fapi/v1/ticker/price", params, false)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrPriceUnavailable, symbol, err)
	}

	var ticker tickerPrice
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrPriceUnavailable, symbol, err)
	}
	if ticker.Price <= 0 {
		return 0, fmt.Errorf("%w: %s: non-positive price %v", domain.ErrPriceUnavailable, symbol, ticker.Price)
	}
	return ticker.Price, nil
}

// FetchAccount returns the wallet balance and active positions
func (c *Client) FetchAccount(ctx context.Context) (*domain.AccountSnapshot, error) {
	body, err := c.get(ctx, "/fapi/v2/account", url.Values{}, true)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	var acc accountResponse
	if err := json.Unmarshal(body, &acc); err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	return transformAccount(acc), nil
}

// FetchPositions returns positions with non-zero initial margin
func (c *Client) FetchPositions(ctx context.Context) ([]domain.Position, error) {
	snap, err := c.FetchAccount(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Positions, nil
}

// CreateMarketOrder submits a market order exactly once. Exchange-side business errors wrap
// domain.ErrOrderRejected; transport failures and 5xx responses wrap domain.ErrOrderSubmissionFailed.
func (c *Client) CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*domain.OrderFill, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: %s: quantity must be positive, got %v", domain.ErrOrderRejected, symbol, quantity)
	}

	qty := formatQuantity(quantity, c.lotSize(ctx, symbol))
	submitted, _ := strconv.ParseFloat(qty, 64)
	if submitted <= 0 {
		return nil, fmt.Errorf("%w: %s: quantity %v is below the lot step", domain.ErrOrderRejected, symbol, quantity)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", "MARKET")
	params.Set("quantity", qty)
	params.Set("newOrderRespType", "RESULT")

	c.log.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("quantity", qty).
		Msg("Submitting market order")

	body, err := c.do(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError && apiErr.Status != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrOrderRejected, symbol, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrOrderSubmissionFailed, symbol, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: parse order response: %w", domain.ErrOrderSubmissionFailed, symbol, err)
	}
	fill := transformOrder(resp)
	fill.SubmittedQty = submitted
	if submitted != quantity {
		c.log.Debug().
			Str("symbol", symbol).
			Float64("requested", quantity).
			Float64("submitted", submitted).
			Msg("Order quantity rounded to lot step")
	}
	return fill, nil
}

// FetchTrades returns fills for symbol within [startMs, endMs). Failures wrap domain.ErrHistoryFetchFailed.
func (c *Client) FetchTrades(ctx context.Context, symbol string, startMs, endMs int64, limit int) ([]domain.TradeRecord, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("startTime", strconv.FormatInt(startMs, 10))
	params.Set("endTime", strconv.FormatInt(endMs-1, 10))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/fapi/v1/userTrades", params, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrHistoryFetchFailed, symbol, err)
	}

	var trades []userTrade
	if err := json.Unmarshal(body, &trades); err != nil {
		return nil, fmt.Errorf("%w: %s: parse trades: %w", domain.ErrHistoryFetchFailed, symbol, err)
	}
	return transformTrades(trades), nil
}

// SyncTime measures the offset between the local clock and exchange time
func (c *Client) SyncTime(ctx context.Context) error {
	body, err := c.get(ctx, "/fapi/v1/time", nil, false)
	if err != nil {
		return fmt.Errorf("fetch server time: %w", err)
	}
	var st serverTime
	if err := json.Unmarshal(body, &st); err != nil {
		return fmt.Errorf("parse server time: %w", err)
	}

	offset := st.ServerTime - time.Now().UnixMilli()
	c.offsetMs.Store(offset)
	c.log.Debug().Int64("offset_ms", offset).Msg("Synchronized exchange clock")
	return nil
}

// NowMs returns exchange time in milliseconds using the last synchronized offset
func (c *Client) NowMs() int64 {
	return time.Now().UnixMilli() + c.offsetMs.Load()
}

// lotSize returns the cached quantity step for symbol, loading exchange info once.
// A failed load leaves quantities unrounded and is retried on the next order.
func (c *Client) lotSize(ctx context.Context, symbol string) *lotStep {
	c.lotMu.Lock()
	defer c.lotMu.Unlock()

	if c.lotSizes == nil {
		body, err := c.get(ctx, "/fapi/v1/exchangeInfo", nil, false)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to load exchange info, submitting unrounded quantity")
			return nil
		}
		var info exchangeInfo
		if err := json.Unmarshal(body, &info); err != nil {
			c.log.Warn().Err(err).Msg("Failed to parse exchange info, submitting unrounded quantity")
			return nil
		}
		c.lotSizes = transformLotSizes(info)
	}

	if lot, ok := c.lotSizes[symbol]; ok {
		return &lot
	}
	return nil
}

// get performs a GET with retry on transient failures
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, signed bool) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		body, err := c.do(ctx, http.MethodGet, endpoint, params, signed)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == maxRetries {
			break
		}

		delay := c.retryBackoff(attempt)
		c.log.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Dur("retry_in", delay).
			Msg("Request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// do performs a single rate-limited request. Non-200 responses become *apiError.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, signed bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := c.encode(params, signed)
	reqURL := c.baseURL + endpoint
	if query != "" {
		reqURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &apiError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Msg == "" {
			apiErr.Msg = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}
	return body, nil
}

// encode serializes params, appending timestamp, recvWindow and the HMAC signature for signed requests
func (c *Client) encode(params url.Values, signed bool) string {
	values := url.Values{}
	for k, v := range params {
		values[k] = append([]string(nil), v...)
	}
	if !signed {
		return values.Encode()
	}

	values.Set("timestamp", strconv.FormatInt(c.NowMs(), 10))
	values.Set("recvWindow", recvWindow)
	query := values.Encode()
	return query + "&signature=" + c.sign(query)
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// isRetryable reports whether a GET failure is transient
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return true
	}
	if apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError {
		return true
	}
	switch apiErr.Code {
	case -1001, -1003, -1016:
		return true
	}
	return false
}

// retryBackoff returns exponential backoff with jitter
func (c *Client) retryBackoff(attempt int) time.Duration {
	delay := c.retryDelay * time.Duration(1<<uint(attempt))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	if delay < 4 {
		return delay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 2))
	return delay + jitter - delay/4
}
