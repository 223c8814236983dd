// Package delta talks to the Delta Exchange public REST API.
package delta

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CrossWatch/internal/domain/models"
	drepo "CrossWatch/internal/domain/repository"
	"CrossWatch/internal/service/ratelimit"
	xhttp "CrossWatch/pkg/http"
	xutil "CrossWatch/pkg/util"
)

// Option configures Client.
type Option func(*Client)

// Client implements ProductSource, TickerFeed and CandleSource.
type Client struct {
	baseURL     string
	candlesPath string
	http        *xhttp.Client
	limiter     *ratelimit.Limiter
	rate        float64
	burst       float64
	metrics     drepo.Metrics
	now         func() time.Time
}

// New creates a Delta REST client rooted at baseURL (e.g. https://api.delta.exchange/v2).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		candlesPath: "/history/candles",
		http:        xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		rate:        8,
		burst:       16,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCandlesPath overrides the candles endpoint path.
func WithCandlesPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.candlesPath = "/" + strings.TrimLeft(p, "/")
		}
	}
}

// WithRateLimit paces requests with a token bucket of the given rate and burst.
func WithRateLimit(l *ratelimit.Limiter, perSecond, burst float64) Option {
	return func(c *Client) {
		c.limiter = l
		if perSecond > 0 {
			c.rate = perSecond
		}
		if burst > 0 {
			c.burst = burst
		}
	}
}

// WithMetrics records upstream latency and errors.
func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Result  T    `json:"result"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error,omitempty"`
}

type candleDTO struct {
	Time   int64           `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Products returns the full product list in upstream order.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var env envelope[[]models.Product]
	if err := c.get(ctx, "products", "/products", nil, &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// Tickers returns the latest ticker of every product.
func (c *Client) Tickers(ctx context.Context) ([]models.Ticker, error) {
	var env envelope[[]models.Ticker]
	if err := c.get(ctx, "tickers", "/tickers", nil, &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// Candles returns up to limit candles for symbol, oldest first. The request
// window is limit buckets wide and ends now.
func (c *Client) Candles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("candles: limit must be positive")
	}
	width := tf.Duration()
	if width == 0 {
		return nil, fmt.Errorf("candles: unsupported timeframe %q", tf)
	}
	start, end := xutil.CandleWindow(c.now(), width, limit)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", string(tf))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))

	var env envelope[[]candleDTO]
	if err := c.get(ctx, "candles", c.candlesPath, q, &env); err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(env.Result))
	for _, d := range env.Result {
		out = append(out, models.Candle{
			Time:   time.Unix(d.Time, 0).UTC(),
			Open:   d.Open.InexactFloat64(),
			High:   d.High.InexactFloat64(),
			Low:    d.Low.InexactFloat64(),
			Close:  d.Close.InexactFloat64(),
			Volume: d.Volume.InexactFloat64(),
		})
	}
	// upstream returns newest first
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type successChecker interface{ ok() (bool, string) }

func (e *envelope[T]) ok() (bool, string) {
	if e.Error != nil && e.Error.Code != "" {
		return false, e.Error.Code
	}
	return e.Success, ""
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, dest successChecker) (err error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, op, c.burst, c.rate); err != nil {
			return fmt.Errorf("delta %s: rate limit: %w", op, err)
		}
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordUpstream(op, time.Since(start).Seconds(), err)
		}
	}()

	opts := &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if len(q) > 0 {
		opts.QueryParams = q
	}
	if err = c.http.SendAndParse(ctx, opts, dest); err != nil {
		return fmt.Errorf("delta %s: %w", op, err)
	}
	if ok, code := dest.ok(); !ok {
		if code == "" {
			code = "unsuccessful response"
		}
		err = fmt.Errorf("delta %s: %s", op, code)
		return err
	}
	return nil
}

var (
	_ drepo.ProductSource = (*Client)(nil)
	_ drepo.TickerFeed    = (*Client)(nil)
	_ drepo.CandleSource  = (*Client)(nil)
)
