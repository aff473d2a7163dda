// Package ingest fetches daily OHLCV history from the chart provider and
// normalizes it into a validated price series.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"index-systemv1/internal/model"
)

var (
	ErrNoData     = errors.New("provider returned no data")
	ErrBadPayload = errors.New("provider payload malformed")
)

// StatusError is a non-2xx provider response. 4xx responses are permanent
// and skip the retry loop.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider status %d %s", e.Code, http.StatusText(e.Code))
}

// Client fetches daily bars over HTTP with a shared rate limit and
// exponential-backoff retries. One Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
	log        *slog.Logger
}

// Options configure a Client; zero values get conservative defaults.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec int
	MaxRetryWindow time.Duration
	Logger         *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 2
	}
	if opts.MaxRetryWindow == 0 {
		opts.MaxRetryWindow = 45 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), opts.RequestsPerSec),
		maxElapsed: opts.MaxRetryWindow,
		log:        opts.Logger.With("component", "ingest"),
	}
}

// chartResponse is the provider's chart envelope. Only the fields the
// pipeline reads are declared.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDaily downloads daily bars for symbol over [from, to] and returns a
// cleaned, validated series. A zero `from` means full available history.
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (model.Series, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}

	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period2", fmt.Sprintf("%d", to.Unix()))
	if from.IsZero() {
		q.Set("range", "max")
	} else {
		q.Set("period1", fmt.Sprintf("%d", from.Unix()))
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	start := time.Now()
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	series, err := decodeChart(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", symbol, err)
	}

	series = Clean(series)
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", symbol, err)
	}

	c.log.Info("fetched daily bars",
		"symbol", symbol,
		"rows", len(series),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return series, nil
}

// get performs one rate-limited GET with exponential-backoff retries on
// transport errors and 5xx responses.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "index-systemv1/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{Code: resp.StatusCode}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxElapsed
	notify := func(err error, wait time.Duration) {
		c.log.Warn("provider request failed, retrying", "error", err, "wait", wait.Round(time.Millisecond))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(strategy, ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

// decodeChart flattens the provider envelope into price points. Rows with a
// missing close are dropped here; dedup and ordering are Clean's job.
func decodeChart(raw []byte) (model.Series, error) {
	var cr chartResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrNoData, cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	res := cr.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	if len(quote.Close) != len(res.Timestamp) {
		return nil, fmt.Errorf("%w: %d closes for %d timestamps", ErrBadPayload, len(quote.Close), len(res.Timestamp))
	}

	at := func(xs []float64, i int) float64 {
		if i < len(xs) {
			return xs[i]
		}
		return 0
	}

	series := make(model.Series, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if quote.Close[i] == 0 {
			continue // provider gap
		}
		series = append(series, model.PricePoint{
			Date:   model.Day(time.Unix(ts, 0).UTC()),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  quote.Close[i],
			Volume: at(quote.Volume, i),
		})
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}
	return series, nil
}
