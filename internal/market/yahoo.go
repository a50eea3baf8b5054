package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"niftyfib/internal/logger"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var log = logger.Tag("market")

const (
	defaultYahooBaseURL = "https://query1.finance.yahoo.com"
	yahooUserAgent      = "Mozilla/5.0 (compatible; niftyfib/1.0)"
)

// YahooConfig 配置 YahooSource。
type YahooConfig struct {
	BaseURL         string
	Timeout         time.Duration
	Retries         int
	Backoff         time.Duration
	RateLimitPerMin int
	Client          *http.Client
}

// YahooSource 基于 Yahoo Finance chart API (/v8/finance/chart) 拉取日线。
type YahooSource struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	retries int
	backoff time.Duration
	limiter *rate.Limiter
	nowFn   func() time.Time
}

func NewYahooSource(cfg YahooConfig) *YahooSource {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultYahooBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	limit := rate.Limit(float64(cfg.RateLimitPerMin) / 60.0)
	if cfg.RateLimitPerMin <= 0 {
		limit = rate.Inf
	}
	return &YahooSource{
		baseURL: base,
		client:  client,
		timeout: timeout,
		retries: retries,
		backoff: backoff,
		limiter: rate.NewLimiter(limit, 1),
		nowFn:   time.Now,
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

// FetchDaily 带有限次重试：网络错误、429 与 5xx 会按线性退避重试，其余 4xx 直接返回。
func (y *YahooSource) FetchDaily(ctx context.Context, ticker string, days int) ([]RawBar, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker 不能为空")
	}
	if days <= 0 {
		days = 45
	}
	endpoint := y.chartURL(ticker, days)

	var lastErr error
	for attempt := 0; attempt <= y.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * y.backoff
			log.Warnf("%s %s 第 %d 次重试（%s 后）：%v", y.Name(), ticker, attempt, wait, lastErr)
			if err := sleepContext(ctx, wait); err != nil {
				return nil, err
			}
		}
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, retryable, err := y.get(ctx, endpoint)
		if err != nil {
			lastErr = err
			if !retryable {
				return nil, err
			}
			continue
		}
		return parseChart(body)
	}
	return nil, fmt.Errorf("%s 拉取 %s 失败（%d 次尝试）: %w", y.Name(), ticker, y.retries+1, lastErr)
}

func (y *YahooSource) chartURL(ticker string, days int) string {
	now := y.nowFn().UTC()
	start := now.AddDate(0, 0, -days)
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(now.Unix(), 10))
	q.Set("includePrePost", "false")
	return y.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker) + "?" + q.Encode()
}

func (y *YahooSource) get(ctx context.Context, endpoint string) ([]byte, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode/100 != 2 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("yahoo status=%d: %s", resp.StatusCode, chartError(body))
	}
	return body, false, nil
}

// parseChart 读取 chart.result[0]；null 值保留为 nil，交由调用方决定是否跳过。
func parseChart(body []byte) ([]RawBar, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo 返回非法 JSON")
	}
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("yahoo 返回空结果: %s", chartError(body))
	}
	stamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()

	out := make([]RawBar, 0, len(stamps))
	for i, ts := range stamps {
		if ts.Type != gjson.Number {
			continue
		}
		out = append(out, RawBar{
			Time:  time.Unix(ts.Int(), 0).UTC(),
			Open:  numberAt(opens, i),
			High:  numberAt(highs, i),
			Low:   numberAt(lows, i),
			Close: numberAt(closes, i),
		})
	}
	return out, nil
}

func numberAt(list []gjson.Result, i int) *float64 {
	if i >= len(list) || list[i].Type != gjson.Number {
		return nil
	}
	v := list[i].Float()
	return &v
}

func chartError(body []byte) string {
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return desc.String()
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
