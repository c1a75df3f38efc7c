// Package fetch downloads raw result pages into a local cache directory. It
// never decodes what it downloads.
package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"keiba-etl/internal/telemetry"
	libtelemetry "keiba-etl/lib/telemetry"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_fetch_get   = "get"
	report_fetch_cache = "cache"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"

type Config struct {
	CacheDir       string `json:"cache_dir"`
	Retries        int    `json:"retries"`
	RetryWaitMs    int    `json:"retry_wait_ms"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// MinSleepMs and JitterMs make up the pause between two pages.
	MinSleepMs int    `json:"min_sleep_ms"`
	JitterMs   int    `json:"jitter_ms"`
	Referer    string `json:"referer"`
}

func DefaultConfig() Config {
	return Config{
		CacheDir:       "data/raw/jra",
		Retries:        3,
		RetryWaitMs:    1000,
		TimeoutSeconds: 15,
		MinSleepMs:     1000,
		JitterMs:       1000,
		Referer:        "https://www.jra.go.jp/",
	}
}

type Client struct {
	http   *resty.Client
	config Config
	tel    telemetry.API
}

func NewClient(config Config, tel telemetry.API) *Client {
	client := resty.New().
		SetTimeout(time.Duration(config.TimeoutSeconds) * time.Second).
		SetRetryCount(config.Retries).
		SetRetryWaitTime(time.Duration(config.RetryWaitMs) * time.Millisecond).
		SetRetryMaxWaitTime(time.Duration(config.RetryWaitMs) * 8 * time.Millisecond).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= 500
		}).
		SetHeaders(map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "ja,en-US;q=0.7,en;q=0.3",
		})
	if config.Referer != "" {
		client.SetHeader("Referer", config.Referer)
	}
	libtelemetry.InstrumentResty(client, "keiba.internal.fetch")

	return &Client{
		http:   client,
		config: config,
		tel:    telemetry.NewScopedAPI("fetch", tel),
	}
}

// Get returns the raw body of a page, retrying server errors.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		c.tel.ReportWarning(report_fetch_get, url, err)
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if res.IsError() {
		c.tel.ReportWarning(report_fetch_get, url, res.Status())
		return nil, fmt.Errorf("get %s: %s", url, res.Status())
	}
	return res.Body(), nil
}

// CachePath is where the page of a race is kept.
func (c *Client) CachePath(raceID string) string {
	return filepath.Join(c.config.CacheDir, fmt.Sprintf("race_%s.html", raceID))
}

// FetchToCache downloads a page unless it is already cached, fetched is
// false when the cached copy was kept.
func (c *Client) FetchToCache(ctx context.Context, raceID, url string) (path string, fetched bool, err error) {
	path = c.CachePath(raceID)
	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return path, false, nil
	}

	body, err := c.Get(ctx, url)
	if err != nil {
		return path, false, err
	}

	err = os.MkdirAll(c.config.CacheDir, 0755)
	if err != nil {
		return path, false, err
	}
	// written under a temporary name so an interrupted run never leaves a
	// truncated page behind
	tmp := path + ".part"
	err = os.WriteFile(tmp, body, 0644)
	if err != nil {
		c.tel.ReportBroken(report_fetch_cache, path, err)
		return path, false, err
	}
	err = os.Rename(tmp, path)
	if err != nil {
		c.tel.ReportBroken(report_fetch_cache, path, err)
		return path, false, err
	}
	return path, true, nil
}

// Pause sleeps for the politeness delay, returning early with the context's
// error when it is cancelled.
func (c *Client) Pause(ctx context.Context) error {
	delay := time.Duration(c.config.MinSleepMs) * time.Millisecond
	if c.config.JitterMs > 0 {
		delay += time.Duration(rand.IntN(c.config.JitterMs)) * time.Millisecond
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Target struct {
	RaceID string
	URL    string
}

// ParseTargets reads "<race_id> <url>" lines, blank lines and lines starting
// with # are skipped.
func ParseTargets(r io.Reader) ([]Target, error) {
	var out []Target
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Fields(text)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected \"<race_id> <url>\", got %q", line, text)
		}
		out = append(out, Target{RaceID: parts[0], URL: parts[1]})
	}
	return out, scanner.Err()
}

type Result struct {
	Fetched int
	Cached  int
	Failed  []string
}

// FetchAll downloads every target in order, pausing between two downloads.
// A failed target is recorded and skipped.
func (c *Client) FetchAll(ctx context.Context, targets []Target) (Result, error) {
	var res Result
	for i, target := range targets {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		_, fetched, err := c.FetchToCache(ctx, target.RaceID, target.URL)
		switch {
		case err != nil:
			res.Failed = append(res.Failed, target.RaceID)
		case fetched:
			res.Fetched++
		default:
			res.Cached++
			continue
		}
		if i < len(targets)-1 {
			err = c.Pause(ctx)
			if err != nil {
				return res, err
			}
		}
	}
	return res, nil
}
