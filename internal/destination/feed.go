package destination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultFeedTimeout = 10 * time.Second
	maxFeedBytes       = 8 << 20
	defaultAdvisory    = "Stable Environment"
)

// Column layout of the sensor sheet.
const (
	colTimestamp = iota
	colSoundRaw
	colSoilRaw
	colSoundStress
	colSoilStress
	colEcoStress
	colStatus
	colAdvisory
)

// ErrInsufficientRows is returned when the feed has no data row below its header.
var ErrInsufficientRows = errors.New("feed has fewer than 2 rows")

// FeedClient reads the latest reading from the live sensor sheet.
type FeedClient struct {
	feedURL string
	client  *http.Client
	log     *slog.Logger
	now     func() time.Time
}

// NewFeedClient constructs a FeedClient. A zero timeout uses 10 seconds.
func NewFeedClient(feedURL string, timeout time.Duration, log *slog.Logger) *FeedClient {
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &FeedClient{
		feedURL: feedURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
		now:     time.Now,
	}
}

// FetchLatest returns the newest reading, or nil when none is available.
// Network failures, timeouts, bad status codes and malformed tables all yield nil;
// callers keep their previous live data in that case.
func (c *FeedClient) FetchLatest(ctx context.Context) (update *MetricsUpdate) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("live feed parse panicked", "recover", r)
			update = nil
		}
	}()

	body, err := c.fetch(ctx)
	if err != nil {
		c.log.Warn("live feed fetch failed", "err", err)
		return nil
	}

	u, err := ParseFeed(body, c.now())
	if err != nil {
		c.log.Warn("live feed parse failed", "err", err)
		return nil
	}
	return u
}

// fetch performs an uncached GET with a cache-busting query parameter.
func (c *FeedClient) fetch(ctx context.Context) (string, error) {
	u, err := url.Parse(c.feedURL)
	if err != nil {
		return "", fmt.Errorf("parsing feed URL: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating feed request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET feed returned status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", fmt.Errorf("reading feed body: %w", err)
	}
	return string(b), nil
}

// ParseFeed turns the CSV text of the sheet into an update built from its last row.
// now supplies the sync time when the timestamp cell is blank.
func ParseFeed(text string, now time.Time) (*MetricsUpdate, error) {
	rows := splitRows(text)
	if len(rows) < 2 {
		return nil, fmt.Errorf("parsing feed: %w", ErrInsufficientRows)
	}

	latest := splitCells(rows[len(rows)-1])
	cell := func(i int) string {
		if i < len(latest) {
			return latest[i]
		}
		return ""
	}

	lastSync := cell(colTimestamp)
	if lastSync == "" {
		lastSync = now.Format("15:04:05")
	}
	advisory := cell(colAdvisory)
	if advisory == "" {
		advisory = defaultAdvisory
	}

	return &MetricsUpdate{
		NoiseDB:      ClampStress(CleanNumber(cell(colSoundStress))),
		SoilPPM:      ClampStress(CleanNumber(cell(colSoilStress))),
		EcoStress:    ClampStress(CleanNumber(cell(colEcoStress))),
		Status:       Classify(cell(colStatus)),
		LastSync:     lastSync,
		LocalSignals: []string{advisory},
	}, nil
}

// splitRows splits on line breaks and drops blank rows.
func splitRows(text string) []string {
	lines := strings.Split(text, "\n")
	rows := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}

// splitCells splits a row on every comma followed by an even number of
// double quotes, i.e. commas outside a closed quoted section.
func splitCells(row string) []string {
	var cuts []int
	quotesAfter := 0
	for i := len(row) - 1; i >= 0; i-- {
		switch row[i] {
		case '"':
			quotesAfter++
		case ',':
			if quotesAfter%2 == 0 {
				cuts = append(cuts, i)
			}
		}
	}

	cells := make([]string, 0, len(cuts)+1)
	start := 0
	for j := len(cuts) - 1; j >= 0; j-- {
		cells = append(cells, cleanCell(row[start:cuts[j]]))
		start = cuts[j] + 1
	}
	return append(cells, cleanCell(row[start:]))
}

func cleanCell(c string) string {
	c = strings.TrimPrefix(c, `"`)
	c = strings.TrimSuffix(c, `"`)
	return strings.TrimSpace(c)
}

// CleanNumber keeps only digits and dots and parses the longest leading number.
// It never fails: empty or unparseable input yields 0.
func CleanNumber(val string) float64 {
	var b strings.Builder
	for _, r := range val {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if j := strings.IndexByte(s[i+1:], '.'); j >= 0 {
			s = s[:i+1+j]
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
