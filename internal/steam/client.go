package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"steam-tracker-bot/internal/types"
)

// Steam rejects requests without a browser user agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

const defaultBaseURL = "https://steamcommunity.com"

// Config configures the steam community client.
type Config struct {
	// BaseURL overrides the steam community host, used by tests.
	BaseURL string
	// Timeout bounds every outbound request.
	Timeout time.Duration
	// RequestsPerSecond paces all outbound calls through one token bucket.
	RequestsPerSecond float64
	// Currency is the steam wallet currency code for price lookups.
	Currency int
}

// Client talks to the steam community endpoints: profile resolution,
// inventory fetch and market price lookup. It holds no state besides the
// shared rate limiter.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	baseURL  string
	currency int
}

// NewClient creates a steam client with a shared rate limiter so the
// watcher's batch and interactive requests respect one budget.
func NewClient(c Config) *Client {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 20 * time.Second
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 0.2
	}
	return &Client{
		http:     &http.Client{Timeout: c.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1),
		baseURL:  strings.TrimRight(c.BaseURL, "/"),
		currency: c.Currency,
	}
}

var (
	profileIDRe = regexp.MustCompile(`/profiles/(\d+)`)
	steamID64Re = regexp.MustCompile(`<steamID64>(\d+)</steamID64>`)
	htmlSteamRe = regexp.MustCompile(`"steamid":"(\d+)"`)
	privacyScan = []string{"<privacyState>private", "This profile is private"}
)

// ResolveProfileID extracts the numeric steam id from a profile link.
// Numeric /profiles/ links are matched directly; vanity /id/ links require
// fetching the profile's XML view, with the HTML page as fallback.
func (c *Client) ResolveProfileID(ctx context.Context, link string) (string, error) {
	link = strings.TrimRight(strings.TrimSpace(link), "/")

	if m := profileIDRe.FindStringSubmatch(link); m != nil {
		return m[1], nil
	}
	if !strings.Contains(link, "/id/") {
		return "", types.ErrInvalidLink
	}

	body, err := c.get(ctx, link+"/?xml=1")
	if err != nil {
		return "", err
	}
	if isPrivateProfile(body) {
		return "", types.ErrProfilePrivate
	}
	if m := steamID64Re.FindStringSubmatch(body); m != nil {
		return m[1], nil
	}

	body, err = c.get(ctx, link)
	if err != nil {
		return "", err
	}
	if isPrivateProfile(body) {
		return "", types.ErrProfilePrivate
	}
	if m := htmlSteamRe.FindStringSubmatch(body); m != nil {
		return m[1], nil
	}
	return "", types.ErrInvalidLink
}

// isPrivateProfile is a best-effort check for known privacy markers in the
// fetched profile text.
func isPrivateProfile(body string) bool {
	for _, marker := range privacyScan {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

type inventoryPayload struct {
	Assets []struct {
		ClassID    string `json:"classid"`
		InstanceID string `json:"instanceid"`
		Amount     string `json:"amount"`
	} `json:"assets"`
	Descriptions []struct {
		ClassID        string `json:"classid"`
		InstanceID     string `json:"instanceid"`
		MarketHashName string `json:"market_hash_name"`
		Type           string `json:"type"`
		Marketable     int    `json:"marketable"`
		Tradable       int    `json:"tradable"`
	} `json:"descriptions"`
}

// FetchInventory downloads a user's CS inventory and groups it by market
// hash name. Only marketable or tradable items are kept; duplicates
// collapse into an amount. The result is sorted by name.
func (c *Client) FetchInventory(ctx context.Context, steamID string) ([]types.SnapshotItem, error) {
	endpoint := fmt.Sprintf("%s/inventory/%s/730/2?l=english&count=2000", c.baseURL, steamID)
	log.Debugf("fetching inventory: %s", endpoint)

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, types.ErrInventoryPrivate
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("steam rate limit hit: %w", types.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("inventory request returned %d: %w", resp.StatusCode, types.ErrUnavailable)
	}

	var payload inventoryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.ErrInventoryPrivate
	}
	if len(payload.Assets) == 0 || len(payload.Descriptions) == 0 {
		return nil, types.ErrInventoryPrivate
	}

	type desc struct {
		name     string
		typeHint string
		material bool
	}
	descriptions := make(map[string]desc, len(payload.Descriptions))
	for _, d := range payload.Descriptions {
		descriptions[d.ClassID+"_"+d.InstanceID] = desc{
			name:     d.MarketHashName,
			typeHint: d.Type,
			material: d.Marketable == 1 || d.Tradable == 1,
		}
	}

	grouped := make(map[string]*types.SnapshotItem)
	for _, asset := range payload.Assets {
		d, ok := descriptions[asset.ClassID+"_"+asset.InstanceID]
		if !ok || d.name == "" || !d.material {
			continue
		}
		amount := 1
		if n, err := strconv.Atoi(asset.Amount); err == nil && n > 0 {
			amount = n
		}
		if item, ok := grouped[d.name]; ok {
			item.Amount += amount
			continue
		}
		grouped[d.name] = &types.SnapshotItem{Name: d.name, Type: d.typeHint, Amount: amount}
	}

	items := make([]types.SnapshotItem, 0, len(grouped))
	for _, item := range grouped {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	log.Debugf("inventory for %s: %d distinct items", steamID, len(items))
	return items, nil
}

type pricePayload struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
}

// FetchPrice looks up the current lowest market price for an item and
// normalizes the display string into a number.
func (c *Client) FetchPrice(ctx context.Context, itemName string) (types.PriceQuote, error) {
	endpoint := fmt.Sprintf("%s/market/priceoverview/?appid=730&currency=%d&market_hash_name=%s",
		c.baseURL, c.currency, url.QueryEscape(itemName))

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return types.PriceQuote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.PriceQuote{}, fmt.Errorf("price request returned %d: %w", resp.StatusCode, types.ErrUnavailable)
	}

	var payload pricePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.PriceQuote{}, types.ErrPriceUnavailable
	}
	if !payload.Success || payload.LowestPrice == "" {
		return types.PriceQuote{}, types.ErrPriceUnavailable
	}

	value, err := NormalizePrice(payload.LowestPrice)
	if err != nil {
		log.Debugf("unparseable price %q for %s", payload.LowestPrice, itemName)
		return types.PriceQuote{}, types.ErrPriceUnavailable
	}
	return types.PriceQuote{Value: value, Display: payload.LowestPrice}, nil
}

var priceStripRe = regexp.MustCompile(`[^\d.,]`)

// NormalizePrice turns a display price like "12,50 руб." or "$12.50" into
// its numeric value. Both comma and dot are accepted as the decimal
// separator.
func NormalizePrice(display string) (float64, error) {
	cleaned := priceStripRe.ReplaceAllString(display, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if i := strings.LastIndex(cleaned, "."); i != -1 {
		// Collapse thousands separators: only the last mark is decimal.
		cleaned = strings.ReplaceAll(cleaned[:i], ".", "") + cleaned[i:]
	}
	if cleaned == "" {
		return 0, fmt.Errorf("no digits in price %q", display)
	}
	return strconv.ParseFloat(cleaned, 64)
}

// get fetches a URL and returns the body as text.
func (c *Client) get(ctx context.Context, endpoint string) (string, error) {
	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v: %w", err, types.ErrUnavailable)
	}
	return string(body), nil
}

// do waits on the rate limiter and issues one request with the browser
// user agent. Transport failures and timeouts come back as UNAVAILABLE.
func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %v: %w", err, types.ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v: %w", err, types.ErrUnavailable)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v: %w", err, types.ErrUnavailable)
	}
	return resp, nil
}
