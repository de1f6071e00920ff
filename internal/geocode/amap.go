package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/tracing"
)

const (
	// DefaultAMapBaseURL is the AMap web service endpoint.
	DefaultAMapBaseURL = "https://restapi.amap.com"
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 5 * time.Second

	geocodePath = "/v3/geocode/geo"
	regeoPath   = "/v3/geocode/regeo"

	maxResponseBytes = 1 << 20
)

// AMap infocodes that indicate quota exhaustion or throttling.
var amapRateLimitCodes = map[string]bool{
	"10003": true, // daily quota exceeded
	"10004": true, // too frequent
	"10014": true, // cluster QPS exceeded
	"10015": true, // global QPS exceeded
	"10019": true,
	"10020": true,
	"10021": true,
	"10044": true,
	"10045": true,
}

// AMapConfig configures an AMapClient.
type AMapConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// AMapClient resolves addresses through the AMap geocoding web service.
type AMapClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewAMapClient creates a client. Without an explicit HTTPClient, requests
// go through an otelhttp transport so upstream calls show up in traces.
func NewAMapClient(cfg AMapConfig) *AMapClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAMapBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &AMapClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		logger:  cfg.Logger,
	}
}

// amapText decodes AMap string fields, which come back as an empty JSON
// array instead of "" when the value is absent.
type amapText string

func (t *amapText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var parts []string
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		*t = amapText(strings.Join(parts, ""))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = amapText(s)
	return nil
}

type amapStatus struct {
	Status   string `json:"status"`
	Info     string `json:"info"`
	InfoCode string `json:"infocode"`
}

type amapGeocodeResponse struct {
	amapStatus
	Geocodes []struct {
		FormattedAddress amapText `json:"formatted_address"`
		Province         amapText `json:"province"`
		City             amapText `json:"city"`
		District         amapText `json:"district"`
		Location         string   `json:"location"`
		Level            amapText `json:"level"`
	} `json:"geocodes"`
}

type amapRegeoResponse struct {
	amapStatus
	Regeocode struct {
		FormattedAddress amapText `json:"formatted_address"`
		AddressComponent struct {
			Province amapText `json:"province"`
			City     amapText `json:"city"`
			District amapText `json:"district"`
		} `json:"addressComponent"`
	} `json:"regeocode"`
}

// Geocode resolves a free-text address to its best match.
func (c *AMapClient) Geocode(ctx context.Context, address string) (res *Result, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, newError(ErrorInvalidAddress, "address is empty", nil)
	}

	ctx, endSpan := tracing.StartSpan(ctx, "geocode.amap.geocode")
	defer func() { endSpan(err) }()

	q := url.Values{}
	q.Set("address", address)

	var body amapGeocodeResponse
	if err = c.get(ctx, geocodePath, q, &body); err != nil {
		return nil, err
	}
	if err = statusError(body.amapStatus, ErrorInvalidAddress); err != nil {
		return nil, err
	}
	if len(body.Geocodes) == 0 {
		return nil, newError(ErrorInvalidAddress, "no match for address", nil)
	}

	g := body.Geocodes[0]
	coord, err := parseLocation(g.Location)
	if err != nil {
		return nil, newError(ErrorInvalidAddress, "malformed location in response", err)
	}
	return &Result{
		Coordinate:       coord,
		FormattedAddress: string(g.FormattedAddress),
		Province:         string(g.Province),
		City:             cityOrProvince(g.City, g.Province),
		District:         string(g.District),
		Level:            string(g.Level),
	}, nil
}

// ReverseGeocode resolves a coordinate to an address.
func (c *AMapClient) ReverseGeocode(ctx context.Context, coord geo.Coordinate) (res *Result, err error) {
	if verr := coord.Validate(); verr != nil {
		return nil, newError(ErrorInvalidCoordinates, "coordinate out of range", verr)
	}

	ctx, endSpan := tracing.StartSpan(ctx, "geocode.amap.reverse")
	defer func() { endSpan(err) }()

	q := url.Values{}
	q.Set("location", formatLocation(coord))

	var body amapRegeoResponse
	if err = c.get(ctx, regeoPath, q, &body); err != nil {
		return nil, err
	}
	if err = statusError(body.amapStatus, ErrorInvalidCoordinates); err != nil {
		return nil, err
	}

	rc := body.Regeocode
	if rc.FormattedAddress == "" {
		return nil, newError(ErrorInvalidCoordinates, "no address at coordinate", nil)
	}
	return &Result{
		Coordinate:       coord,
		FormattedAddress: string(rc.FormattedAddress),
		Province:         string(rc.AddressComponent.Province),
		City:             cityOrProvince(rc.AddressComponent.City, rc.AddressComponent.Province),
		District:         string(rc.AddressComponent.District),
	}, nil
}

func (c *AMapClient) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("key", c.apiKey)
	q.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return newError(ErrorNetwork, "build request", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return newError(ErrorNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("amap request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return newError(ErrorRateLimited, "upstream throttled", nil)
	case resp.StatusCode >= 500:
		return newError(ErrorServiceUnavailable, fmt.Sprintf("upstream status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return newError(ErrorServiceUnavailable, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return newError(ErrorNetwork, "read response", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return newError(ErrorServiceUnavailable, "decode response", err)
	}
	return nil
}

// statusError maps an AMap status envelope to a typed error. Non-quota
// failures are attributed to the input with fallback.
func statusError(s amapStatus, fallback ErrorType) error {
	if s.Status == "1" {
		return nil
	}
	msg := fmt.Sprintf("amap %s: %s", s.InfoCode, s.Info)
	switch {
	case amapRateLimitCodes[s.InfoCode]:
		return newError(ErrorRateLimited, msg, nil)
	case strings.HasPrefix(s.InfoCode, "100"):
		// 100xx codes are key, permission and quota problems on our side.
		return newError(ErrorServiceUnavailable, msg, nil)
	default:
		return newError(fallback, msg, nil)
	}
}

// parseLocation parses AMap's "lng,lat" format.
func parseLocation(s string) (geo.Coordinate, error) {
	lng, lat, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("location %q: missing comma", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("location %q: %w", s, err)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("location %q: %w", s, err)
	}
	c := geo.Coordinate{Latitude: la, Longitude: lon}
	if err := c.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return c, nil
}

func formatLocation(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Longitude, 'f', 6, 64) + "," + strconv.FormatFloat(c.Latitude, 'f', 6, 64)
}

// cityOrProvince handles municipalities, where AMap leaves city empty.
func cityOrProvince(city, province amapText) string {
	if city != "" {
		return string(city)
	}
	return string(province)
}
