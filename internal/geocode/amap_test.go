package geocode

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/collabmatch/internal/geo"
)

func newTestAMap(t *testing.T, handler http.HandlerFunc) *AMapClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAMapClient(AMapConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestAMapClient_Geocode(t *testing.T) {
	var gotPath, gotKey, gotAddress string
	c := newTestAMap(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotAddress = r.URL.Query().Get("address")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "1", "info": "OK", "infocode": "10000", "count": "1",
			"geocodes": [{
				"formatted_address": "北京市朝阳区阜通东大街6号",
				"province": "北京市",
				"city": [],
				"district": "朝阳区",
				"location": "116.480881,39.989410",
				"level": "门牌号"
			}]
		}`))
	})

	res, err := c.Geocode(context.Background(), "  北京市朝阳区阜通东大街6号 ")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if gotPath != geocodePath {
		t.Errorf("path = %q, want %q", gotPath, geocodePath)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %q, want test-key", gotKey)
	}
	if gotAddress != "北京市朝阳区阜通东大街6号" {
		t.Errorf("address = %q, want trimmed address", gotAddress)
	}
	if math.Abs(res.Coordinate.Latitude-39.989410) > 1e-9 || math.Abs(res.Coordinate.Longitude-116.480881) > 1e-9 {
		t.Errorf("coordinate = %+v, want lat 39.989410 lon 116.480881", res.Coordinate)
	}
	if res.City != "北京市" {
		t.Errorf("City = %q, want province fallback for municipality", res.City)
	}
	if res.District != "朝阳区" {
		t.Errorf("District = %q, want 朝阳区", res.District)
	}
}

func TestAMapClient_GeocodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		address string
		want    error
	}{
		{
			name:    "empty address",
			address: "   ",
			want:    ErrInvalidAddress,
		},
		{
			name:    "no geocodes",
			status:  http.StatusOK,
			body:    `{"status":"1","info":"OK","infocode":"10000","count":"0","geocodes":[]}`,
			address: "nowhere",
			want:    ErrInvalidAddress,
		},
		{
			name:    "daily quota exceeded",
			status:  http.StatusOK,
			body:    `{"status":"0","info":"DAILY_QUERY_OVER_LIMIT","infocode":"10003"}`,
			address: "somewhere",
			want:    ErrRateLimited,
		},
		{
			name:    "invalid key",
			status:  http.StatusOK,
			body:    `{"status":"0","info":"INVALID_USER_KEY","infocode":"10001"}`,
			address: "somewhere",
			want:    ErrServiceUnavailable,
		},
		{
			name:    "invalid params",
			status:  http.StatusOK,
			body:    `{"status":"0","info":"INVALID_PARAMS","infocode":"20000"}`,
			address: "somewhere",
			want:    ErrInvalidAddress,
		},
		{
			name:    "upstream 503",
			status:  http.StatusServiceUnavailable,
			body:    `oops`,
			address: "somewhere",
			want:    ErrServiceUnavailable,
		},
		{
			name:    "http 429",
			status:  http.StatusTooManyRequests,
			address: "somewhere",
			want:    ErrRateLimited,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{not json`,
			address: "somewhere",
			want:    ErrServiceUnavailable,
		},
		{
			name:    "malformed location",
			status:  http.StatusOK,
			body:    `{"status":"1","geocodes":[{"location":"garbage"}]}`,
			address: "somewhere",
			want:    ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestAMap(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			res, err := c.Geocode(context.Background(), tt.address)
			if res != nil {
				t.Errorf("Geocode() result = %+v, want nil", res)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Geocode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAMapClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewAMapClient(AMapConfig{APIKey: "k", BaseURL: url})
	_, err := c.Geocode(context.Background(), "anywhere")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Geocode() error = %v, want ErrNetwork", err)
	}
	if TypeOf(err) != ErrorNetwork {
		t.Errorf("TypeOf() = %q, want %q", TypeOf(err), ErrorNetwork)
	}
}

func TestAMapClient_ReverseGeocode(t *testing.T) {
	var gotLocation string
	c := newTestAMap(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != regeoPath {
			t.Errorf("path = %q, want %q", r.URL.Path, regeoPath)
		}
		gotLocation = r.URL.Query().Get("location")
		_, _ = w.Write([]byte(`{
			"status": "1", "info": "OK", "infocode": "10000",
			"regeocode": {
				"formatted_address": "上海市黄浦区外滩",
				"addressComponent": {"province": "上海市", "city": [], "district": "黄浦区"}
			}
		}`))
	})

	coord := geo.Coordinate{Latitude: 31.2304, Longitude: 121.4737}
	res, err := c.ReverseGeocode(context.Background(), coord)
	if err != nil {
		t.Fatalf("ReverseGeocode() error = %v", err)
	}
	if gotLocation != "121.473700,31.230400" {
		t.Errorf("location = %q, want lng,lat order", gotLocation)
	}
	if res.FormattedAddress != "上海市黄浦区外滩" || res.City != "上海市" {
		t.Errorf("result = %+v", res)
	}
	if res.Coordinate != coord {
		t.Errorf("Coordinate = %+v, want %+v", res.Coordinate, coord)
	}
}

func TestAMapClient_ReverseGeocodeInvalidCoordinate(t *testing.T) {
	called := false
	c := newTestAMap(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	_, err := c.ReverseGeocode(context.Background(), geo.Coordinate{Latitude: 91})
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("ReverseGeocode() error = %v, want ErrInvalidCoordinates", err)
	}
	if called {
		t.Error("upstream called for invalid coordinate")
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    geo.Coordinate
		wantErr bool
	}{
		{in: "116.397128,39.916527", want: geo.Coordinate{Latitude: 39.916527, Longitude: 116.397128}},
		{in: " 121.5 , 31.2 ", want: geo.Coordinate{Latitude: 31.2, Longitude: 121.5}},
		{in: "116.397128", wantErr: true},
		{in: "abc,39.9", wantErr: true},
		{in: "116.4,xyz", wantErr: true},
		{in: "200,39.9", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLocation(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLocation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLocation(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
