package vworld

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/novarobotics/stormdrain/internal/cache"
	"github.com/novarobotics/stormdrain/internal/geo"
)

func square(minX, minY, size float64) orb.Ring {
	return orb.Ring{
		{minX, minY},
		{minX + size, minY},
		{minX + size, minY + size},
		{minX, minY + size},
		{minX, minY},
	}
}

func feature(g orb.Geometry, props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(g)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

func TestToDistricts_Geographic(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Polygon{square(127.0, 37.5, 0.1)}, map[string]any{
		"sig_cd":     "11680",
		"sig_kor_nm": "강남구",
	}))

	districts := ToDistricts(fc, 48)
	if len(districts) != 1 {
		t.Fatalf("expected 1 district, got %d", len(districts))
	}

	d := districts[0]
	if d.ID != "11680" || d.Name != "강남구" {
		t.Errorf("unexpected id/name: %s/%s", d.ID, d.Name)
	}
	first := d.Positions[0][0]
	if first.Lat() != 37.5 || first.Lng() != 127.0 {
		t.Errorf("expected [37.5, 127.0], got %v", first)
	}
}

func TestToDistricts_WebMercator(t *testing.T) {
	x, y := geo.WGS84ToWebMercator(127.0, 37.5)
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Polygon{square(x, y, 1000)}, map[string]any{"sig_kor_nm": "서초구"}))

	if !DetectWebMercator(fc.Features) {
		t.Fatal("expected web mercator to be detected")
	}

	districts := ToDistricts(fc, 48)
	first := districts[0].Positions[0][0]
	if math.Abs(first.Lat()-37.5) > 1e-6 || math.Abs(first.Lng()-127.0) > 1e-6 {
		t.Errorf("expected ~[37.5, 127.0], got %v", first)
	}
}

func TestToDistricts_GeometryHandling(t *testing.T) {
	outer := square(126.9, 37.4, 0.2)
	hole := square(126.95, 37.45, 0.05)
	island := square(126.5, 37.0, 0.01)

	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Point{127.0, 37.5}, map[string]any{"sig_kor_nm": "point"}))
	fc.Append(feature(orb.LineString{{127.0, 37.5}, {127.1, 37.6}}, map[string]any{"sig_kor_nm": "line"}))
	fc.Append(feature(orb.MultiPolygon{{outer, hole}, {island}}, map[string]any{"sig_eng_nm": "Jung gu"}))
	fc.Append(feature(orb.Polygon{outer}, nil))

	districts := ToDistricts(fc, 48)
	if len(districts) != 2 {
		t.Fatalf("expected points and lines to be skipped, got %d districts", len(districts))
	}

	multi := districts[0]
	if len(multi.Positions) != 2 {
		t.Errorf("expected outer ring and hole of the first polygon, got %d rings", len(multi.Positions))
	}
	if multi.ID != "jung_gu" || multi.Name != "Jung gu" {
		t.Errorf("expected id derived from english name, got %s/%s", multi.ID, multi.Name)
	}

	if districts[1].Name != "unknown" || districts[1].ID != "unknown" {
		t.Errorf("expected unknown district, got %s/%s", districts[1].ID, districts[1].Name)
	}
}

func TestFirstProp(t *testing.T) {
	tests := []struct {
		name  string
		props geojson.Properties
		keys  []string
		want  string
	}{
		{"korean name", geojson.Properties{"sig_kor_nm": "종로구", "sig_eng_nm": "Jongno-gu"}, []string{"sig_kor_nm", "sig_eng_nm"}, "종로구"},
		{"empty korean falls through", geojson.Properties{"sig_kor_nm": "", "sig_eng_nm": "Jongno-gu"}, []string{"sig_kor_nm", "sig_eng_nm"}, "Jongno-gu"},
		{"blank korean falls through", geojson.Properties{"sig_kor_nm": "  ", "sig_eng_nm": "Jongno-gu"}, []string{"sig_kor_nm", "sig_eng_nm"}, "Jongno-gu"},
		{"numeric code", geojson.Properties{"sig_cd": float64(11110)}, []string{"sig_cd"}, "11110"},
		{"unsupported type", geojson.Properties{"sig_cd": true}, []string{"sig_cd"}, ""},
		{"missing", geojson.Properties{}, []string{"sig_cd"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstProp(tt.props, tt.keys...); got != tt.want {
				t.Errorf("firstProp() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToDistricts_NumericCode(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Polygon{square(126.9, 37.5, 0.1)}, map[string]any{"sig_cd": float64(11110), "sig_kor_nm": "종로구"}))

	districts := ToDistricts(fc, 48)
	if len(districts) != 1 || districts[0].ID != "11110" {
		t.Fatalf("expected numeric sig_cd to be kept as id, got %+v", districts)
	}
}

func TestToDistricts_SimplifiesDenseRings(t *testing.T) {
	ring := make(orb.Ring, 0, 501)
	for i := 0; i < 500; i++ {
		a := 2 * math.Pi * float64(i) / 500
		ring = append(ring, orb.Point{127.0 + 0.05*math.Cos(a), 37.5 + 0.05*math.Sin(a)})
	}
	ring = append(ring, ring[0])

	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Polygon{ring}, map[string]any{"sig_cd": "11110"}))

	got := ToDistricts(fc, 48)[0].Positions[0]
	if len(got) > 49 {
		t.Errorf("expected at most 49 points, got %d", len(got))
	}
	if got[0] != got[len(got)-1] {
		t.Error("expected simplified ring to stay closed")
	}
}

func TestToDistricts_Nil(t *testing.T) {
	if got := ToDistricts(nil, 48); len(got) != 0 {
		t.Errorf("expected no districts, got %d", len(got))
	}
}

const okBody = `{"response": {"status": "OK", "result": {"featureCollection": {
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"geometry": {"type": "Polygon", "coordinates": [[[127.0, 37.5], [127.1, 37.5], [127.1, 37.6], [127.0, 37.5]]]},
		"properties": {"sig_cd": "11680", "sig_kor_nm": "강남구"}
	}]
}}}}`

func TestClient_SeoulDistrictFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("data") != districtLayer || q.Get("attrfilter") != "sig_cd:like:11" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("key") != "test-key" || q.Get("domain") != "http://dash.local" {
			t.Errorf("expected key and domain to be forwarded: %s", r.URL.RawQuery)
		}
		if q.Get("crs") != CRSGeographic {
			t.Errorf("expected first request in %s, got %s", CRSGeographic, q.Get("crs"))
		}
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	fc, err := client.SeoulDistrictFeatures(context.Background(), "http://dash.local")
	if err != nil {
		t.Fatalf("SeoulDistrictFeatures failed: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Errorf("expected 1 feature, got %d", len(fc.Features))
	}
}

func TestClient_FallsBackToWebMercator(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		crs := r.URL.Query().Get("crs")
		calls = append(calls, crs)
		if crs == CRSGeographic {
			w.Write([]byte(`{"response": {"status": "ERROR", "error": {"code": "INVALID_RANGE", "text": "crs"}}}`))
			return
		}
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", 5*time.Second)
	if _, err := client.SeoulDistrictFeatures(context.Background(), "d"); err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}

	if len(calls) != 2 || calls[1] != CRSWebMercator {
		t.Errorf("expected a retry in %s, got calls %v", CRSWebMercator, calls)
	}
}

func TestClient_BothAttemptsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": {"status": "NOT_FOUND"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", 5*time.Second)
	_, err := client.SeoulDistrictFeatures(context.Background(), "d")
	if !errors.Is(err, ErrNoFeatureCollection) {
		t.Errorf("expected ErrNoFeatureCollection, got %v", err)
	}
}

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) SeoulDistrictFeatures(ctx context.Context, domain string) (*geojson.FeatureCollection, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(orb.Polygon{square(127.0, 37.5, 0.1)}, map[string]any{"sig_cd": "11680", "sig_kor_nm": "강남구"}))
	return fc, nil
}

func TestService_CachesPerDomain(t *testing.T) {
	mem := cache.NewMemory(cache.DefaultMemoryCapacity)
	defer mem.Close()

	src := &countingSource{}
	svc := NewService(src, mem, time.Hour, 48)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		districts, err := svc.SeoulDistricts(ctx, "http://a")
		if err != nil {
			t.Fatalf("SeoulDistricts failed: %v", err)
		}
		if len(districts) != 1 || districts[0].Name != "강남구" {
			t.Fatalf("unexpected districts: %+v", districts)
		}
	}
	if src.calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", src.calls.Load())
	}

	svc.SeoulDistricts(ctx, "http://b")
	if src.calls.Load() != 2 {
		t.Errorf("expected a separate upstream call per domain, got %d", src.calls.Load())
	}
}

func TestService_PropagatesErrors(t *testing.T) {
	src := &countingSource{err: fmt.Errorf("boom")}
	svc := NewService(src, nil, time.Hour, 48)

	if _, err := svc.SeoulDistricts(context.Background(), "d"); err == nil {
		t.Error("expected error")
	}
}
