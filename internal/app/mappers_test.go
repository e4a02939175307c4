package app

import (
	"encoding/json"
	"testing"

	"homesquare/internal/domain"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   any
		want *float64
	}{
		{"$500,000", f(500000)},
		{" 1,850 sq ft", f(1850)},
		{"2.5", f(2.5)},
		{425000.0, f(425000)},
		{7, f(7)},
		{json.Number("12"), f(12)},
		{"", nil},
		{"—", nil},
		{nil, nil},
		{true, nil},
	}
	for _, tc := range cases {
		got := parseMoney(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("parseMoney(%#v) = %v, want nil", tc.in, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("parseMoney(%#v) = %v, want %v", tc.in, got, *tc.want)
		}
	}
}

func TestToFloatIsStricterThanParseMoney(t *testing.T) {
	if toFloat("$500") != nil {
		t.Fatalf("currency text is not a plain number")
	}
	if v := toFloat(" 0.85 "); v == nil || *v != 0.85 {
		t.Fatalf("numeric string: %v", v)
	}
	if v := toFloat(12.0); v == nil || *v != 12 {
		t.Fatalf("number: %v", v)
	}
}

func TestZipFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.redfin.com/VA/Glen-Allen/123-Main-St-23059/home/1234":           "23059",
		"https://www.zillow.com/homes/23059":                                         "23059",
		"https://www.zillow.com/homedetails/123-Main-St-Richmond-VA-23220/456_zpid/": "23220",
		"https://www.redfin.com/home/1234":                                           "",
		"":                                                                           "",
	}
	for in, want := range cases {
		if got := zipFromURL(in); got != want {
			t.Errorf("zipFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListingFromPage(t *testing.T) {
	l := listingFromPage(domain.ScrapedPage{
		URL:   "https://www.redfin.com/VA/Glen-Allen/1-Main-St-23059/home/1",
		Price: "$500,000", Beds: "3", Baths: "2.5", Sqft: "—",
	})
	if l.Price == nil || *l.Price != 500000 || *l.Baths != 2.5 {
		t.Fatalf("unexpected listing: %+v", l)
	}
	if l.Sqft != nil {
		t.Fatalf("placeholder sqft should be missing, got %v", *l.Sqft)
	}
	if l.ZipCode == nil || *l.ZipCode != "23059" {
		t.Fatalf("zip: %v", l.ZipCode)
	}

	l = listingFromPage(domain.ScrapedPage{URL: "https://x/12345/", ZipCode: " 02139 "})
	if *l.ZipCode != "02139" {
		t.Fatalf("page zip should win over url zip, got %q", *l.ZipCode)
	}
}

func TestListingFromRaw(t *testing.T) {
	l := listingFromRaw(map[string]any{
		"list_price": "$350,000",
		"bedrooms":   4.0,
		"address":    map[string]any{"zip": 2139.0},
	})
	if l.Price == nil || *l.Price != 350000 || *l.Beds != 4 {
		t.Fatalf("unexpected listing: %+v", l)
	}
	if l.ZipCode == nil || *l.ZipCode != "02139" {
		t.Fatalf("numeric zip should be zero padded, got %v", l.ZipCode)
	}
	if l.Sqft != nil || l.Baths != nil {
		t.Fatalf("absent fields must stay nil: %+v", l)
	}
}

func TestCompFromRow(t *testing.T) {
	c, ok := compFromRow(map[string]any{"price": "$410,500.75", "sqFt": 1800.0, "bedrooms": "3", "homeUrl": "/home/1"})
	if !ok || c.Price != 410500 || c.Sqft != 1800 || *c.Beds != 3 || deref(c.DetailURL) != "/home/1" {
		t.Fatalf("unexpected comp: %+v ok=%v", c, ok)
	}
	if _, ok := compFromRow(map[string]any{"price": 1.0}); ok {
		t.Fatalf("row without sqft must be rejected")
	}
}

func TestPreviewComps(t *testing.T) {
	comps := make([]domain.ComparableRecord, 12)
	if got := previewComps(comps, false); len(got) != previewSize {
		t.Fatalf("preview size: %d", len(got))
	}
	got := previewComps(comps[:1], true)
	if len(got) != 1 || got[0].Note == "" {
		t.Fatalf("synthetic comp should carry a note: %+v", got)
	}
	if got := previewComps(nil, false); got == nil || len(got) != 0 {
		t.Fatalf("empty preview should be an empty slice")
	}
}

func TestCacheKeyIsCanonical(t *testing.T) {
	a, _ := cacheKey("analysis:", map[string]any{"b": 1, "a": 2})
	b, _ := cacheKey("analysis:", map[string]any{"a": 2, "b": 1})
	c, _ := cacheKey("analysis:", map[string]any{"a": 3, "b": 1})
	if a != b || a == c {
		t.Fatalf("keys: %s %s %s", a, b, c)
	}
}

func f(v float64) *float64 { return &v }
