package valuation_test

import (
	"encoding/json"
	"sync"
	"testing"

	"homesquare/internal/domain"
	"homesquare/internal/valuation"
)

func mustTree(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestExtractComps_FindsCompNestedInListInMap(t *testing.T) {
	tree := mustTree(t, `{
		"propertyHistory": {
			"nearbyHomes": [
				{"homeData": {"price": 480000, "sqFt": 2000, "beds": 3, "baths": 2,
				              "formattedAddress": "1 Main St", "homeUrl": "/home/1"}}
			]
		}
	}`)

	got := valuation.DefaultPolicy().ExtractComps(tree, 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 comp, got %d: %+v", len(got), got)
	}
	c := got[0]
	if c.Price != 480000 || c.Sqft != 2000 {
		t.Fatalf("unexpected price/sqft: %+v", c)
	}
	if c.Beds == nil || *c.Beds != 3 || c.Baths == nil || *c.Baths != 2 {
		t.Fatalf("unexpected beds/baths: %+v", c)
	}
	if c.Address == nil || *c.Address != "1 Main St" {
		t.Fatalf("address: got %v", c.Address)
	}
	if c.DetailURL == nil || *c.DetailURL != "/home/1" {
		t.Fatalf("detail url: got %v", c.DetailURL)
	}
}

func TestExtractComps_CollectsParentAndChild(t *testing.T) {
	tree := mustTree(t, `{
		"price": 400000, "sqft": 1800,
		"nearby": {"price": 300000, "SQFT": 1500}
	}`)

	got := valuation.DefaultPolicy().ExtractComps(tree, 10)
	if len(got) != 2 {
		t.Fatalf("expected parent and child, got %d", len(got))
	}
	if got[0].Price != 400000 || got[1].Price != 300000 {
		t.Fatalf("expected parent first then child, got %+v", got)
	}
}

func TestExtractComps_SkipsNonNumericCandidates(t *testing.T) {
	tree := mustTree(t, `[
		{"price": "$500,000", "sqft": 2000},
		{"price": 500000, "sqft": null},
		{"price": 500000, "sqft": {"value": 2000}},
		{"price": 510000, "sqft": 2100}
	]`)

	got := valuation.DefaultPolicy().ExtractComps(tree, 10)
	if len(got) != 1 || got[0].Price != 510000 {
		t.Fatalf("expected only the numeric candidate, got %+v", got)
	}
}

func TestExtractComps_SanityFilter(t *testing.T) {
	tree := mustTree(t, `[
		{"price": 10000, "sqft": 1500},
		{"price": 250000, "sqft": 200},
		{"price": 10001.9, "sqft": 201.5},
		{"price": -5, "sqft": 1000}
	]`)

	got := valuation.DefaultPolicy().ExtractComps(tree, 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 comp after filter, got %+v", got)
	}
	if got[0].Price != 10001 || got[0].Sqft != 201 {
		t.Fatalf("expected integer truncation, got %+v", got[0])
	}
}

func TestExtractComps_BedsBathsCoercion(t *testing.T) {
	tree := mustTree(t, `[
		{"price": 300000, "sqft": 1500, "bedrooms": "3", "bathrooms": 2.5},
		{"price": 310000, "sqft": 1500, "beds": "3+"},
		{"price": 320000, "sqft": 1500}
	]`)

	got := valuation.DefaultPolicy().ExtractComps(tree, 10)
	if len(got) != 2 {
		t.Fatalf("expected malformed beds to drop one record, got %+v", got)
	}
	if got[0].Beds == nil || *got[0].Beds != 3 || got[0].Baths == nil || *got[0].Baths != 2.5 {
		t.Fatalf("unexpected coercion: %+v", got[0])
	}
	if got[1].Beds != nil || got[1].Baths != nil {
		t.Fatalf("expected absent beds/baths to stay nil: %+v", got[1])
	}
}

func TestExtractComps_Limit(t *testing.T) {
	tree := mustTree(t, `{"homes": [
		{"price": 300000, "sqft": 1500},
		{"price": 310000, "sqft": 1500},
		{"price": 320000, "sqft": 1500},
		{"price": 330000, "sqft": 1500}
	]}`)
	p := valuation.DefaultPolicy()

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 3, want: 3},
		{limit: 1, want: 1},
		{limit: 10, want: 4},
		{limit: 0, want: 0},
		{limit: -1, want: 0},
	}
	for _, tt := range tests {
		got := p.ExtractComps(tree, tt.limit)
		if len(got) != tt.want {
			t.Errorf("limit %d: got %d comps, want %d", tt.limit, len(got), tt.want)
		}
		if len(got) > 0 && got[0].Price != 300000 {
			t.Errorf("limit %d: expected discovery order, got %+v", tt.limit, got)
		}
	}
}

func TestExtractComps_LimitCountsBeforeSanityFilter(t *testing.T) {
	tree := mustTree(t, `[
		{"price": 5000, "sqft": 1500},
		{"price": 300000, "sqft": 1500},
		{"price": 310000, "sqft": 1500}
	]`)

	got := valuation.DefaultPolicy().ExtractComps(tree, 2)
	if len(got) != 1 || got[0].Price != 300000 {
		t.Fatalf("expected the cap to apply to raw candidates, got %+v", got)
	}
}

func TestExtractComps_MatchingRootWithZeroLimit(t *testing.T) {
	tree := mustTree(t, `{"price": 300000, "sqft": 1500}`)
	if got := valuation.DefaultPolicy().ExtractComps(tree, 0); len(got) != 0 {
		t.Fatalf("expected output truncated to the limit, got %+v", got)
	}
}

func TestExtractComps_DeterministicKeyOrder(t *testing.T) {
	tree := mustTree(t, `{
		"zeta":  {"price": 200000, "sqft": 1000},
		"alpha": {"price": 100000, "sqft": 1000}
	}`)
	p := valuation.DefaultPolicy()

	for i := 0; i < 20; i++ {
		got := p.ExtractComps(tree, 10)
		if len(got) != 2 || got[0].Price != 100000 || got[1].Price != 200000 {
			t.Fatalf("run %d: unexpected order %+v", i, got)
		}
	}
}

func TestExtractComps_MalformedInput(t *testing.T) {
	p := valuation.DefaultPolicy()
	for _, tree := range []any{nil, "text", 42.0, []any{nil, true, "x"}, map[string]any{}} {
		if got := p.ExtractComps(tree, 10); len(got) != 0 {
			t.Errorf("tree %#v: expected no comps, got %+v", tree, got)
		}
	}
}

func TestExtractComps_ConcurrentCallsDoNotShareState(t *testing.T) {
	small := mustTree(t, `[{"price": 300000, "sqft": 1500}]`)
	big := mustTree(t, `[
		{"price": 300000, "sqft": 1500},
		{"price": 310000, "sqft": 1500},
		{"price": 320000, "sqft": 1500}
	]`)
	p := valuation.DefaultPolicy()

	var wg sync.WaitGroup
	errs := make(chan string, 100)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if n := len(p.ExtractComps(small, 10)); n != 1 {
				errs <- "small tree"
			}
		}()
		go func() {
			defer wg.Done()
			if n := len(p.ExtractComps(big, 10)); n != 3 {
				errs <- "big tree"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatalf("unexpected count for %s", e)
	}
}

func TestFilterComps(t *testing.T) {
	in := []domain.ComparableRecord{
		{Price: 10000, Sqft: 1000},
		{Price: 200000, Sqft: 200},
		{Price: 200000, Sqft: 1000},
	}
	got := valuation.DefaultPolicy().FilterComps(in)
	if len(got) != 1 || got[0].Sqft != 1000 || got[0].Price != 200000 {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}
