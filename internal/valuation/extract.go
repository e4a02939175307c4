package valuation

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"homesquare/internal/domain"
)

// values beyond this cannot be a home price or area and would overflow int64.
const maxCoercible = 1e15

// candidate is a node that looked like a comp during traversal, before the
// sanity filter runs.
type candidate struct {
	price, sqft float64
	beds, baths any
	address     *string
	url         *string
}

// ExtractComps walks an arbitrary decoded JSON tree (maps, slices, scalars)
// depth-first and returns up to limit comps in discovery order. Malformed
// subtrees are skipped; it never fails.
func (p Policy) ExtractComps(tree any, limit int) []domain.ComparableRecord {
	if limit < 0 {
		limit = 0
	}
	found := collectCandidates(tree, limit)

	out := make([]domain.ComparableRecord, 0, len(found))
	for _, c := range found {
		if rec, ok := p.sanitize(c); ok {
			out = append(out, rec)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// collectCandidates does a pre-order traversal with an explicit stack. The
// limit is checked after appending a match and before visiting any further
// node, so a matching root is still collected when limit is 0; callers
// truncate.
func collectCandidates(root any, limit int) []candidate {
	var found []candidate
	stack := []any{root}
	visited := 0

	for len(stack) > 0 {
		if visited > 0 && len(found) >= limit {
			break
		}
		n := len(stack) - 1
		node := stack[n]
		stack = stack[:n]
		visited++

		switch v := node.(type) {
		case map[string]any:
			if c, ok := asCandidate(v); ok {
				found = append(found, c)
				if len(found) >= limit {
					return found
				}
			}
			keys := sortedKeys(v)
			for i := len(keys) - 1; i >= 0; i-- {
				stack = append(stack, v[keys[i]])
			}
		case []any:
			for i := len(v) - 1; i >= 0; i-- {
				stack = append(stack, v[i])
			}
		}
	}
	return found
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lowerKeys folds keys to lower case. On a collision the key that is
// already lower case wins, otherwise the last key in sorted order.
func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for _, k := range sortedKeys(m) {
		lk := strings.ToLower(k)
		if _, seen := out[lk]; seen && k != lk {
			if _, exact := m[lk]; exact {
				continue
			}
		}
		out[lk] = m[k]
	}
	return out
}

func asCandidate(node map[string]any) (candidate, bool) {
	lower := lowerKeys(node)
	rawPrice, okP := lower["price"]
	rawSqft, okS := lower["sqft"]
	if !okP || !okS {
		return candidate{}, false
	}
	price, okP := asNumber(rawPrice)
	sqft, okS := asNumber(rawSqft)
	if !okP || !okS {
		return candidate{}, false
	}
	return candidate{
		price:   price,
		sqft:    sqft,
		beds:    firstPresent(lower, "beds", "bedrooms"),
		baths:   firstPresent(lower, "baths", "bathrooms"),
		address: firstString(node, "address", "formattedAddress"),
		url:     firstString(node, "url", "homeUrl"),
	}, true
}

// asNumber accepts only numeric JSON values; numeric-looking strings are not
// comps.
func asNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	return f, finite(f)
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) *string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return &s
		}
	}
	return nil
}

// sanitize coerces price/sqft to integers and beds/baths to floats, then
// applies the sanity thresholds. An unparseable beds/baths value drops the
// whole record.
func (p Policy) sanitize(c candidate) (domain.ComparableRecord, bool) {
	if math.Abs(c.price) > maxCoercible || math.Abs(c.sqft) > maxCoercible {
		return domain.ComparableRecord{}, false
	}
	rec := domain.ComparableRecord{
		Price:     int64(c.price),
		Sqft:      int64(c.sqft),
		Address:   c.address,
		DetailURL: c.url,
	}
	if rec.Price <= p.MinCompPrice || rec.Sqft <= p.MinCompSqft {
		return domain.ComparableRecord{}, false
	}
	var ok bool
	if rec.Beds, ok = optionalFloat(c.beds); !ok {
		return domain.ComparableRecord{}, false
	}
	if rec.Baths, ok = optionalFloat(c.baths); !ok {
		return domain.ComparableRecord{}, false
	}
	return rec, true
}

// optionalFloat returns (nil, true) for an absent value and (nil, false)
// for one that is present but not numeric.
func optionalFloat(v any) (*float64, bool) {
	if v == nil {
		return nil, true
	}
	if f, ok := asNumber(v); ok {
		return &f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && finite(f) {
			return &f, true
		}
	}
	return nil, false
}

// FilterComps applies the sanity filter to caller-supplied comp rows,
// preserving order.
func (p Policy) FilterComps(in []domain.ComparableRecord) []domain.ComparableRecord {
	out := make([]domain.ComparableRecord, 0, len(in))
	for _, c := range in {
		if c.Price <= p.MinCompPrice || c.Sqft <= p.MinCompSqft {
			continue
		}
		out = append(out, c)
	}
	return out
}
