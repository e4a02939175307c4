package app

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"homesquare/internal/domain"
)

/********** alias registries **********/

var listingAliases = map[string][]string{
	"price": {"price", "list_price", "listPrice", "asking_price", "Price"},
	"beds":  {"beds", "bedrooms", "Beds"},
	"baths": {"baths", "bathrooms", "Baths"},
	"sqft":  {"sqft", "sqFt", "square_feet", "Square Footage", "area"},
	"zip":   {"zip_code", "zip", "zipcode", "postal_code", "address.zip"},
}

var compAliases = map[string][]string{
	"price":   {"price", "sold_price", "soldPrice"},
	"sqft":    {"sqft", "sqFt", "square_feet"},
	"beds":    {"beds", "bedrooms"},
	"baths":   {"baths", "bathrooms"},
	"address": {"address", "formattedAddress"},
	"url":     {"detail_url", "url", "homeUrl"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps. An exact key wins
// over a dot path so keys like "Square Footage" still resolve.
func lookupAny(m map[string]any, path string) any {
	if v, ok := m[path]; ok {
		return v
	}
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstAlias returns the first non-nil value for a named alias set.
func firstAlias(m map[string]any, aliases map[string][]string, key string) any {
	for _, p := range aliases[key] {
		if v := lookupAny(m, p); v != nil {
			return v
		}
	}
	return nil
}

func firstAliasStr(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s, ok := lookupAny(m, p).(string); ok && strings.TrimSpace(s) != "" {
			s = strings.TrimSpace(s)
			return &s
		}
	}
	return nil
}

// parseMoney turns page text like "$500,000" or "1,850 sq ft" into a
// number. Numbers pass through; anything unparseable is nil.
func parseMoney(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return nil
		}
		f = x
	case string:
		s := strings.NewReplacer("$", "", ",", "").Replace(t)
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "sq ft"))
		if s == "" {
			return nil
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = x
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// toFloat is the stricter conversion used for saved listings: numbers and
// plain numeric strings only.
func toFloat(v any) *float64 {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	}
	return parseMoney(v)
}

var zipInURL = regexp.MustCompile(`(\d{5})(?:[-/]|$)`)

// zipFromURL finds the first 5-digit group followed by '-', '/' or the end
// of the URL, which is where Redfin and Zillow put the ZIP.
func zipFromURL(u string) string {
	if m := zipInURL.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

func zipString(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		if t != math.Trunc(t) || t < 0 {
			return nil
		}
		s = fmt.Sprintf("%05d", int64(t))
	case json.Number:
		s = t.String()
	}
	if s == "" {
		return nil
	}
	return &s
}

/********** mappers **********/

// listingFromRaw reads a loosely typed listing object, accepting money
// strings and the common field spellings of listing sites.
func listingFromRaw(m map[string]any) domain.Listing {
	return domain.Listing{
		Price:   parseMoney(firstAlias(m, listingAliases, "price")),
		Beds:    parseMoney(firstAlias(m, listingAliases, "beds")),
		Baths:   parseMoney(firstAlias(m, listingAliases, "baths")),
		Sqft:    parseMoney(firstAlias(m, listingAliases, "sqft")),
		ZipCode: zipString(firstAlias(m, listingAliases, "zip")),
	}
}

func listingFromPage(p domain.ScrapedPage) domain.Listing {
	l := domain.Listing{
		Price: parseMoney(p.Price),
		Beds:  parseMoney(p.Beds),
		Baths: parseMoney(p.Baths),
		Sqft:  parseMoney(p.Sqft),
	}
	zip := strings.TrimSpace(p.ZipCode)
	if zip == "" {
		zip = zipFromURL(p.URL)
	}
	if zip != "" {
		l.ZipCode = &zip
	}
	return l
}

// compFromRow maps a caller-supplied comp row. Rows without a numeric
// price and sqft are rejected; the sanity filter runs later.
func compFromRow(m map[string]any) (domain.ComparableRecord, bool) {
	price := parseMoney(firstAlias(m, compAliases, "price"))
	sqft := parseMoney(firstAlias(m, compAliases, "sqft"))
	if price == nil || sqft == nil || math.Abs(*price) > 1e15 || math.Abs(*sqft) > 1e15 {
		return domain.ComparableRecord{}, false
	}
	return domain.ComparableRecord{
		Price:     int64(*price),
		Sqft:      int64(*sqft),
		Beds:      parseMoney(firstAlias(m, compAliases, "beds")),
		Baths:     parseMoney(firstAlias(m, compAliases, "baths")),
		Address:   firstAliasStr(m, compAliases, "address"),
		DetailURL: firstAliasStr(m, compAliases, "url"),
	}, true
}

const previewSize = 8

type CompPreview struct {
	Price     int64    `json:"price"`
	Beds      *float64 `json:"beds"`
	Baths     *float64 `json:"baths"`
	Sqft      int64    `json:"sqft"`
	Address   *string  `json:"address,omitempty"`
	DetailURL *string  `json:"detail_url,omitempty"`
	Note      string   `json:"note,omitempty"`
}

func previewComps(comps []domain.ComparableRecord, synthetic bool) []CompPreview {
	n := min(len(comps), previewSize)
	out := make([]CompPreview, 0, n)
	for _, c := range comps[:n] {
		out = append(out, CompPreview{
			Price: c.Price, Beds: c.Beds, Baths: c.Baths, Sqft: c.Sqft,
			Address: c.Address, DetailURL: c.DetailURL,
		})
	}
	if synthetic && len(out) == 1 {
		out[0].Note = "Aggregate from ZIP comps (no individual addresses)"
	}
	return out
}

// cacheKey hashes the canonical JSON form of v. encoding/json sorts map
// keys, so equal inputs produce equal keys.
func cacheKey(prefix string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(b)
	return prefix + hex.EncodeToString(sum[:]), nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
