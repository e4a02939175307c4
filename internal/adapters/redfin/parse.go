package redfin

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"homesquare/internal/domain"
)

const (
	siteRedfin = "redfin"
	siteZillow = "zillow"
)

// siteOf maps a listing URL to a supported site, or "" when unsupported.
func siteOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	h := strings.ToLower(u.Hostname())
	switch {
	case h == "redfin.com" || strings.HasSuffix(h, ".redfin.com"):
		return siteRedfin
	case h == "zillow.com" || strings.HasSuffix(h, ".zillow.com"):
		return siteZillow
	}
	return ""
}

func parseDocument(page string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// ParseListing extracts the listing fields from a rendered page. Fields the
// page does not show are left empty.
func ParseListing(pageURL, page string) (domain.ScrapedPage, error) {
	site := siteOf(pageURL)
	if site == "" {
		return domain.ScrapedPage{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedSite, pageURL)
	}
	doc, err := parseDocument(page)
	if err != nil {
		return domain.ScrapedPage{}, err
	}
	var p domain.ScrapedPage
	if site == siteRedfin {
		p = parseRedfin(doc, pageURL)
	} else {
		p = parseZillow(doc)
	}
	p.URL = pageURL
	p.State = extractState(doc)
	return p, nil
}

var redfinZip = regexp.MustCompile(`-(\d{5})/home`)

func parseRedfin(doc *goquery.Document, pageURL string) domain.ScrapedPage {
	stat := func(testID string) string {
		node := doc.Find(`div[data-rf-test-id="` + testID + `"]`).First()
		return clean(node.Find("span.statsValue, div.statsValue").First().Text())
	}

	p := domain.ScrapedPage{
		Price: stat("abp-price"),
		Beds:  stat("abp-beds"),
		Sqft:  stat("abp-sqFt"),
	}
	if b := doc.Find("span.bath-flyout").First(); b.Length() > 0 {
		p.Baths = strings.ReplaceAll(strings.ReplaceAll(clean(b.Text()), "ba", ""), " ", "")
	} else {
		p.Baths = stat("abp-baths")
	}
	p.Address = clean(doc.Find("header.address").First().Text())
	if m := redfinZip.FindStringSubmatch(pageURL); m != nil {
		p.ZipCode = m[1]
	}
	return p
}

func parseZillow(doc *goquery.Document) domain.ScrapedPage {
	p := domain.ScrapedPage{
		Price: clean(doc.Find(`span[data-testid="price"]`).First().Text()),
	}
	doc.Find(`div[data-testid="bed-bath-sqft-fact-container"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(clean(s.Text()))
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return
		}
		switch {
		case strings.Contains(text, "bed"):
			p.Beds = fields[0]
		case strings.Contains(text, "bath"):
			p.Baths = fields[0]
		case strings.Contains(text, "sqft"):
			p.Sqft = strings.ReplaceAll(fields[0], ",", "")
		}
	})
	addr := doc.Find("h1").First()
	if addr.Length() == 0 {
		addr = doc.Find("h2").First()
	}
	p.Address = clean(addr.Text())
	return p
}

// extractState returns the first embedded __REDUX_STATE__ or __NEXT_DATA__
// object found in a script tag, or nil.
func extractState(doc *goquery.Document) any {
	var state any
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		txt := s.Text()
		if !strings.Contains(txt, "__REDUX_STATE__") && !strings.Contains(txt, "__NEXT_DATA__") {
			// Next.js puts the marker on the tag id, not in the body
			if id, _ := s.Attr("id"); id != "__NEXT_DATA__" {
				return true
			}
		}
		if obj := firstJSONObject(txt); obj != nil {
			state = obj
			return false
		}
		return true
	})
	return state
}

// firstJSONObject decodes the first balanced {...} in txt, such as the
// right-hand side of "window.__REDUX_STATE__ = {...};". Braces inside JSON
// strings are ignored while matching.
func firstJSONObject(txt string) map[string]any {
	start := strings.IndexByte(txt, '{')
	if start < 0 {
		return nil
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(txt); i++ {
		c := txt[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var out map[string]any
				if err := json.Unmarshal([]byte(txt[start:i+1]), &out); err != nil {
					return nil
				}
				return out
			}
		}
	}
	return nil
}

// SoldSearchURL builds the Redfin ZIP search for homes sold in the last six
// months with a similar profile.
func SoldSearchURL(q domain.SoldSearch) string {
	minBeds, maxBeds := max(0, q.Beds-1), q.Beds+1
	minBaths, maxBaths := max(0, q.Baths-1), q.Baths+1
	minSqft := int(float64(q.Sqft) * (1 - q.Tol))
	maxSqft := int(float64(q.Sqft) * (1 + q.Tol))
	return fmt.Sprintf("https://www.redfin.com/zipcode/%s/filter/"+
		"include=sold-6mo,min-beds=%d,max-beds=%d,min-baths=%d,max-baths=%d,min-sqft=%d,max-sqft=%d",
		url.PathEscape(q.ZipCode), minBeds, maxBeds, minBaths, maxBaths, minSqft, maxSqft)
}

// ParseSoldAverage returns the rounded mean of the home card prices on a
// search results page, or nil when there are none.
func ParseSoldAverage(page string) (*float64, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}
	var sum float64
	n := 0
	doc.Find("span.bp-Homecard__Price--value").Each(func(_ int, s *goquery.Selection) {
		raw := strings.NewReplacer("$", "", ",", "").Replace(clean(s.Text()))
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return
		}
		sum += float64(v)
		n++
	})
	if n == 0 {
		return nil, nil
	}
	avg := math.RoundToEven(sum / float64(n))
	return &avg, nil
}

func clean(s string) string { return strings.Join(strings.Fields(s), " ") }
