package domain

// Listing is the subject property under evaluation. Every field is optional
// because upstream scraping may fail to find it.
type Listing struct {
	Price   *float64 `json:"price"`
	Beds    *float64 `json:"beds"`
	Baths   *float64 `json:"baths"`
	Sqft    *float64 `json:"sqft"`
	ZipCode *string  `json:"zip_code"`
}

type ComparableRecord struct {
	Price     int64    `json:"price"`
	Sqft      int64    `json:"sqft"`
	Beds      *float64 `json:"beds"`
	Baths     *float64 `json:"baths"`
	Address   *string  `json:"address,omitempty"`
	DetailURL *string  `json:"detail_url,omitempty"`
}

// PriorStats maps ZIP code -> median price per square foot.
type PriorStats map[string]float64

// ScrapedPage is what a PageSource hands back for one listing URL.
// Numeric fields are raw page text ("$500,000", "1,850", "2.5").
type ScrapedPage struct {
	URL     string
	Address string
	Price   string
	Beds    string
	Baths   string
	Sqft    string
	ZipCode string
	State   any // embedded page state, searched for comps
}
