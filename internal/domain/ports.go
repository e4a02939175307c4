package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedSite = errors.New("unsupported listing site")
)

type SavedListingRepository interface {
	Insert(ctx context.Context, s SavedListing) (int64, error)
	List(ctx context.Context) ([]SavedListing, error)
	Delete(ctx context.Context, id int64) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// PageSource renders a listing page and returns its scraped fields.
type PageSource interface {
	FetchListing(ctx context.Context, url string) (ScrapedPage, error)
	// AverageSoldPrice returns the mean sold price of homes near the given
	// profile, or nil when the search returned nothing.
	AverageSoldPrice(ctx context.Context, q SoldSearch) (*float64, error)
}

type SoldSearch struct {
	ZipCode string
	Beds    int
	Baths   int
	Sqft    int
	Tol     float64 // relative sqft tolerance
}

type ResultPublisher interface {
	Publish(ctx context.Context, ev AnalysisEvent) error
}

type AnalysisEvent struct {
	URL     string         `json:"url,omitempty"`
	ZipCode *string        `json:"zip_code"`
	Asking  *float64       `json:"asking_price"`
	Result  AnalysisResult `json:"result"`
}
