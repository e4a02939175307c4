package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homesquare/internal/domain"
)

// SaveInput mirrors the saved-listing request body. URL, Address and Label
// must be present; the numeric fields are converted best-effort.
type SaveInput struct {
	URL            *string `json:"url"`
	Address        *string `json:"address"`
	Label          *string `json:"label"`
	Price          any     `json:"price"`
	EstimatedPrice any     `json:"estimated_price"`
	Confidence     any     `json:"confidence"`
}

type SavedListingService struct {
	repo domain.SavedListingRepository
	now  func() time.Time
}

func NewSavedListingService(r domain.SavedListingRepository) *SavedListingService {
	return &SavedListingService{repo: r, now: time.Now}
}

func (s *SavedListingService) Save(ctx context.Context, in SaveInput) (domain.SavedListing, error) {
	var missing []string
	if in.URL == nil {
		missing = append(missing, "url")
	}
	if in.Address == nil {
		missing = append(missing, "address")
	}
	if in.Label == nil {
		missing = append(missing, "label")
	}
	if len(missing) > 0 {
		return domain.SavedListing{}, fmt.Errorf("%w: missing required fields: %s",
			domain.ErrInvalidInput, strings.Join(missing, ", "))
	}

	sl := domain.SavedListing{
		URL:            *in.URL,
		Address:        *in.Address,
		Price:          toFloat(in.Price),
		EstimatedPrice: toFloat(in.EstimatedPrice),
		Label:          strings.ToLower(*in.Label),
		SavedAt:        s.now().UTC(),
	}
	if c := toFloat(in.Confidence); c != nil {
		sl.Confidence = *c
	}

	id, err := s.repo.Insert(ctx, sl)
	if err != nil {
		return domain.SavedListing{}, fmt.Errorf("save listing: %w", err)
	}
	sl.ID = id
	return sl, nil
}

// List returns saved listings, most recently saved first.
func (s *SavedListingService) List(ctx context.Context) ([]domain.SavedListing, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list saved listings: %w", err)
	}
	if out == nil {
		out = []domain.SavedListing{}
	}
	return out, nil
}

func (s *SavedListingService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: saved listing %d", domain.ErrNotFound, id)
	}
	return s.repo.Delete(ctx, id)
}

// SaveAnalysis stores a URL analysis as a saved listing.
func (s *SavedListingService) SaveAnalysis(ctx context.Context, a URLAnalysis) (domain.SavedListing, error) {
	label := string(a.Result.Label)
	addr := a.Address
	if addr == "" {
		addr = a.URL
	}
	in := SaveInput{
		URL:        &a.URL,
		Address:    &addr,
		Label:      &label,
		Confidence: a.Result.Confidence,
	}
	if a.Listing.Price != nil {
		in.Price = *a.Listing.Price
	}
	if a.Result.EstimatedPrice != nil {
		in.EstimatedPrice = *a.Result.EstimatedPrice
	}
	return s.Save(ctx, in)
}
