package redfin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"homesquare/internal/domain"
)

type fakeBrowser struct {
	pages map[string]string
	urls  []string
	err   error
}

func (f *fakeBrowser) render(ctx context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

func TestSource_FetchListing(t *testing.T) {
	url := "https://www.redfin.com/VA/Glen-Allen/123-Main-St-23059/home/12345"
	fb := &fakeBrowser{pages: map[string]string{url: redfinPage}}
	s := newSource(fb.render, 1000)

	p, err := s.FetchListing(context.Background(), url)
	if err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if p.Price != "$500,000" || p.State == nil {
		t.Fatalf("unexpected page: %+v", p)
	}
}

func TestSource_UnsupportedSiteSkipsBrowser(t *testing.T) {
	fb := &fakeBrowser{}
	s := newSource(fb.render, 1000)
	_, err := s.FetchListing(context.Background(), "https://www.realtor.com/x")
	if !errors.Is(err, domain.ErrUnsupportedSite) {
		t.Fatalf("expected ErrUnsupportedSite, got %v", err)
	}
	if len(fb.urls) != 0 {
		t.Fatalf("browser must not be used for unsupported sites")
	}
}

func TestSource_RenderFailure(t *testing.T) {
	fb := &fakeBrowser{err: errors.New("net::ERR_CONNECTION_RESET")}
	s := newSource(fb.render, 1000)
	_, err := s.FetchListing(context.Background(), "https://www.zillow.com/homedetails/1_zpid/")
	if err == nil || !errors.Is(err, fb.err) || errors.Is(err, domain.ErrUnsupportedSite) {
		t.Fatalf("expected wrapped render error, got %v", err)
	}
}

func TestSource_AverageSoldPrice(t *testing.T) {
	q := domain.SoldSearch{ZipCode: "23059", Beds: 3, Baths: 2, Sqft: 2000, Tol: 0.2}
	fb := &fakeBrowser{pages: map[string]string{
		SoldSearchURL(q): `<span class="bp-Homecard__Price--value">$480,000</span>`,
	}}
	s := newSource(fb.render, 1000)

	avg, err := s.AverageSoldPrice(context.Background(), q)
	if err != nil || avg == nil || *avg != 480000 {
		t.Fatalf("avg: %v err: %v", avg, err)
	}
	if !strings.Contains(fb.urls[0], "include=sold-6mo") {
		t.Fatalf("unexpected search url %s", fb.urls[0])
	}

	if _, err := s.AverageSoldPrice(context.Background(), domain.SoldSearch{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSource_RateLimitHonorsContext(t *testing.T) {
	fb := &fakeBrowser{pages: map[string]string{}}
	s := newSource(fb.render, 0.001)
	ctx, cancel := context.WithCancel(context.Background())
	_, _ = s.FetchListing(ctx, "https://www.redfin.com/a") // consumes the burst
	cancel()
	if _, err := s.FetchListing(ctx, "https://www.redfin.com/b"); err == nil {
		t.Fatalf("expected context error while waiting for the limiter")
	}
}
