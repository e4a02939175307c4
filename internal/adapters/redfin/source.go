// Package redfin renders Redfin and Zillow listing pages in headless Chrome
// and scrapes the fields the valuation engine needs.
package redfin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"homesquare/internal/adapters/observability"
	"homesquare/internal/domain"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// renderFunc returns the outer HTML of a fully loaded page.
type renderFunc func(ctx context.Context, url string) (string, error)

// Source implements domain.PageSource. Page loads are rate limited since
// both sites block aggressive clients.
type Source struct {
	render  renderFunc
	rl      *rate.Limiter
	closeFn func()
}

// New starts a shared headless browser. rps limits page loads across all
// callers; Close releases the browser.
func New(chromeBin string, rps float64, pageTimeout time.Duration) *Source {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 900),
		chromedp.UserAgent(userAgent),
	)
	if bin := findChromeBinary(chromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))

	if pageTimeout <= 0 {
		pageTimeout = 45 * time.Second
	}
	s := newSource(chromeRenderer(browserCtx, pageTimeout), rps)
	s.closeFn = func() {
		cancelBrowser()
		cancelAlloc()
	}
	return s
}

func newSource(r renderFunc, rps float64) *Source {
	if rps <= 0 {
		rps = 0.5
	}
	return &Source{render: r, rl: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (s *Source) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

func (s *Source) FetchListing(ctx context.Context, url string) (domain.ScrapedPage, error) {
	site := siteOf(url)
	if site == "" {
		return domain.ScrapedPage{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedSite, url)
	}
	page, err := s.load(ctx, site, url)
	if err != nil {
		return domain.ScrapedPage{}, err
	}
	return ParseListing(url, page)
}

// AverageSoldPrice loads the Redfin sold search for the ZIP and averages
// the listed prices. Zillow listings use Redfin for this too.
func (s *Source) AverageSoldPrice(ctx context.Context, q domain.SoldSearch) (*float64, error) {
	if q.ZipCode == "" {
		return nil, fmt.Errorf("%w: zip code is required", domain.ErrInvalidInput)
	}
	page, err := s.load(ctx, "redfin-sold", SoldSearchURL(q))
	if err != nil {
		return nil, err
	}
	return ParseSoldAverage(page)
}

func (s *Source) load(ctx context.Context, endpoint, url string) (string, error) {
	if err := s.rl.Wait(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	page, err := s.render(ctx, url)
	status := 200
	if err != nil {
		status = 502
	}
	observability.ObserveExternal("browser", endpoint, status, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("page render failed")
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return page, nil
}

func chromeRenderer(browserCtx context.Context, timeout time.Duration) renderFunc {
	return func(ctx context.Context, url string) (string, error) {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
		defer cancelTimeout()
		// caller cancellation also closes the tab
		stop := context.AfterFunc(ctx, cancelTimeout)
		defer stop()

		var page string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(time.Second),
			chromedp.OuterHTML("html", &page, chromedp.ByQuery),
		)
		return page, err
	}
}

// findChromeBinary prefers the configured path, then common install names.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	for _, p := range []string{"/usr/bin/chromium", "/snap/bin/chromium", "/opt/google/chrome/google-chrome"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
