package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"homesquare/internal/adapters/observability"
	"homesquare/internal/domain"
	"homesquare/internal/valuation"
)

// AnalyzeInput is a valuation request. Listing and Comps are loosely typed
// so page text such as "$500,000" can be passed through unchanged.
type AnalyzeInput struct {
	Listing map[string]any   `json:"listing"`
	Comps   []map[string]any `json:"comps,omitempty"`
	State   any              `json:"state,omitempty"`
	Limit   int              `json:"limit,omitempty"`
}

type URLAnalysis struct {
	URL     string                `json:"url"`
	Address string                `json:"address,omitempty"`
	Listing domain.Listing        `json:"listing"`
	Result  domain.AnalysisResult `json:"result"`
	Comps   []CompPreview         `json:"comps_preview"`
}

type AnalysisService struct {
	engine   *valuation.Engine
	cache    domain.Cache
	cacheTTL time.Duration
	pages    domain.PageSource
	pub      domain.ResultPublisher
}

// NewAnalysisService wires the valuation engine to its optional
// collaborators; cache, pages and pub may each be nil.
func NewAnalysisService(e *valuation.Engine, c domain.Cache, ttl time.Duration, pages domain.PageSource, pub domain.ResultPublisher) *AnalysisService {
	return &AnalysisService{engine: e, cache: c, cacheTTL: ttl, pages: pages, pub: pub}
}

func (s *AnalysisService) Analyze(ctx context.Context, in AnalyzeInput) (domain.AnalysisResult, error) {
	if in.Listing == nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: listing is required", domain.ErrInvalidInput)
	}
	if in.Limit < 0 {
		return domain.AnalysisResult{}, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}

	key, kerr := cacheKey("analysis:", in)
	var out domain.AnalysisResult
	if kerr == nil && s.cacheGet(ctx, key, &out) {
		return out, nil
	}

	l := listingFromRaw(in.Listing)
	policy := s.engine.Policy()

	rows := make([]domain.ComparableRecord, 0, len(in.Comps))
	for _, row := range in.Comps {
		if c, ok := compFromRow(row); ok {
			rows = append(rows, c)
		}
	}
	comps := policy.FilterComps(rows)
	if in.State != nil {
		limit := in.Limit
		if limit == 0 {
			limit = policy.CompLimit
		}
		comps = append(comps, policy.ExtractComps(in.State, limit)...)
	}

	out = s.engine.Analyze(l, comps)
	observability.ObserveAnalysis("api", string(out.Label), out.CompCount)
	s.publish(ctx, "", l, out)

	if kerr == nil {
		s.cacheSet(ctx, key, out)
	}
	return out, nil
}

// AnalyzeURL scrapes a listing page and values it against the comps found in
// the page state. With no comps on the page it falls back to a single
// synthetic comp priced at the ZIP's recent sold average.
func (s *AnalysisService) AnalyzeURL(ctx context.Context, url string) (URLAnalysis, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return URLAnalysis{}, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	if s.pages == nil {
		return URLAnalysis{}, fmt.Errorf("%w: no page source configured", domain.ErrUnsupportedSite)
	}

	key, kerr := cacheKey("analysis:url:", url)
	var out URLAnalysis
	if kerr == nil && s.cacheGet(ctx, key, &out) {
		return out, nil
	}

	page, err := s.pages.FetchListing(ctx, url)
	if err != nil {
		return URLAnalysis{}, fmt.Errorf("fetch listing: %w", err)
	}
	if page.URL == "" {
		page.URL = url
	}
	l := listingFromPage(page)
	policy := s.engine.Policy()

	comps := policy.ExtractComps(page.State, policy.CompLimit)
	synthetic := false
	if len(comps) == 0 {
		comps = s.soldAverageComp(ctx, l)
		synthetic = len(comps) > 0
	}

	res := s.engine.Analyze(l, comps)
	observability.ObserveAnalysis("url", string(res.Label), res.CompCount)
	s.publish(ctx, url, l, res)

	out = URLAnalysis{
		URL:     url,
		Address: page.Address,
		Listing: l,
		Result:  res,
		Comps:   previewComps(comps, synthetic),
	}
	if kerr == nil {
		s.cacheSet(ctx, key, out)
	}
	return out, nil
}

func (s *AnalysisService) soldAverageComp(ctx context.Context, l domain.Listing) []domain.ComparableRecord {
	if l.ZipCode == nil || l.Sqft == nil || *l.Sqft <= 0 {
		return nil
	}
	q := domain.SoldSearch{
		ZipCode: *l.ZipCode,
		Beds:    intOr(l.Beds, 3),
		Baths:   intOr(l.Baths, 2),
		Sqft:    int(*l.Sqft),
		Tol:     0.2,
	}
	avg, err := s.pages.AverageSoldPrice(ctx, q)
	if err != nil {
		log.Warn().Err(err).Str("zip", q.ZipCode).Msg("sold average lookup failed")
		return nil
	}
	if avg == nil {
		log.Info().Str("zip", q.ZipCode).Msg("sold search returned no homes")
		return nil
	}
	c := domain.ComparableRecord{
		Price: int64(*avg),
		Sqft:  int64(*l.Sqft),
		Beds:  l.Beds,
		Baths: l.Baths,
	}
	return s.engine.Policy().FilterComps([]domain.ComparableRecord{c})
}

func (s *AnalysisService) publish(ctx context.Context, url string, l domain.Listing, res domain.AnalysisResult) {
	if s.pub == nil {
		return
	}
	ev := domain.AnalysisEvent{URL: url, ZipCode: l.ZipCode, Asking: l.Price, Result: res}
	if err := s.pub.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("publish analysis event failed")
	}
}

func (s *AnalysisService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	return ok
}

func (s *AnalysisService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func intOr(v *float64, def int) int {
	if v == nil || *v == 0 {
		return def
	}
	return int(*v)
}
