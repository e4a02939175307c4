// Command batch values a list of listing URLs concurrently, stores each
// result as a saved listing and publishes it.
//
//	batch -file urls.txt
//	batch https://www.redfin.com/... https://www.zillow.com/...
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"homesquare/internal/adapters/dataset"
	"homesquare/internal/adapters/kafka"
	"homesquare/internal/adapters/observability"
	"homesquare/internal/adapters/redfin"
	"homesquare/internal/app"
	"homesquare/internal/domain"
	"homesquare/internal/shared"
	"homesquare/internal/storage/sqlrepo"
	"homesquare/internal/valuation"
)

func main() { os.Exit(run()) }

func run() int {
	file := flag.String("file", "", "file with one listing URL per line")
	noSave := flag.Bool("dry-run", false, "analyze without saving results")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	urls, err := readURLs(*file, flag.Args())
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("read urls failed")
	}
	if len(urls) == 0 {
		log.Fatal().Msg("no listing URLs given")
	}
	log.Info().Int("urls", len(urls)).Int("workers", cfg.BatchWorkers).Msg("batch starting")

	db, err := sqlrepo.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()
	repo := sqlrepo.New(db, cfg.DBDriver)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure schema failed")
	}

	prior, err := dataset.New(2).Resolve(ctx, cfg.PriorCSVPath, cfg.PriorCSVURL)
	if err != nil {
		log.Warn().Err(err).Msg("external prior unavailable, using local comps only")
	}

	var pub domain.ResultPublisher
	if cfg.KafkaAddr != "" {
		p := kafka.NewPublisher(cfg.KafkaAddr, cfg.KafkaTopic)
		defer p.Close()
		pub = p
	}
	pages := redfin.New(cfg.ChromeBin, cfg.ScrapeRPS, 0)
	defer pages.Close()

	analyses := app.NewAnalysisService(valuation.NewEngine(cfg.Policy, prior), nil, 0, pages, pub)
	saved := app.NewSavedListingService(repo)

	workers := max(1, cfg.BatchWorkers)
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var ok, failed atomic.Int64
	start := time.Now()

	for _, u := range urls {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("batch interrupted")
			break
		}

		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := analyses.AnalyzeURL(ctx, url)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("url", url).Err(err).Msg("analysis failed")
				return
			}
			ev := log.Info().Str("url", url).
				Str("label", string(res.Result.Label)).
				Float64("confidence", res.Result.Confidence).
				Int("comps", res.Result.CompCount)
			if res.Result.EstimatedPrice != nil {
				ev = ev.Float64("estimate", *res.Result.EstimatedPrice)
			}
			if !*noSave {
				sl, err := saved.SaveAnalysis(ctx, res)
				if err != nil {
					failed.Add(1)
					log.Warn().Str("url", url).Err(err).Msg("save failed")
					return
				}
				ev = ev.Int64("saved_id", sl.ID)
			}
			ok.Add(1)
			ev.Msg("analysis ok")
		}(u)
	}

	wg.Wait()
	log.Info().
		Int64("ok", ok.Load()).
		Int64("failed", failed.Load()).
		Dur("elapsed", time.Since(start)).
		Msg("batch completed")
	if failed.Load() > 0 {
		return 1
	}
	return 0
}

// readURLs merges URLs from the file (blank lines and # comments skipped)
// with positional arguments, dropping duplicates.
func readURLs(path string, args []string) ([]string, error) {
	var raw []string
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			raw = append(raw, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	raw = append(raw, args...)

	seen := map[string]bool{}
	var out []string
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out, nil
}
