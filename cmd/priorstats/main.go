// Command priorstats prints the per-ZIP median $/sqft computed from the bulk
// sales CSV, the same snapshot the API loads at startup.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"homesquare/internal/adapters/dataset"
	"homesquare/internal/adapters/observability"
	"homesquare/internal/domain"
	"homesquare/internal/shared"
)

func main() {
	cfg := shared.Load()
	path := flag.String("path", cfg.PriorCSVPath, "local sales CSV (defaults to PRIOR_CSV_PATH)")
	url := flag.String("url", cfg.PriorCSVURL, "sales CSV URL (defaults to PRIOR_CSV_URL)")
	zips := flag.String("zip", "", "comma-separated ZIP codes to print (default all)")
	flag.Parse()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *path == "" && *url == "" {
		log.Fatal().Msg("set -path or -url (or PRIOR_CSV_PATH / PRIOR_CSV_URL)")
	}
	prior, err := dataset.New(2).Resolve(ctx, *path, *url)
	if err != nil {
		log.Fatal().Err(err).Msg("load prior failed")
	}
	log.Info().Int("zips", len(prior)).Msg("prior loaded")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(filter(prior, *zips)); err != nil {
		log.Fatal().Err(err).Msg("write output failed")
	}
}

func filter(prior domain.PriorStats, list string) domain.PriorStats {
	if strings.TrimSpace(list) == "" {
		return prior
	}
	out := domain.PriorStats{}
	for _, z := range strings.Split(list, ",") {
		if v, ok := prior[strings.TrimSpace(z)]; ok {
			out[strings.TrimSpace(z)] = v
		}
	}
	return out
}
