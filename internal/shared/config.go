package shared

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"homesquare/internal/valuation"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	DBDriver    string // mysql | sqlite
	DBDSN       string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	PriorCSVPath string
	PriorCSVURL  string

	KafkaAddr  string
	KafkaTopic string

	ChromeBin    string
	ScrapeRPS    float64
	BatchWorkers int
	CORSOrigins  []string

	Policy valuation.Policy
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}

	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ""),
		DBDriver:     strings.ToLower(env("DB_DRIVER", "sqlite")),
		DBDSN:        env("DB_DSN", "file:homesquare.db?_pragma=busy_timeout(5000)"),
		RedisAddr:    env("REDIS_ADDR", ""),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		PriorCSVPath: env("PRIOR_CSV_PATH", ""),
		PriorCSVURL:  env("PRIOR_CSV_URL", ""),
		KafkaAddr:    env("KAFKA_ADDR", ""),
		KafkaTopic:   env("KAFKA_TOPIC", "homesquare.analyses"),
		ChromeBin:    env("CHROME_BIN", ""),
		ScrapeRPS:    atof("SCRAPE_RPS", 0.5),
		BatchWorkers: atoi("BATCH_WORKERS", 4),
		CORSOrigins:  splitList(env("CORS_ORIGINS", "*")),
		Policy:       policyFromEnv(),
	}
	if c.DBDriver != "mysql" && c.DBDriver != "sqlite" {
		log.Warn().Str("driver", c.DBDriver).Msg("unknown DB_DRIVER, using sqlite")
		c.DBDriver = "sqlite"
	}
	if c.PriorCSVPath == "" && c.PriorCSVURL == "" {
		log.Warn().Msg("no PRIOR_CSV_PATH or PRIOR_CSV_URL, external prior disabled")
	}
	return c
}

// policyFromEnv starts from the default valuation constants and applies any
// VALUATION_* overrides.
func policyFromEnv() valuation.Policy {
	p := valuation.DefaultPolicy()
	p.LocalWeight = unitf("VALUATION_LOCAL_WEIGHT", p.LocalWeight)
	p.ExternalWeight = unitf("VALUATION_EXTERNAL_WEIGHT", p.ExternalWeight)
	p.BedAdjustment = atof("VALUATION_BED_ADJUSTMENT", p.BedAdjustment)
	p.BathAdjustment = atof("VALUATION_BATH_ADJUSTMENT", p.BathAdjustment)
	p.FairBand = positivef("VALUATION_FAIR_BAND", p.FairBand)
	p.MaxConfidence = unitf("VALUATION_MAX_CONFIDENCE", p.MaxConfidence)
	p.CompLimit = atoi("COMP_LIMIT", p.CompLimit)
	return p
}

// unitf reads a float that must lie in [0,1].
func unitf(k string, def float64) float64 {
	f := atof(k, def)
	if f < 0 || f > 1 {
		log.Warn().Str("key", k).Float64("value", f).Msg("setting outside [0,1], using default")
		return def
	}
	return f
}

func positivef(k string, def float64) float64 {
	f := atof(k, def)
	if f <= 0 {
		log.Warn().Str("key", k).Float64("value", f).Msg("setting must be positive, using default")
		return def
	}
	return f
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer setting")
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric or non-finite setting")
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
