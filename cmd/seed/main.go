// Command seed populates a running review service with sample submissions
// over its public API and prints the resulting stats.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgconfig "github.com/utafrali/reviewfeed/pkg/config"
	"github.com/utafrali/reviewfeed/pkg/logger"
)

type config struct {
	APIURL      string `env:"SEED_API_URL" envDefault:"http://localhost:8000"`
	Count       int    `env:"SEED_COUNT" envDefault:"50"`
	Concurrency int    `env:"SEED_CONCURRENCY" envDefault:"4"`
	Seed        int64  `env:"SEED_RANDOM_SEED" envDefault:"1"`
	TimeoutSecs int    `env:"SEED_TIMEOUT_SECONDS" envDefault:"300"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg config
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("review-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSecs)*time.Second)
	defer cancelTimeout()

	s := newSeeder(cfg.APIURL, nil, log)
	res, err := s.Run(ctx, cfg.Count, cfg.Concurrency, cfg.Seed)
	if err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seeding complete",
		slog.Int("submitted", res.Submitted),
		slog.Int64("total_reviews", res.Stats.TotalReviews),
		slog.Float64("avg_rating", res.Stats.AvgRating),
		slog.Any("rating_distribution", res.Stats.RatingDistribution),
	)
}
