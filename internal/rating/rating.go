package rating

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/vecmath"
)

const (
	DefaultBaseline = 1000.0
	DefaultK        = 32.0
	DefaultSpread   = 0.3
)

type Config struct {
	Baseline float64 `mapstructure:"baseline"`
	K        float64 `mapstructure:"k"`
	Spread   float64 `mapstructure:"spread"`
}

func DefaultConfig() *Config {
	return &Config{
		Baseline: DefaultBaseline,
		K:        DefaultK,
		Spread:   DefaultSpread,
	}
}

func (c *Config) Validate() error {
	if c.K <= 0 {
		return fmt.Errorf("k factor must be positive, got %v", c.K)
	}
	if c.Spread < 0 || c.Spread >= 1 {
		return fmt.Errorf("spread must be in [0, 1), got %v", c.Spread)
	}
	return nil
}

// Expected returns the probability that a player rated ra beats one rated rb.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

// Result describes one applied preference.
type Result struct {
	WinnerBefore float64
	WinnerAfter  float64
	LoserBefore  float64
	LoserAfter   float64

	// Spread holds the rating delta applied to every other job touched by similarity.
	Spread map[uuid.UUID]float64
	// Changed lists every job whose rating was modified, winner and loser first.
	Changed []*jobs.Job
}

type Updater struct {
	cfg    *Config
	logger *zap.Logger
}

func NewUpdater(cfg *Config, logger *zap.Logger) (*Updater, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate rating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Updater{cfg: cfg, logger: logger}, nil
}

func (u *Updater) Baseline() float64 {
	return u.cfg.Baseline
}

// Apply updates winner and loser directly and spreads the preference to the rest of the pool
// by embedding similarity. Jobs are mutated in place. The pool may contain winner and loser.
func (u *Updater) Apply(winner, loser *jobs.Job, pool []*jobs.Job) *Result {
	rw := winner.RatingOr(u.cfg.Baseline)
	rl := loser.RatingOr(u.cfg.Baseline)

	expectedWinner := Expected(rw, rl)
	expectedLoser := 1 - expectedWinner

	res := &Result{
		WinnerBefore: rw,
		WinnerAfter:  rw + u.cfg.K*(1-expectedWinner),
		LoserBefore:  rl,
		LoserAfter:   rl + u.cfg.K*(0-expectedLoser),
		Spread:       make(map[uuid.UUID]float64),
	}

	winner.SetRating(res.WinnerAfter)
	loser.SetRating(res.LoserAfter)
	res.Changed = append(res.Changed, winner, loser)

	if !winner.HasEmbedding() || !loser.HasEmbedding() || u.cfg.Spread == 0 {
		u.logger.Debug("skipping similarity spread",
			zap.String("winner_id", winner.ID.String()),
			zap.String("loser_id", loser.ID.String()),
			zap.Bool("winner_embedded", winner.HasEmbedding()),
			zap.Bool("loser_embedded", loser.HasEmbedding()),
		)
		return res
	}

	for _, job := range pool {
		if job == nil || job.ID == winner.ID || job.ID == loser.ID || !job.HasEmbedding() {
			continue
		}

		delta := u.cfg.K * (vecmath.CosineSimilarity(job.Embedding, winner.Embedding) -
			vecmath.CosineSimilarity(job.Embedding, loser.Embedding)) * u.cfg.Spread

		job.SetRating(job.RatingOr(u.cfg.Baseline) + delta)
		res.Spread[job.ID] = delta
		res.Changed = append(res.Changed, job)
	}

	u.logger.Debug("applied preference",
		zap.String("winner_id", winner.ID.String()),
		zap.String("loser_id", loser.ID.String()),
		zap.Float64("winner_rating", res.WinnerAfter),
		zap.Float64("loser_rating", res.LoserAfter),
		zap.Int("spread_jobs", len(res.Spread)),
	)

	return res
}
