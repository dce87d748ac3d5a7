package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/storage"
)

// serializationFailure is the SQLSTATE reported when a serializable transaction must be retried.
const serializationFailure = "40001"

var _ storage.Store = (*Store)(nil)

type Store struct {
	repo
	db     *gorm.DB
	logger *zap.Logger
}

// Atomic runs fn in a SERIALIZABLE transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &repo{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if isSerializationFailure(err) {
		s.logger.Debug("transaction serialization conflict", zap.Error(err))
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	}
	return err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

func (s *Store) UpsertJob(ctx context.Context, job *jobs.Job) (*jobs.Job, bool, error) {
	if job.Hash == "" {
		job.Hash = jobs.ComputeHash(job.Title, job.Company, job.Location, job.URL, job.RawText)
	}

	rec := newJobRecord(job)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = time.Now().UTC()
	}

	db := s.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert job: %w", res.Error)
	}

	if res.RowsAffected == 1 {
		return rec.toJob(), true, nil
	}

	var existing jobRecord
	if err := db.Where("hash = ?", rec.Hash).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("load job by hash: %w", err)
	}
	return existing.toJob(), false, nil
}

// SaveAnalyses writes the analysis fields of every job in one transaction.
func (s *Store) SaveAnalyses(ctx context.Context, analyzed []*jobs.Job) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, job := range analyzed {
			res := tx.Model(&jobRecord{}).Where("id = ?", job.ID).Updates(map[string]any{
				"score":              job.Score,
				"reasoning":          job.Reasoning,
				"about_summary":      job.AboutSummary,
				"recommended_resume": job.RecommendedResume,
				"guidance":           job.Guidance,
				"requirements":       requirementsValue(job.Requirements),
				"analyzed_at":        job.AnalyzedAt,
			})
			if res.Error != nil {
				return fmt.Errorf("save analysis for job %s: %w", job.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", jobs.ErrNotFound, job.ID)
			}
		}
		return nil
	})
}

// requirementsValue encodes requirements for a map based update, which skips field serializers.
func requirementsValue(req *jobs.Requirements) any {
	raw, err := json.Marshal(req)
	if req == nil || err != nil {
		return gorm.Expr("NULL")
	}
	return string(raw)
}

func (s *Store) ListComparisons(ctx context.Context) ([]*jobs.Comparison, error) {
	var records []comparisonRecord
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}

	out := make([]*jobs.Comparison, 0, len(records))
	for i := range records {
		out = append(out, records[i].toComparison())
	}
	return out, nil
}

func (s *Store) LatestResume(ctx context.Context) (*jobs.Resume, error) {
	var rec resumeRecord
	err := s.db.WithContext(ctx).Order("updated_at DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no resume stored", jobs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}
	return rec.toResume(), nil
}

func (s *Store) SaveResume(ctx context.Context, text string) (*jobs.Resume, error) {
	text, err := jobs.ValidateResumeText(text)
	if err != nil {
		return nil, err
	}

	rec := &resumeRecord{ID: uuid.New(), RawText: text, UpdatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("save resume: %w", err)
	}
	return rec.toResume(), nil
}

// repo implements storage.Repository on top of either the pool or a transaction.
type repo struct {
	db *gorm.DB
}

func (r *repo) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	var records []jobRecord
	if err := r.db.WithContext(ctx).Order("captured_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	out := make([]*jobs.Job, 0, len(records))
	for i := range records {
		out = append(out, records[i].toJob())
	}
	return out, nil
}

func (r *repo) GetJob(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	var rec jobRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", jobs.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return rec.toJob(), nil
}

func (r *repo) SaveRatingsAndEmbeddings(ctx context.Context, changed []*jobs.Job) error {
	db := r.db.WithContext(ctx)

	for _, job := range changed {
		if job.Rating != nil {
			res := db.Model(&jobRecord{}).Where("id = ?", job.ID).Update("rating", *job.Rating)
			if res.Error != nil {
				return fmt.Errorf("save rating for job %s: %w", job.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", jobs.ErrNotFound, job.ID)
			}
		}

		if job.HasEmbedding() {
			// an embedding is written once and never replaced
			res := db.Model(&jobRecord{}).
				Where("id = ? AND embedding IS NULL", job.ID).
				Update("embedding", pgvector.NewVector(job.Embedding))
			if res.Error != nil {
				return fmt.Errorf("save embedding for job %s: %w", job.ID, res.Error)
			}
		}
	}
	return nil
}

func (r *repo) AppendComparison(ctx context.Context, c *jobs.Comparison) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	rec := &comparisonRecord{
		ID:         c.ID,
		JobAID:     c.JobA,
		JobBID:     c.JobB,
		ChosenID:   c.Chosen,
		RejectedID: c.Rejected,
		CreatedAt:  c.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: comparison references a missing job", jobs.ErrNotFound)
		}
		return fmt.Errorf("append comparison: %w", err)
	}
	return nil
}

func (r *repo) ComparisonCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	var rows []struct {
		JobID uuid.UUID
		Total int
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT job_id, COUNT(*) AS total
		FROM (
			SELECT job_a_id AS job_id FROM comparisons
			UNION ALL
			SELECT job_b_id AS job_id FROM comparisons WHERE job_b_id <> job_a_id
		) sides
		GROUP BY job_id
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count comparisons: %w", err)
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.JobID] = row.Total
	}
	return counts, nil
}
