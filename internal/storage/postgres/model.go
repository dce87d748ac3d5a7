package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/spigell/jobrank/internal/jobs"
)

type jobRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Hash         string    `gorm:"size:64;uniqueIndex;not null"`
	Title        string
	Company      string `gorm:"index"`
	Location     string
	URL          string `gorm:"type:text"`
	RawText      string `gorm:"type:text;not null"`
	AboutSummary string `gorm:"type:text"`

	Score      *int
	Reasoning  string `gorm:"type:text"`
	AnalyzedAt *time.Time

	RecommendedResume string             `gorm:"size:32"`
	Guidance          string             `gorm:"type:text"`
	Requirements      *jobs.Requirements `gorm:"type:jsonb;serializer:json"`

	Rating    *float64
	Embedding *pgvector.Vector `gorm:"type:vector"`

	CapturedAt time.Time `gorm:"not null"`
	UpdatedAt  time.Time
}

func (jobRecord) TableName() string {
	return "jobs"
}

func newJobRecord(job *jobs.Job) *jobRecord {
	c := job.Clone()
	rec := &jobRecord{
		ID:           c.ID,
		Hash:         c.Hash,
		Title:        c.Title,
		Company:      c.Company,
		Location:     c.Location,
		URL:          c.URL,
		RawText:      c.RawText,
		AboutSummary: c.AboutSummary,
		Score:        c.Score,
		Reasoning:    c.Reasoning,
		AnalyzedAt:   c.AnalyzedAt,
		Rating:       c.Rating,
		CapturedAt:   c.CapturedAt,

		RecommendedResume: c.RecommendedResume,
		Guidance:          c.Guidance,
		Requirements:      c.Requirements,
	}
	if c.HasEmbedding() {
		v := pgvector.NewVector(c.Embedding)
		rec.Embedding = &v
	}
	return rec
}

func (r *jobRecord) toJob() *jobs.Job {
	job := &jobs.Job{
		ID:           r.ID,
		Hash:         r.Hash,
		Title:        r.Title,
		Company:      r.Company,
		Location:     r.Location,
		URL:          r.URL,
		RawText:      r.RawText,
		AboutSummary: r.AboutSummary,
		Score:        r.Score,
		Reasoning:    r.Reasoning,
		AnalyzedAt:   r.AnalyzedAt,
		Rating:       r.Rating,
		CapturedAt:   r.CapturedAt,

		RecommendedResume: r.RecommendedResume,
		Guidance:          r.Guidance,
		Requirements:      r.Requirements,
	}
	if r.Embedding != nil {
		job.Embedding = r.Embedding.Slice()
	}
	return job
}

type comparisonRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobAID     uuid.UUID `gorm:"type:uuid;not null;index"`
	JobBID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ChosenID   uuid.UUID `gorm:"type:uuid;not null"`
	RejectedID uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt  time.Time `gorm:"not null;index"`

	JobA     jobRecord `gorm:"foreignKey:JobAID;constraint:OnDelete:CASCADE"`
	JobB     jobRecord `gorm:"foreignKey:JobBID;constraint:OnDelete:CASCADE"`
	Chosen   jobRecord `gorm:"foreignKey:ChosenID;constraint:OnDelete:CASCADE"`
	Rejected jobRecord `gorm:"foreignKey:RejectedID;constraint:OnDelete:CASCADE"`
}

func (comparisonRecord) TableName() string {
	return "comparisons"
}

func (r *comparisonRecord) toComparison() *jobs.Comparison {
	return &jobs.Comparison{
		ID:        r.ID,
		JobA:      r.JobAID,
		JobB:      r.JobBID,
		Chosen:    r.ChosenID,
		Rejected:  r.RejectedID,
		CreatedAt: r.CreatedAt,
	}
}

type resumeRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RawText   string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

func (resumeRecord) TableName() string {
	return "resumes"
}

func (r *resumeRecord) toResume() *jobs.Resume {
	return &jobs.Resume{ID: r.ID, RawText: r.RawText, UpdatedAt: r.UpdatedAt}
}
