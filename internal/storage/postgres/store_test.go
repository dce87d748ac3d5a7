package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/storage"
)

const pgvectorImage = "pgvector/pgvector:pg16"

func startStore(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("JOBRANK_INTEGRATION") == "" {
		t.Skip("set JOBRANK_INTEGRATION=1 to run database tests")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, pgvectorImage,
		tcpostgres.WithDatabase("jobrank"),
		tcpostgres.WithUsername("jobrank"),
		tcpostgres.WithPassword("jobrank"),
		tcpostgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	store, err := Open(ctx, &Config{DSN: dsn, MaxOpenConns: 8}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func insertJob(t *testing.T, s *Store, title string) *jobs.Job {
	t.Helper()
	job, err := jobs.New(title, "Acme", "Remote", "", "Description of "+title)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	stored, created, err := s.UpsertJob(context.Background(), job)
	if err != nil || !created {
		t.Fatalf("upsert job: created=%v err=%v", created, err)
	}
	return stored
}

func TestStoreRoundTrip(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()

	a := insertJob(t, s, "A")
	b := insertJob(t, s, "B")

	dup, _ := jobs.New("A", "Acme", "Remote", "", "Description of A")
	again, created, err := s.UpsertJob(ctx, dup)
	if err != nil {
		t.Fatalf("upsert duplicate: %v", err)
	}
	if created || again.ID != a.ID {
		t.Fatalf("expected duplicate to resolve to %s, got %s (created=%v)", a.ID, again.ID, created)
	}

	a.SetRating(1016)
	a.Embedding = []float32{1, 0, 0}
	b.SetRating(984)

	err = s.Atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
		if err := repo.SaveRatingsAndEmbeddings(ctx, []*jobs.Job{a, b}); err != nil {
			return err
		}
		return repo.AppendComparison(ctx, &jobs.Comparison{JobA: a.ID, JobB: b.ID, Chosen: a.ID, Rejected: b.ID})
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}

	got, err := s.GetJob(ctx, a.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.RatingOr(0) != 1016 || len(got.Embedding) != 3 {
		t.Fatalf("unexpected stored job: rating=%v embedding=%v", got.RatingOr(0), got.Embedding)
	}

	counts, err := s.ComparisonCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[a.ID] != 1 || counts[b.ID] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestStoreAtomicRollsBack(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()

	a := insertJob(t, s, "A")
	a.SetRating(1200)

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
		if err := repo.SaveRatingsAndEmbeddings(ctx, []*jobs.Job{a}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.GetJob(ctx, a.ID)
	if got.Rating != nil {
		t.Fatalf("rating must be rolled back, got %v", *got.Rating)
	}
}

func TestStoreConcurrentUnitsOfWorkConflict(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()

	a := insertJob(t, s, "A")
	b := insertJob(t, s, "B")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		conflicts int
		ready     = make(chan struct{})
	)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(delta float64) {
			defer wg.Done()
			err := s.Atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
				job, err := repo.GetJob(ctx, a.ID)
				if err != nil {
					return err
				}
				<-ready
				job.SetRating(job.RatingOr(1000) + delta)
				if err := repo.SaveRatingsAndEmbeddings(ctx, []*jobs.Job{job}); err != nil {
					return err
				}
				return repo.AppendComparison(ctx, &jobs.Comparison{JobA: a.ID, JobB: b.ID, Chosen: a.ID, Rejected: b.ID})
			})
			if errors.Is(err, storage.ErrConflict) {
				mu.Lock()
				conflicts++
				mu.Unlock()
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(float64(i + 1))
	}
	close(ready)
	wg.Wait()

	comparisons, err := s.ListComparisons(ctx)
	if err != nil {
		t.Fatalf("list comparisons: %v", err)
	}
	if len(comparisons)+conflicts != 2 {
		t.Fatalf("expected every unit of work to either commit or conflict, got %d commits and %d conflicts", len(comparisons), conflicts)
	}
}

func TestStoreResume(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()

	if _, err := s.LatestResume(ctx); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.SaveResume(ctx, "Go engineer, 10 years"); err != nil {
		t.Fatalf("save resume: %v", err)
	}
	r, err := s.LatestResume(ctx)
	if err != nil || r.RawText != "Go engineer, 10 years" {
		t.Fatalf("unexpected resume %+v err=%v", r, err)
	}
}

func TestStoreSaveAnalysesIsAllOrNothing(t *testing.T) {
	s := startStore(t)
	ctx := context.Background()

	a := insertJob(t, s, "A")
	score := 81
	a.Score = &score
	a.Guidance = "Use the backend resume. It compares well. Downside: on-call."
	a.RecommendedResume = "backend"
	a.Requirements = &jobs.Requirements{Expertise: "Go"}

	missing := &jobs.Job{ID: uuid.New(), Score: &score}
	if err := s.SaveAnalyses(ctx, []*jobs.Job{a, missing}); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := s.GetJob(ctx, a.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Score != nil || got.Guidance != "" {
		t.Fatalf("expected no analysis after a failed batch, got %+v", got)
	}

	if err := s.SaveAnalyses(ctx, []*jobs.Job{a}); err != nil {
		t.Fatalf("save analyses: %v", err)
	}
	got, err = s.GetJob(ctx, a.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Score == nil || *got.Score != 81 || got.RecommendedResume != "backend" || got.Guidance != a.Guidance {
		t.Fatalf("unexpected stored analysis %+v", got)
	}
	if got.Requirements == nil || got.Requirements.Expertise != "Go" {
		t.Fatalf("unexpected stored requirements %+v", got.Requirements)
	}
}
