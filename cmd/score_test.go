package cmd

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/jobrank/internal/ai"
	"github.com/spigell/jobrank/internal/jobs"
)

func TestApplyAssessments(t *testing.T) {
	first := &jobs.Job{ID: uuid.New(), Title: "first"}
	skipped := &jobs.Job{ID: uuid.New(), Title: "skipped"}
	second := &jobs.Job{ID: uuid.New(), Title: "second"}

	assessments := map[uuid.UUID]*ai.FitAssessment{
		second.ID: {Score: 40, Guidance: "g2"},
		first.ID:  {Score: 90, RecommendedResume: "backend"},
	}

	at := time.Now()
	analyzed := applyAssessments([]*jobs.Job{first, skipped, second}, assessments, at)

	if len(analyzed) != 2 || analyzed[0] != first || analyzed[1] != second {
		t.Fatalf("expected analyzed jobs in listing order, got %v", analyzed)
	}
	if *first.Score != 90 || first.RecommendedResume != "backend" || second.Guidance != "g2" {
		t.Fatalf("assessments not applied: %+v / %+v", first, second)
	}
	if skipped.IsAnalyzed() {
		t.Fatalf("job without an assessment must stay untouched")
	}
}
