package feed

import (
	"sync"
	"testing"

	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/stretchr/testify/assert"
)

func report(id string) models.Report {
	return models.Report{ID: id, Category: models.CategoryPatrol, Narrative: "n-" + id}
}

func ids(reports []models.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.ID)
	}
	return out
}

func TestApplySnapshot_FirstSnapshotIsAllNew(t *testing.T) {
	f := NewReportFeed()
	assert.False(t, f.Primed())

	fresh := f.ApplySnapshot([]models.Report{report("c"), report("a"), report("b")})

	assert.Equal(t, []string{"c", "a", "b"}, ids(fresh))
	assert.True(t, f.Primed())
	assert.Equal(t, 3, f.Len())
}

func TestApplySnapshot_ReturnsOnlyNewInInputOrder(t *testing.T) {
	f := NewReportFeed()
	f.ApplySnapshot([]models.Report{report("a"), report("b")})

	fresh := f.ApplySnapshot([]models.Report{report("d"), report("b"), report("c"), report("a")})

	assert.Equal(t, []string{"d", "c"}, ids(fresh))
}

func TestApplySnapshot_ContentDriftIsNotNew(t *testing.T) {
	f := NewReportFeed()
	f.ApplySnapshot([]models.Report{report("a")})

	edited := report("a")
	edited.Narrative = "edited"
	fresh := f.ApplySnapshot([]models.Report{edited})

	assert.Empty(t, fresh)
	assert.Equal(t, "edited", f.Reports()[0].Narrative)
}

func TestApplySnapshot_EmptyAndUnchanged(t *testing.T) {
	f := NewReportFeed()
	assert.Empty(t, f.ApplySnapshot(nil))

	f.ApplySnapshot([]models.Report{report("a")})
	assert.Empty(t, f.ApplySnapshot([]models.Report{report("a")}))
}

func TestApplySnapshot_DroppedThenReappearedIsNew(t *testing.T) {
	f := NewReportFeed()
	f.ApplySnapshot([]models.Report{report("a"), report("b")})
	f.ApplySnapshot([]models.Report{report("b")})

	fresh := f.ApplySnapshot([]models.Report{report("a"), report("b")})

	assert.Equal(t, []string{"a"}, ids(fresh))
}

func TestApplySnapshot_DuplicateIDsReturnedOnce(t *testing.T) {
	f := NewReportFeed()

	fresh := f.ApplySnapshot([]models.Report{report("a"), report("a"), report("b")})

	assert.Equal(t, []string{"a", "b"}, ids(fresh))
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []string{"a", "b"}, ids(f.Reports()))
}

func TestApplySnapshot_DuplicateIDsKeepFirstOccurrence(t *testing.T) {
	f := NewReportFeed()
	first := report("a")
	first.LocationLabel = "Canal St"
	second := report("a")
	second.LocationLabel = "Houston St"

	f.ApplySnapshot([]models.Report{first, second})

	stored := f.Reports()
	assert.Len(t, stored, f.Len())
	assert.Equal(t, "Canal St", stored[0].LocationLabel)
}

func TestReports_ReturnsCopy(t *testing.T) {
	f := NewReportFeed()
	f.ApplySnapshot([]models.Report{report("a")})

	got := f.Reports()
	got[0].ID = "mutated"

	assert.Equal(t, "a", f.Reports()[0].ID)
}

func TestApplySnapshot_ConcurrentReaders(t *testing.T) {
	f := NewReportFeed()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.ApplySnapshot([]models.Report{report("a"), report("b")})
		}()
		go func() {
			defer wg.Done()
			_ = f.Reports()
			_ = f.Len()
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, f.Len())
}
