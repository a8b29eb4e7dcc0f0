package scan

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/parthdesai/CrossArb/internal/alloc"
	"github.com/parthdesai/CrossArb/internal/cache"
	sqlstore "github.com/parthdesai/CrossArb/internal/storage/sqlite"
)

type fakeOppCache struct {
	records map[string]cache.OpportunityRecord
	sets    int
}

func (f *fakeOppCache) Get(_ context.Context, pairID string) (*cache.OpportunityRecord, bool, error) {
	rec, ok := f.records[pairID]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (f *fakeOppCache) Set(_ context.Context, pairID string, record cache.OpportunityRecord) error {
	if f.records == nil {
		f.records = make(map[string]cache.OpportunityRecord)
	}
	f.records[pairID] = record
	f.sets++
	return nil
}

func (f *fakeOppCache) Close() error { return nil }

func TestRecordOpportunities(t *testing.T) {
	result := Run(context.Background(), fixtureInputs(), Options{Alloc: alloc.Config{TotalCapital: 300}})

	fake := &fakeOppCache{}
	RecordOpportunities(context.Background(), fake, result)

	if len(fake.records) != 3 {
		t.Fatalf("records = %d, want 3", len(fake.records))
	}
	for pairID, rec := range fake.records {
		if rec.RunID != result.RunID {
			t.Errorf("record %s RunID = %s, want %s", pairID, rec.RunID, result.RunID)
		}
		if rec.Direction == "" || rec.ROIPercent <= 0 {
			t.Errorf("record %s = %+v, want a direction and positive ROI", pairID, rec)
		}
		if rec.UpdatedAt.IsZero() {
			t.Errorf("record %s UpdatedAt is zero", pairID)
		}
	}

	// A repeat pass refreshes every record in place rather than growing.
	RecordOpportunities(context.Background(), fake, result)
	if len(fake.records) != 3 || fake.sets != 6 {
		t.Errorf("after repeat: records = %d, sets = %d, want 3 and 6", len(fake.records), fake.sets)
	}

	RecordOpportunities(context.Background(), nil, result)
}

func TestPersist(t *testing.T) {
	store, err := sqlstore.Open(filepath.Join(t.TempDir(), "scan.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(context.Background()); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}

	result := Run(context.Background(), fixtureInputs(), Options{Alloc: alloc.Config{TotalCapital: 300}})
	Persist(context.Background(), store, result)
	Persist(context.Background(), nil, result)
}
