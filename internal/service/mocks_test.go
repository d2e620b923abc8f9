package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingWaker records how often a loop would have been nudged.
type countingWaker struct {
	wakes atomic.Int64
}

func (w *countingWaker) Wake() { w.wakes.Add(1) }

// Request-path fakes. Only the methods the services reach are meaningful;
// the rest keep the interfaces satisfied with their zero behavior.

type fakeMealStore struct {
	rows     map[int64]*domain.Meal
	nextID   int64
	sumCalls int
}

var _ store.MealStore = (*fakeMealStore)(nil)

func newFakeMealStore() *fakeMealStore {
	return &fakeMealStore{rows: make(map[int64]*domain.Meal), nextID: 1}
}

func (f *fakeMealStore) Create(_ context.Context, meal *domain.Meal) error {
	meal.ID = f.nextID
	f.nextID++
	cp := *meal
	f.rows[meal.ID] = &cp
	return nil
}

func (f *fakeMealStore) GetByID(_ context.Context, ownerID, id int64) (*domain.Meal, error) {
	meal, ok := f.rows[id]
	if !ok || meal.OwnerID != ownerID {
		return nil, store.ErrMealNotFound
	}
	cp := *meal
	return &cp, nil
}

func (f *fakeMealStore) Update(_ context.Context, meal *domain.Meal) error {
	if _, ok := f.rows[meal.ID]; !ok {
		return store.ErrMealNotFound
	}
	cp := *meal
	f.rows[meal.ID] = &cp
	return nil
}

func (f *fakeMealStore) Delete(_ context.Context, ownerID, id int64) error {
	meal, ok := f.rows[id]
	if !ok || meal.OwnerID != ownerID {
		return store.ErrMealNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeMealStore) ListBetween(_ context.Context, ownerID int64, from, to time.Time) ([]*domain.Meal, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	var out []*domain.Meal
	for _, meal := range f.rows {
		if meal.OwnerID != ownerID || meal.CreatedAt.Before(from) || meal.CreatedAt.After(to) {
			continue
		}
		cp := *meal
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMealStore) SumCaloriesBetween(ctx context.Context, ownerID int64, from, to time.Time) (float64, error) {
	f.sumCalls++
	meals, err := f.ListBetween(ctx, ownerID, from, to)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, meal := range meals {
		total += meal.CaloriesKcal
	}
	return total, nil
}

func (f *fakeMealStore) WithTx(*sql.Tx) store.MealStore { return f }

type fakePendingStore struct {
	rows   []*domain.PendingMeal
	nextID int64
}

var _ store.PendingMealStore = (*fakePendingStore)(nil)

func newFakePendingStore() *fakePendingStore { return &fakePendingStore{nextID: 1} }

func (f *fakePendingStore) Enqueue(_ context.Context, p *domain.PendingMeal) error {
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakePendingStore) PeekOldest(context.Context, domain.MealSource) (*domain.PendingMeal, error) {
	return nil, store.ErrPendingMealNotFound
}

func (f *fakePendingStore) Claim(context.Context, int64) (store.ClaimStatus, error) {
	return store.ClaimNoneAvailable, nil
}

func (f *fakePendingStore) Requeue(context.Context, int64, int) error { return nil }
func (f *fakePendingStore) Delete(context.Context, int64) error      { return nil }
func (f *fakePendingStore) ResetProcessing(context.Context) (int64, error) {
	return 0, nil
}
func (f *fakePendingStore) WithTx(*sql.Tx) store.PendingMealStore { return f }

type fakeClarificationStore struct {
	rows   []*domain.Clarification
	nextID int64
}

var _ store.ClarificationStore = (*fakeClarificationStore)(nil)

func newFakeClarificationStore() *fakeClarificationStore { return &fakeClarificationStore{nextID: 1} }

func (f *fakeClarificationStore) Enqueue(_ context.Context, c *domain.Clarification) error {
	c.ID = f.nextID
	f.nextID++
	cp := *c
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeClarificationStore) PeekOldest(context.Context, domain.MealSource) (*domain.Clarification, error) {
	return nil, store.ErrClarificationNotFound
}

func (f *fakeClarificationStore) Claim(context.Context, int64) (store.ClaimStatus, error) {
	return store.ClaimNoneAvailable, nil
}

func (f *fakeClarificationStore) Requeue(context.Context, int64, int) error { return nil }
func (f *fakeClarificationStore) Delete(context.Context, int64) error       { return nil }
func (f *fakeClarificationStore) ResetProcessing(context.Context) (int64, error) {
	return 0, nil
}
func (f *fakeClarificationStore) WithTx(*sql.Tx) store.ClarificationStore { return f }

type fakeReportStore struct {
	rows   map[int64]*domain.Report
	nextID int64
}

var _ store.ReportStore = (*fakeReportStore)(nil)

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{rows: make(map[int64]*domain.Report), nextID: 1}
}

func (f *fakeReportStore) Create(_ context.Context, r *domain.Report) error {
	r.ID = f.nextID
	f.nextID++
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeReportStore) GetByID(_ context.Context, ownerID, id int64) (*domain.Report, error) {
	r, ok := f.rows[id]
	if !ok || r.OwnerID != ownerID {
		return nil, store.ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReportStore) List(_ context.Context, ownerID int64) ([]*domain.Report, error) {
	var out []*domain.Report
	for _, r := range f.rows {
		if r.OwnerID != ownerID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReportStore) FindProcessing(_ context.Context, ownerID int64, period domain.Period, startLocal time.Time) (*domain.Report, error) {
	for _, r := range f.rows {
		if r.OwnerID == ownerID && r.Period == period && r.PeriodStartLocal.Equal(startLocal) && r.IsProcessing {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrReportNotFound
}

func (f *fakeReportStore) FindLatestReady(_ context.Context, ownerID int64, period domain.Period, startLocal time.Time) (*domain.Report, error) {
	var latest *domain.Report
	for _, r := range f.rows {
		if r.OwnerID != ownerID || r.Period != period || !r.PeriodStartLocal.Equal(startLocal) || r.IsProcessing {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, store.ErrReportNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeReportStore) ClaimNextProcessing(context.Context) (*domain.Report, error) {
	return nil, store.ErrReportNotFound
}

func (f *fakeReportStore) Complete(_ context.Context, r *domain.Report) error {
	cp := *r
	cp.IsProcessing = false
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeReportStore) Delete(_ context.Context, id int64) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeReportStore) DeleteStaleProcessing(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeReportStore) DeleteAllProcessing(context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeReportStore) WithTx(*sql.Tx) store.ReportStore { return f }

// complete marks a processing row finished with the given checksum, the way
// the generation worker would.
func (f *fakeReportStore) complete(id int64, markdown string, checksum int64) {
	r := f.rows[id]
	r.Markdown = &markdown
	r.CaloriesChecksum = checksum
	r.IsProcessing = false
}

type fakeExportStore struct {
	rows   map[int64]*domain.ExportJob
	nextID int64
}

var _ store.ExportJobStore = (*fakeExportStore)(nil)

func newFakeExportStore() *fakeExportStore {
	return &fakeExportStore{rows: make(map[int64]*domain.ExportJob), nextID: 1}
}

func (f *fakeExportStore) Enqueue(_ context.Context, j *domain.ExportJob) error {
	j.ID = f.nextID
	f.nextID++
	cp := *j
	f.rows[j.ID] = &cp
	return nil
}

func (f *fakeExportStore) GetByID(_ context.Context, ownerID, id int64) (*domain.ExportJob, error) {
	j, ok := f.rows[id]
	if !ok || j.OwnerID != ownerID {
		return nil, store.ErrExportJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeExportStore) PeekOldestQueued(context.Context) (*domain.ExportJob, error) {
	return nil, store.ErrExportJobNotFound
}

func (f *fakeExportStore) Claim(context.Context, int64) (store.ClaimStatus, error) {
	return store.ClaimNoneAvailable, nil
}

func (f *fakeExportStore) Finish(context.Context, *domain.ExportJob) error { return nil }
func (f *fakeExportStore) ResetInProgress(context.Context) (int64, error) {
	return 0, nil
}
func (f *fakeExportStore) WithTx(*sql.Tx) store.ExportJobStore { return f }
