package worker

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/analysis"
	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// In-memory store fakes backing the worker tests. They mirror the claim
// semantics of the real Postgres stores, including losing a claim race when
// the row is no longer queued.

type mockPendingStore struct {
	mu     sync.Mutex
	rows   map[int64]*domain.PendingMeal
	nextID int64

	claimResult *store.ClaimStatus // forced result, when set
}

var _ store.PendingMealStore = (*mockPendingStore)(nil)

func newMockPendingStore() *mockPendingStore {
	return &mockPendingStore{rows: make(map[int64]*domain.PendingMeal), nextID: 1}
}

func (m *mockPendingStore) Enqueue(_ context.Context, p *domain.PendingMeal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID
	m.nextID++
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockPendingStore) PeekOldest(_ context.Context, source domain.MealSource) (*domain.PendingMeal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.PendingMeal
	for _, p := range m.rows {
		if p.Source != source || p.Status != domain.JobStatusQueued {
			continue
		}
		if oldest == nil || p.CreatedAt.Before(oldest.CreatedAt) {
			oldest = p
		}
	}
	if oldest == nil {
		return nil, store.ErrPendingMealNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (m *mockPendingStore) Claim(_ context.Context, id int64) (store.ClaimStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimResult != nil {
		return *m.claimResult, nil
	}
	p, ok := m.rows[id]
	if !ok || p.Status != domain.JobStatusQueued {
		return store.ClaimLostRace, nil
	}
	p.Status = domain.JobStatusProcessing
	return store.ClaimWon, nil
}

func (m *mockPendingStore) Requeue(_ context.Context, id int64, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return store.ErrPendingMealNotFound
	}
	p.Status = domain.JobStatusQueued
	p.Attempts = attempts
	return nil
}

func (m *mockPendingStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrPendingMealNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockPendingStore) ResetProcessing(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.rows {
		if p.Status == domain.JobStatusProcessing {
			p.Status = domain.JobStatusQueued
			n++
		}
	}
	return n, nil
}

func (m *mockPendingStore) WithTx(*sql.Tx) store.PendingMealStore { return m }

func (m *mockPendingStore) get(id int64) *domain.PendingMeal {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

type mockClarificationStore struct {
	mu     sync.Mutex
	rows   map[int64]*domain.Clarification
	nextID int64
	meals  *mockMealStore // for source-filtered peeks
}

var _ store.ClarificationStore = (*mockClarificationStore)(nil)

func newMockClarificationStore(meals *mockMealStore) *mockClarificationStore {
	return &mockClarificationStore{rows: make(map[int64]*domain.Clarification), nextID: 1, meals: meals}
}

func (m *mockClarificationStore) Enqueue(_ context.Context, c *domain.Clarification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	m.nextID++
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *mockClarificationStore) PeekOldest(ctx context.Context, source domain.MealSource) (*domain.Clarification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.Clarification
	for _, c := range m.rows {
		if c.Status != domain.JobStatusQueued {
			continue
		}
		meal, err := m.meals.GetByID(ctx, c.OwnerID, c.MealID)
		if err != nil || meal.Source != source {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	if oldest == nil {
		return nil, store.ErrClarificationNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (m *mockClarificationStore) Claim(_ context.Context, id int64) (store.ClaimStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.Status != domain.JobStatusQueued {
		return store.ClaimLostRace, nil
	}
	c.Status = domain.JobStatusProcessing
	return store.ClaimWon, nil
}

func (m *mockClarificationStore) Requeue(_ context.Context, id int64, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return store.ErrClarificationNotFound
	}
	c.Status = domain.JobStatusQueued
	c.Attempts = attempts
	return nil
}

func (m *mockClarificationStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrClarificationNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockClarificationStore) ResetProcessing(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.rows {
		if c.Status == domain.JobStatusProcessing {
			c.Status = domain.JobStatusQueued
			n++
		}
	}
	return n, nil
}

func (m *mockClarificationStore) WithTx(*sql.Tx) store.ClarificationStore { return m }

func (m *mockClarificationStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type mockMealStore struct {
	mu     sync.Mutex
	rows   map[int64]*domain.Meal
	nextID int64
}

var _ store.MealStore = (*mockMealStore)(nil)

func newMockMealStore() *mockMealStore {
	return &mockMealStore{rows: make(map[int64]*domain.Meal), nextID: 1}
}

func (m *mockMealStore) Create(_ context.Context, meal *domain.Meal) error {
	if err := meal.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	meal.ID = m.nextID
	m.nextID++
	cp := *meal
	m.rows[meal.ID] = &cp
	return nil
}

func (m *mockMealStore) GetByID(_ context.Context, ownerID, id int64) (*domain.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meal, ok := m.rows[id]
	if !ok || meal.OwnerID != ownerID {
		return nil, store.ErrMealNotFound
	}
	cp := *meal
	return &cp, nil
}

func (m *mockMealStore) Update(_ context.Context, meal *domain.Meal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[meal.ID]; !ok {
		return store.ErrMealNotFound
	}
	cp := *meal
	m.rows[meal.ID] = &cp
	return nil
}

func (m *mockMealStore) Delete(_ context.Context, ownerID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meal, ok := m.rows[id]
	if !ok || meal.OwnerID != ownerID {
		return store.ErrMealNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockMealStore) ListBetween(_ context.Context, ownerID int64, from, to time.Time) ([]*domain.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if to.IsZero() {
		to = time.Now().UTC()
	}
	var out []*domain.Meal
	for _, meal := range m.rows {
		if meal.OwnerID != ownerID || meal.CreatedAt.Before(from) || meal.CreatedAt.After(to) {
			continue
		}
		cp := *meal
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockMealStore) SumCaloriesBetween(ctx context.Context, ownerID int64, from, to time.Time) (float64, error) {
	meals, err := m.ListBetween(ctx, ownerID, from, to)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, meal := range meals {
		total += meal.CaloriesKcal
	}
	return total, nil
}

func (m *mockMealStore) WithTx(*sql.Tx) store.MealStore { return m }

func (m *mockMealStore) all() []*domain.Meal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Meal, 0, len(m.rows))
	for _, meal := range m.rows {
		cp := *meal
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type mockReportStore struct {
	mu     sync.Mutex
	rows   map[int64]*domain.Report
	nextID int64
}

var _ store.ReportStore = (*mockReportStore)(nil)

func newMockReportStore() *mockReportStore {
	return &mockReportStore{rows: make(map[int64]*domain.Report), nextID: 1}
}

func (m *mockReportStore) Create(_ context.Context, r *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID
	m.nextID++
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *mockReportStore) GetByID(_ context.Context, ownerID, id int64) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.OwnerID != ownerID {
		return nil, store.ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockReportStore) List(_ context.Context, ownerID int64) ([]*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Report
	for _, r := range m.rows {
		if r.OwnerID != ownerID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockReportStore) FindProcessing(_ context.Context, ownerID int64, period domain.Period, startLocal time.Time) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.OwnerID == ownerID && r.Period == period && r.PeriodStartLocal.Equal(startLocal) && r.IsProcessing {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrReportNotFound
}

func (m *mockReportStore) FindLatestReady(_ context.Context, ownerID int64, period domain.Period, startLocal time.Time) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Report
	for _, r := range m.rows {
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

func (m *mockReportStore) ClaimNextProcessing(_ context.Context) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.Report
	for _, r := range m.rows {
		if !r.IsProcessing || r.Markdown != nil {
			continue
		}
		if oldest == nil || (r.ProcessingStartedAt != nil && oldest.ProcessingStartedAt != nil &&
			r.ProcessingStartedAt.Before(*oldest.ProcessingStartedAt)) {
			oldest = r
		}
	}
	if oldest == nil {
		return nil, store.ErrReportNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (m *mockReportStore) Complete(_ context.Context, r *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.ID]; !ok {
		return store.ErrReportNotFound
	}
	cp := *r
	cp.IsProcessing = false
	m.rows[r.ID] = &cp
	return nil
}

func (m *mockReportStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrReportNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockReportStore) DeleteStaleProcessing(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rows {
		if r.IsProcessing && r.ProcessingStartedAt != nil && r.ProcessingStartedAt.Before(cutoff) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *mockReportStore) DeleteAllProcessing(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rows {
		if r.IsProcessing {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *mockReportStore) WithTx(*sql.Tx) store.ReportStore { return m }

func (m *mockReportStore) get(id int64) *domain.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (m *mockReportStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type mockExportStore struct {
	mu     sync.Mutex
	rows   map[int64]*domain.ExportJob
	nextID int64
}

var _ store.ExportJobStore = (*mockExportStore)(nil)

func newMockExportStore() *mockExportStore {
	return &mockExportStore{rows: make(map[int64]*domain.ExportJob), nextID: 1}
}

func (m *mockExportStore) Enqueue(_ context.Context, j *domain.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = m.nextID
	m.nextID++
	cp := *j
	m.rows[j.ID] = &cp
	return nil
}

func (m *mockExportStore) GetByID(_ context.Context, ownerID, id int64) (*domain.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok || j.OwnerID != ownerID {
		return nil, store.ErrExportJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *mockExportStore) PeekOldestQueued(_ context.Context) (*domain.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.ExportJob
	for _, j := range m.rows {
		if j.Status != domain.ExportStatusQueued {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, store.ErrExportJobNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (m *mockExportStore) Claim(_ context.Context, id int64) (store.ClaimStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok || j.Status != domain.ExportStatusQueued {
		return store.ClaimLostRace, nil
	}
	j.Status = domain.ExportStatusInProgress
	return store.ClaimWon, nil
}

func (m *mockExportStore) Finish(_ context.Context, job *domain.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[job.ID]; !ok {
		return store.ErrExportJobNotFound
	}
	cp := *job
	m.rows[job.ID] = &cp
	return nil
}

func (m *mockExportStore) ResetInProgress(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, j := range m.rows {
		if j.Status == domain.ExportStatusInProgress {
			j.Status = domain.ExportStatusQueued
			n++
		}
	}
	return n, nil
}

func (m *mockExportStore) WithTx(*sql.Tx) store.ExportJobStore { return m }

func (m *mockExportStore) get(id int64) *domain.ExportJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// mockAnalyzer scripts the analysis collaborator.
type mockAnalyzer struct {
	mu         sync.Mutex
	result     *domain.MealAnalysis
	err        error
	photoCalls int
	textCalls  int
	snapCalls  int

	lastNote     string
	lastSnapshot string
}

func (m *mockAnalyzer) AnalyzePhoto(_ context.Context, _ []byte, _ string, note string) (*domain.MealAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photoCalls++
	m.lastNote = note
	return m.result, m.err
}

func (m *mockAnalyzer) AnalyzeText(_ context.Context, _ string) (*domain.MealAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textCalls++
	return m.result, m.err
}

func (m *mockAnalyzer) ClarifyFromSnapshot(_ context.Context, snapshot, note string) (*domain.MealAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapCalls++
	m.lastSnapshot = snapshot
	m.lastNote = note
	return m.result, m.err
}

// mockGenerator scripts the report content collaborator.
type mockGenerator struct {
	mu          sync.Mutex
	markdown    string
	err         error
	calls       int
	lastPayload analysis.ReportPayload
}

func (m *mockGenerator) GenerateReport(_ context.Context, payload analysis.ReportPayload) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPayload = payload
	if m.err != nil {
		return "", "", m.err
	}
	return m.markdown, `{"period":"` + string(payload.Period) + `"}`, nil
}

// mockNotifier records emitted events.
type mockNotifier struct {
	mu           sync.Mutex
	mealEvents   []mealEvent
	reportEvents []int64
	docEvents    []string
}

type mealEvent struct {
	ownerID           int64
	mealID            int64
	replacedPendingID int64
}

func (m *mockNotifier) MealUpdated(_ context.Context, ownerID int64, meal *domain.Meal, replacedPendingID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mealEvents = append(m.mealEvents, mealEvent{ownerID: ownerID, mealID: meal.ID, replacedPendingID: replacedPendingID})
}

func (m *mockNotifier) ReportReady(_ context.Context, _ int64, report *domain.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reportEvents = append(m.reportEvents, report.ID)
}

func (m *mockNotifier) DocumentReady(_ context.Context, _ int64, _ *domain.ExportJob, filePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docEvents = append(m.docEvents, filePath)
}
