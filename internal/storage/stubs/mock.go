package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"moderation/internal/models"
	"moderation/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu     sync.RWMutex
	data   *dataset
	faults map[string]error // write method name ("" for all) -> injected error
}

type dataset struct {
	users       map[int64]models.User
	submissions map[int64]models.Submission
	media       map[int64]models.Media
	intake      map[int64]models.IntakeState
	nextSubID   int64
	nextMediaID int64
}

func newDataset() *dataset {
	return &dataset{
		users:       make(map[int64]models.User),
		submissions: make(map[int64]models.Submission),
		media:       make(map[int64]models.Media),
		intake:      make(map[int64]models.IntakeState),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.submissions {
		c.submissions[k] = v
	}
	for k, v := range d.media {
		c.media[k] = v
	}
	for k, v := range d.intake {
		c.intake[k] = v
	}
	c.nextSubID = d.nextSubID
	c.nextMediaID = d.nextMediaID
	return c
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{data: newDataset(), faults: make(map[string]error)}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// FailWrites makes the named write method (every write when op is empty) return err.
// A nil err removes the fault.
func (m *MockDB) FailWrites(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Update applies fn to a working copy and keeps it only if fn succeeds
func (m *MockDB) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.clone()
	if err := fn(&mockTx{d: work, faults: m.faults}); err != nil {
		return err
	}
	m.data = work
	return nil
}

func (m *MockDB) view() *mockTx {
	return &mockTx{d: m.data}
}

func (m *MockDB) GetUser(ctx context.Context, userID int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetUser(ctx, userID)
}

func (m *MockDB) GetSubmission(ctx context.Context, id int64) (models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetSubmission(ctx, id)
}

func (m *MockDB) GetActiveSubmission(ctx context.Context, userID int64) (models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetActiveSubmission(ctx, userID)
}

func (m *MockDB) GetLatestSubmission(ctx context.Context, userID int64) (models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetLatestSubmission(ctx, userID)
}

func (m *MockDB) ListUserSubmissions(ctx context.Context, userID int64, limit int) ([]models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListUserSubmissions(ctx, userID, limit)
}

func (m *MockDB) ListAwaitingModeration(ctx context.Context, limit int) ([]models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListAwaitingModeration(ctx, limit)
}

func (m *MockDB) ListMedia(ctx context.Context, submissionID int64) ([]models.Media, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListMedia(ctx, submissionID)
}

func (m *MockDB) CountMedia(ctx context.Context, submissionID int64) (models.MediaCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().CountMedia(ctx, submissionID)
}

func (m *MockDB) GetIntakeState(ctx context.Context, userID int64) (models.IntakeState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetIntakeState(ctx, userID)
}

// Stats returns the aggregate counts
func (m *MockDB) Stats(ctx context.Context) (models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := models.Stats{TotalUsers: len(m.data.users)}
	for _, u := range m.data.users {
		switch u.Status {
		case models.StatusApproved:
			stats.ApprovedUsers++
		case models.StatusBanned:
			stats.BannedUsers++
		}
	}
	for _, s := range m.data.submissions {
		switch s.Decision {
		case models.DecisionPending:
			stats.PendingSubmissions++
		case models.DecisionApproved:
			stats.ApprovedSubmissions++
		}
	}
	return stats, nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}

// mockTx operates on one dataset; reads through MockDB use it without faults
type mockTx struct {
	d      *dataset
	faults map[string]error
}

func (t *mockTx) fault(op string) error {
	if err, ok := t.faults[op]; ok {
		return err
	}
	return t.faults[""]
}

func (t *mockTx) GetUser(ctx context.Context, userID int64) (models.User, error) {
	u, ok := t.d.users[userID]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (t *mockTx) GetSubmission(ctx context.Context, id int64) (models.Submission, error) {
	s, ok := t.d.submissions[id]
	if !ok {
		return models.Submission{}, storage.ErrNotFound
	}
	return s, nil
}

// userSubmissions returns the user's submissions newest first
func (t *mockTx) userSubmissions(userID int64) []models.Submission {
	var subs []models.Submission
	for _, s := range t.d.submissions {
		if s.UserID == userID {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return subs[i].ID > subs[j].ID
	})
	return subs
}

func (t *mockTx) GetActiveSubmission(ctx context.Context, userID int64) (models.Submission, error) {
	for _, s := range t.userSubmissions(userID) {
		if s.Decision.IsActive() {
			return s, nil
		}
	}
	return models.Submission{}, storage.ErrNotFound
}

func (t *mockTx) GetLatestSubmission(ctx context.Context, userID int64) (models.Submission, error) {
	subs := t.userSubmissions(userID)
	if len(subs) == 0 {
		return models.Submission{}, storage.ErrNotFound
	}
	return subs[0], nil
}

func (t *mockTx) ListUserSubmissions(ctx context.Context, userID int64, limit int) ([]models.Submission, error) {
	subs := t.userSubmissions(userID)
	if limit > 0 && limit < len(subs) {
		subs = subs[:limit]
	}
	return subs, nil
}

func (t *mockTx) ListAwaitingModeration(ctx context.Context, limit int) ([]models.Submission, error) {
	var subs []models.Submission
	for _, s := range t.d.submissions {
		if s.Decision == models.DecisionPending && s.SubmittedAt != nil {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(*subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.Before(*subs[j].SubmittedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	if limit > 0 && limit < len(subs) {
		subs = subs[:limit]
	}
	return subs, nil
}

func (t *mockTx) ListMedia(ctx context.Context, submissionID int64) ([]models.Media, error) {
	var media []models.Media
	for _, m := range t.d.media {
		if m.SubmissionID == submissionID {
			media = append(media, m)
		}
	}
	sort.Slice(media, func(i, j int) bool { return media[i].ID < media[j].ID })
	return media, nil
}

func (t *mockTx) CountMedia(ctx context.Context, submissionID int64) (models.MediaCounts, error) {
	counts := models.MediaCounts{}
	for _, c := range models.MandatoryCategories {
		counts[c] = 0
	}
	for _, m := range t.d.media {
		if m.SubmissionID == submissionID {
			counts[m.Category]++
		}
	}
	return counts, nil
}

func (t *mockTx) GetIntakeState(ctx context.Context, userID int64) (models.IntakeState, error) {
	st, ok := t.d.intake[userID]
	if !ok {
		return models.IntakeState{}, storage.ErrNotFound
	}
	return st, nil
}

func (t *mockTx) UpsertUser(ctx context.Context, userID int64, profile models.Profile, now time.Time) (models.User, bool, error) {
	if err := t.fault("UpsertUser"); err != nil {
		return models.User{}, false, err
	}
	u, ok := t.d.users[userID]
	if !ok {
		u = models.User{
			ID:         userID,
			Profile:    profile,
			Status:     models.StatusPending,
			CreatedAt:  now,
			LastSeenAt: now,
		}
		t.d.users[userID] = u
		return u, true, nil
	}
	u.Profile = profile
	u.LastSeenAt = now
	t.d.users[userID] = u
	return u, false, nil
}

func (t *mockTx) SetUserStatus(ctx context.Context, userID int64, status models.AccountStatus, now time.Time) error {
	if err := t.fault("SetUserStatus"); err != nil {
		return err
	}
	u, ok := t.d.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.Status = status
	u.LastSeenAt = now
	t.d.users[userID] = u
	return nil
}

func (t *mockTx) CreateSubmission(ctx context.Context, sub models.Submission) (models.Submission, error) {
	if err := t.fault("CreateSubmission"); err != nil {
		return models.Submission{}, err
	}
	if sub.Decision == "" {
		sub.Decision = models.DecisionPending
	}
	t.d.nextSubID++
	sub.ID = t.d.nextSubID
	t.d.submissions[sub.ID] = sub
	return sub, nil
}

func (t *mockTx) MarkSubmitted(ctx context.Context, id int64, at time.Time) error {
	if err := t.fault("MarkSubmitted"); err != nil {
		return err
	}
	s, ok := t.d.submissions[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.Decision = models.DecisionPending
	s.SubmittedAt = &at
	t.d.submissions[id] = s
	return nil
}

func (t *mockTx) SetDecision(ctx context.Context, id int64, decision models.Decision, moderatorID int64, at time.Time) error {
	if err := t.fault("SetDecision"); err != nil {
		return err
	}
	s, ok := t.d.submissions[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.Decision = decision
	s.ModeratorID = moderatorID
	s.DecidedAt = &at
	t.d.submissions[id] = s
	return nil
}

func (t *mockTx) DeleteSubmission(ctx context.Context, id int64) error {
	if err := t.fault("DeleteSubmission"); err != nil {
		return err
	}
	if _, ok := t.d.submissions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(t.d.submissions, id)
	for mid, m := range t.d.media {
		if m.SubmissionID == id {
			delete(t.d.media, mid)
		}
	}
	for uid, st := range t.d.intake {
		if st.SubmissionID == id {
			delete(t.d.intake, uid)
		}
	}
	return nil
}

func (t *mockTx) AddMedia(ctx context.Context, media models.Media) (models.Media, error) {
	if err := t.fault("AddMedia"); err != nil {
		return models.Media{}, err
	}
	if _, ok := t.d.submissions[media.SubmissionID]; !ok {
		return models.Media{}, storage.ErrNotFound
	}
	t.d.nextMediaID++
	media.ID = t.d.nextMediaID
	t.d.media[media.ID] = media
	return media, nil
}

func (t *mockTx) SetIntakeState(ctx context.Context, state models.IntakeState) error {
	if err := t.fault("SetIntakeState"); err != nil {
		return err
	}
	t.d.intake[state.UserID] = state
	return nil
}

func (t *mockTx) ClearIntakeState(ctx context.Context, userID int64) error {
	if err := t.fault("ClearIntakeState"); err != nil {
		return err
	}
	delete(t.d.intake, userID)
	return nil
}

var (
	_ storage.Storage = (*MockDB)(nil)
	_ storage.Tx      = (*mockTx)(nil)
)
