package datastore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/observability/metrics"
)

func newTestSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "mediscan.db")
	return settings
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := &SQLiteStore{Settings: newTestSettings(t)}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestUser(t *testing.T, store Interface, email string) *User {
	t.Helper()
	user := &User{
		ID:           uuid.NewString(),
		FullName:     "Test User",
		Email:        email,
		PasswordHash: "$2a$04$placeholder",
		JoinedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(t.Context(), user))
	return user
}

func newRecord(userID string, created time.Time) *DiagnosisRecord {
	return &DiagnosisRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		OrganType:   "brain",
		ImageRef:    "data:image/png;base64,AAAA",
		DiseaseName: "Glioma Tumor",
		RawLabel:    "glioma",
		Matched:     true,
		Confidence:  92,
		Causes:      []string{"a", "b"},
		Precautions: []string{"c"},
		Remedies:    []string{},
		FoodHabits:  []string{"d"},
		Medicines:   []string{"e"},
		CreatedAt:   created.UTC(),
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	_, err := New(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	settings.Output.SQLite.Enabled = true
	store, err := New(settings)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)

	settings.Output.SQLite.Enabled = false
	settings.Output.MySQL.Enabled = true
	store, err = New(settings)
	require.NoError(t, err)
	assert.IsType(t, &MySQLStore{}, store)
}

func TestUsers(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	user := createTestUser(t, store, "ada@example.com")

	got, err := store.GetUserByEmail(t.Context(), "  ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Test User", got.FullName)

	got, err = store.GetUserByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = store.GetUserByEmail(t.Context(), "nobody@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	original := createTestUser(t, store, "dup@example.com")
	err := store.CreateUser(t.Context(), &User{
		ID: uuid.NewString(), FullName: "Other", Email: "dup@example.com",
		PasswordHash: "x", JoinedAt: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	got, err := store.GetUserByEmail(t.Context(), "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, "Test User", got.FullName)
}

func TestSessions(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	user := createTestUser(t, store, "s@example.com")
	now := time.Now().UTC()

	live := &Session{ID: uuid.NewString(), UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &Session{ID: uuid.NewString(), UserID: user.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, store.CreateSession(t.Context(), live))
	require.NoError(t, store.CreateSession(t.Context(), stale))

	got, err := store.GetSession(t.Context(), live.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, user.Email, got.User.Email)
	assert.False(t, got.Expired(now))

	purged, err := store.PurgeExpiredSessions(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = store.GetSession(t.Context(), stale.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.DeleteSession(t.Context(), live.ID))
	require.NoError(t, store.DeleteSession(t.Context(), live.ID), "deleting twice is not an error")
	_, err = store.GetSession(t.Context(), live.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAppendDiagnosisAndHistoryOrder(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := newRecord(alice.ID, base)
	second := newRecord(alice.ID, base.Add(time.Minute))
	tieA := newRecord(alice.ID, base.Add(2*time.Minute))
	tieB := newRecord(alice.ID, base.Add(2*time.Minute))
	tieA.ID, tieB.ID = "00000000-0000-0000-0000-00000000000a", "00000000-0000-0000-0000-00000000000b"

	for _, rec := range []*DiagnosisRecord{first, second, tieA, tieB} {
		require.NoError(t, store.AppendDiagnosis(t.Context(), rec))
	}
	require.NoError(t, store.AppendDiagnosis(t.Context(), newRecord(bob.ID, base)))

	history, err := store.ListDiagnoses(t.Context(), alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, []string{tieB.ID, tieA.ID, second.ID, first.ID},
		[]string{history[0].ID, history[1].ID, history[2].ID, history[3].ID})

	assert.Equal(t, []string{"a", "b"}, []string(history[3].Causes))
	assert.Equal(t, 92, history[3].Confidence)
	assert.True(t, history[3].Matched)
	assert.True(t, history[3].CreatedAt.Equal(base))
}

func TestListDiagnosesEmpty(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	user := createTestUser(t, store, "empty@example.com")

	history, err := store.ListDiagnoses(t.Context(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestAppendDiagnosisUnknownUser(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	err := store.AppendDiagnosis(t.Context(), newRecord(uuid.NewString(), time.Now()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserMissing))

	var count int64
	require.NoError(t, store.DB.Model(&DiagnosisRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAppendDiagnosisCancelledWritesNothing(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	user := createTestUser(t, store, "cancel@example.com")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := store.AppendDiagnosis(ctx, newRecord(user.ID, time.Now()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	history, err := store.ListDiagnoses(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGetDiagnosisOwnership(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	owner := createTestUser(t, store, "owner@example.com")
	other := createTestUser(t, store, "other@example.com")

	rec := newRecord(owner.ID, time.Now())
	require.NoError(t, store.AppendDiagnosis(t.Context(), rec))

	got, err := store.GetDiagnosis(t.Context(), owner.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.DiseaseName, got.DiseaseName)

	_, err = store.GetDiagnosis(t.Context(), other.ID, rec.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConcurrentAppends(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	user := createTestUser(t, store, "busy@example.com")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.AppendDiagnosis(context.Background(), newRecord(user.ID, time.Now().Add(time.Duration(i)*time.Millisecond)))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	history, err := store.ListDiagnoses(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Len(t, history, n)
}

func TestOpenUncreatableDirectory(t *testing.T) {
	t.Parallel()
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	settings := newTestSettings(t)
	settings.Output.SQLite.Path = filepath.Join(blocker, "db", "mediscan.db")

	err := (&SQLiteStore{Settings: settings}).Open()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	var enhanced *errors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.Equal(t, filepath.Join(blocker, "db"), enhanced.GetContext()["path"])
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()
	settings := newTestSettings(t)

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	user := createTestUser(t, store, "persist@example.com")
	require.NoError(t, store.AppendDiagnosis(t.Context(), newRecord(user.ID, time.Now())))
	require.NoError(t, store.Close())

	reopened := &SQLiteStore{Settings: settings}
	require.NoError(t, reopened.Open())
	t.Cleanup(func() { _ = reopened.Close() })

	history, err := reopened.ListDiagnoses(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	require.NoError(t, reopened.Ping(t.Context()))
}

func TestMetricsRecorded(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewDatastoreMetrics(registry)
	require.NoError(t, err)
	store.SetMetrics(m)

	user := createTestUser(t, store, "metrics@example.com")
	require.NoError(t, store.AppendDiagnosis(t.Context(), newRecord(user.ID, time.Now())))
	_ = store.AppendDiagnosis(t.Context(), newRecord("missing", time.Now()))
	store.RefreshConnectionStats()

	count, err := testutil.GatherAndCount(registry, "datastore_transactions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "committed and rollback series")

	count, err = testutil.GatherAndCount(registry, "datastore_operation_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClosedStore(t *testing.T) {
	t.Parallel()

	var store DataStore
	_, err := store.ListDiagnoses(t.Context(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
	assert.Error(t, store.Ping(t.Context()))
	assert.Error(t, store.closeDB("sqlite"))
}
