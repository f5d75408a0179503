// interfaces.go defines the datastore interface and its GORM implementation
package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability/metrics"
)

// Sentinel errors returned by every implementation.
var (
	ErrNotFound    = errors.NewStd("record not found")
	ErrDuplicate   = errors.NewStd("duplicate record")
	ErrUserMissing = errors.NewStd("user does not exist")
)

// Interface abstracts the database used for accounts, sessions and
// diagnoses. Implementations are safe for concurrent use.
type Interface interface {
	Open() error
	Close() error

	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// AppendDiagnosis inserts rec in a transaction that first checks the
	// owning user exists. A context cancelled before commit writes nothing.
	AppendDiagnosis(ctx context.Context, rec *DiagnosisRecord) error
	// ListDiagnoses returns the user's records newest first.
	ListDiagnoses(ctx context.Context, userID string) ([]DiagnosisRecord, error)
	GetDiagnosis(ctx context.Context, userID, id string) (*DiagnosisRecord, error)

	// Ping checks the connection, used by the health endpoint.
	Ping(ctx context.Context) error
}

// DataStore implements Interface on a GORM database.
type DataStore struct {
	DB      *gorm.DB
	metrics *metrics.DatastoreMetrics
}

// New returns the store selected in settings, unopened.
func New(settings *conf.Settings) (Interface, error) {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}, nil
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, errors.Newf("no datastore enabled, enable output.sqlite or output.mysql").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// SetMetrics attaches datastore metrics. A nil value disables recording.
func (ds *DataStore) SetMetrics(m *metrics.DatastoreMetrics) {
	ds.metrics = m
}

func (ds *DataStore) db(ctx context.Context) (*gorm.DB, error) {
	if ds.DB == nil {
		return nil, dbError(fmt.Errorf("database connection is not initialized"), "db", errors.PriorityHigh)
	}
	return ds.DB.WithContext(ctx), nil
}

// observe records an operation outcome in metrics when attached.
func (ds *DataStore) observe(op string, start time.Time, err error) {
	if ds.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = metrics.StatusError
		ds.metrics.RecordOperationError(op, errorType(err))
	}
	ds.metrics.RecordOperation(op, status, time.Since(start).Seconds())
}

// CreateUser inserts a user. A taken email yields ErrDuplicate.
func (ds *DataStore) CreateUser(ctx context.Context, user *User) (err error) {
	defer func(start time.Time) { ds.observe(metrics.OpUserCreate, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return dbError(fmt.Errorf("%w: email %s", ErrDuplicate, user.Email), "create_user", "")
		}
		return dbError(err, "create_user", errors.PriorityHigh)
	}
	return nil
}

// GetUserByEmail looks up a user by normalized email.
func (ds *DataStore) GetUserByEmail(ctx context.Context, email string) (_ *User, err error) {
	defer func(start time.Time) { ds.observe(metrics.OpUserGet, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var user User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "get_user_by_email")
	}
	return &user, nil
}

// GetUserByID looks up a user by id.
func (ds *DataStore) GetUserByID(ctx context.Context, id string) (_ *User, err error) {
	defer func(start time.Time) { ds.observe(metrics.OpUserGet, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "get_user_by_id")
	}
	return &user, nil
}

// CreateSession inserts a session row.
func (ds *DataStore) CreateSession(ctx context.Context, session *Session) (err error) {
	defer func(start time.Time) { ds.observe(metrics.OpSessionCreate, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Omit("User").Create(session).Error; err != nil {
		return dbError(err, "create_session", errors.PriorityMedium)
	}
	return nil
}

// GetSession returns a session with its user preloaded.
func (ds *DataStore) GetSession(ctx context.Context, id string) (_ *Session, err error) {
	defer func(start time.Time) { ds.observe(metrics.OpSessionGet, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var session Session
	if err := db.Preload("User").Where("id = ?", id).First(&session).Error; err != nil {
		return nil, notFoundOr(err, "get_session")
	}
	if session.User == nil {
		return nil, dbError(fmt.Errorf("%w: session %s has no user", ErrNotFound, id), "get_session", "")
	}
	return &session, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (ds *DataStore) DeleteSession(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { ds.observe(metrics.OpSessionDelete, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Where("id = ?", id).Delete(&Session{}).Error; err != nil {
		return dbError(err, "delete_session", errors.PriorityMedium)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions expired at now and returns the count.
func (ds *DataStore) PurgeExpiredSessions(ctx context.Context, now time.Time) (_ int64, err error) {
	defer func(start time.Time) { ds.observe(metrics.OpSessionPurge, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return 0, err
	}
	result := db.Where("expires_at <= ?", now.UTC()).Delete(&Session{})
	if result.Error != nil {
		return 0, dbError(result.Error, "purge_sessions", errors.PriorityLow)
	}
	return result.RowsAffected, nil
}

// AppendDiagnosis inserts rec after checking its user exists, in one
// transaction.
func (ds *DataStore) AppendDiagnosis(ctx context.Context, rec *DiagnosisRecord) (err error) {
	defer func(start time.Time) { ds.observe(metrics.OpDiagnosisSave, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("id = ?", rec.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrUserMissing, rec.UserID)
		}
		if err := tx.Omit("User").Create(rec).Error; err != nil {
			return err
		}
		// last chance to abandon before commit
		return ctx.Err()
	})

	ds.recordTransaction(ctx, err)
	if err != nil {
		return dbError(err, "append_diagnosis", errors.PriorityHigh,
			"user_id", rec.UserID,
			"organ", rec.OrganType)
	}
	return nil
}

func (ds *DataStore) recordTransaction(ctx context.Context, err error) {
	if ds.metrics == nil {
		return
	}
	switch {
	case err == nil:
		ds.metrics.RecordTransaction(metrics.OpTxCommitted)
	case ctx.Err() != nil:
		ds.metrics.RecordTransaction(metrics.OpTxCancelled)
	default:
		ds.metrics.RecordTransaction(metrics.OpTxRollback)
	}
}

// ListDiagnoses returns all records of userID, newest first with id as the
// tiebreak. No records yields an empty, non-nil slice.
func (ds *DataStore) ListDiagnoses(ctx context.Context, userID string) (_ []DiagnosisRecord, err error) {
	defer func(start time.Time) { ds.observe(metrics.OpDiagnosisList, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	records := []DiagnosisRecord{}
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, dbError(err, "list_diagnoses", errors.PriorityMedium, "user_id", userID)
	}
	if ds.metrics != nil {
		ds.metrics.RecordResultSize(metrics.OpDiagnosisList, len(records))
	}
	return records, nil
}

// GetDiagnosis returns one record owned by userID.
func (ds *DataStore) GetDiagnosis(ctx context.Context, userID, id string) (_ *DiagnosisRecord, err error) {
	defer func(start time.Time) { ds.observe(metrics.OpDiagnosisGet, start, err) }(time.Now())

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rec DiagnosisRecord
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&rec).Error; err != nil {
		return nil, notFoundOr(err, "get_diagnosis")
	}
	return &rec, nil
}

// Ping checks the database connection.
func (ds *DataStore) Ping(ctx context.Context) error {
	if ds.DB == nil {
		return dbError(fmt.Errorf("database connection is not initialized"), "ping", errors.PriorityHigh)
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "ping", errors.PriorityHigh)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping", errors.PriorityHigh)
	}
	return nil
}

// RefreshConnectionStats copies pool statistics into the metrics.
func (ds *DataStore) RefreshConnectionStats() {
	if ds.metrics == nil || ds.DB == nil {
		return
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	ds.metrics.UpdateConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

// closeDB closes the underlying connection pool.
func (ds *DataStore) closeDB(engine string) error {
	if ds.DB == nil {
		return dbError(fmt.Errorf("database connection is not initialized"), "close", errors.PriorityLow)
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", errors.PriorityMedium, "engine", engine)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", errors.PriorityMedium, "engine", engine)
	}
	GetLogger().Debug("database connection closed", logger.String("engine", engine))
	return nil
}
