// Package diagnosis turns classifier output into stored diagnosis records
// and serves a user's diagnosis history.
package diagnosis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/mediscan/internal/account"
	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/datastore"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/events"
	"github.com/tphakala/mediscan/internal/imagestore"
	"github.com/tphakala/mediscan/internal/knowledge"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability/metrics"
	"github.com/tphakala/mediscan/internal/resolver"
)

// Sentinel errors. Classification failures are reported with
// classifier.ErrClassificationFailed.
var (
	ErrPersistence    = errors.NewStd("failed to persist diagnosis")
	ErrNoSession      = errors.NewStd("no active session")
	ErrRecordNotFound = errors.NewStd("diagnosis record not found")
)

// DefaultStagingTTL is used when Config.StagingTTL is zero.
const DefaultStagingTTL = 15 * time.Minute

// Config holds service settings.
type Config struct {
	StagingTTL time.Duration // how long a classified upload is kept for a retry
	Source     string        // instance name put on published events
}

// Deps are the collaborators of the service. Publisher and Metrics are
// optional.
type Deps struct {
	Store      datastore.Interface
	Classifier classifier.Classifier
	Images     imagestore.Store
	Resolver   *resolver.Resolver
	Publisher  events.Publisher
	Metrics    *metrics.DiagnosisMetrics
}

// stagedResult is a classified and stored upload waiting for a durable
// record.
type stagedResult struct {
	Output   classifier.Output
	ImageRef string

	consumed atomic.Bool // set once the record is durable; removal is not an eviction
}

// Service is the diagnosis record service. It is safe for concurrent use.
type Service struct {
	store      datastore.Interface
	classifier classifier.Classifier
	images     imagestore.Store
	resolver   *resolver.Resolver
	publisher  events.Publisher
	metrics    *metrics.DiagnosisMetrics
	source     string

	staging *cache.Cache
	log     logger.Logger
	now     func() time.Time
}

// GetLogger returns the diagnosis module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("diagnosis")
}

// New creates a Service. Store and Resolver are required; Classifier and
// Images are only needed by Analyze.
func New(deps Deps, cfg Config) (*Service, error) {
	if deps.Store == nil || deps.Resolver == nil {
		return nil, errors.Newf("diagnosis service requires a datastore and a resolver").
			Component("diagnosis").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	ttl := cfg.StagingTTL
	if ttl <= 0 {
		ttl = DefaultStagingTTL
	}

	s := &Service{
		store:      deps.Store,
		classifier: deps.Classifier,
		images:     deps.Images,
		resolver:   deps.Resolver,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		source:     cfg.Source,
		staging:    cache.New(ttl, 2*ttl),
		log:        GetLogger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.staging.OnEvicted(func(_ string, v any) {
		if staged, ok := v.(*stagedResult); ok && staged.consumed.Load() {
			return
		}
		s.recordStaging(metrics.OpStagingEvicted)
	})
	return s, nil
}

// SubmitAnalysis builds a diagnosis record from classifier output and
// stores it for the session's user. The record is returned only once it is
// durable; nothing is written when ctx ends before the commit.
func (s *Service) SubmitAnalysis(ctx context.Context, sess *account.Session, organ knowledge.OrganType, imageRef string, out classifier.Output) (*datastore.DiagnosisRecord, error) {
	if err := requireSession(sess, "submit_analysis"); err != nil {
		return nil, err
	}
	if _, err := knowledge.Records(organ); err != nil {
		return nil, err
	}
	if classifier.IsNil(out) || out.Organ() != organ {
		return nil, s.failAnalysis(organ, mismatchError(organ, out))
	}

	confidence := classifier.NormalizeConfidence(out)
	label := out.PredictedLabel()
	resolution, err := s.resolver.Resolve(organ, label)
	if err != nil {
		return nil, err
	}
	guidance := resolution.Record.Clone()

	rec := &datastore.DiagnosisRecord{
		ID:          uuid.NewString(),
		UserID:      sess.User.ID,
		OrganType:   organ.String(),
		ImageRef:    imageRef,
		DiseaseName: guidance.DiseaseName,
		RawLabel:    label,
		Matched:     resolution.Matched,
		Confidence:  confidence,
		Causes:      nonNil(guidance.Causes),
		Precautions: nonNil(guidance.Precautions),
		Remedies:    nonNil(guidance.Remedies),
		FoodHabits:  nonNil(guidance.FoodHabits),
		Medicines:   nonNil(guidance.Medicines),
		CreatedAt:   s.now(),
	}

	if err := s.store.AppendDiagnosis(ctx, rec); err != nil {
		return nil, s.failAnalysis(organ, errors.New(fmt.Errorf("%w: %w", ErrPersistence, err)).
			Component("diagnosis").
			Category(errors.CategoryPersistence).
			Context("operation", "submit_analysis").
			Context("organ", organ.String()).
			Build())
	}

	if s.metrics != nil {
		s.metrics.RecordAnalysis(organ.String(), metrics.StatusSuccess, rec.Confidence, rec.Matched)
	}
	if !resolution.Matched {
		s.log.Info("classifier label matched no rule",
			logger.String("organ", organ.String()),
			logger.String("label", label))
	}
	s.log.Info("diagnosis stored",
		logger.String("record_id", rec.ID),
		logger.String("organ", rec.OrganType),
		logger.String("disease", rec.DiseaseName),
		logger.Int("confidence", rec.Confidence))

	s.publish(ctx, rec)
	return rec, nil
}

// Analyze classifies img, stores it and records the diagnosis. A retry with
// the same image after a persistence failure reuses the staged classifier
// result instead of querying the service again.
func (s *Service) Analyze(ctx context.Context, sess *account.Session, organ knowledge.OrganType, img classifier.Image) (*datastore.DiagnosisRecord, error) {
	if err := requireSession(sess, "analyze"); err != nil {
		return nil, err
	}
	if s.classifier == nil || s.images == nil {
		return nil, errors.Newf("analyze requires a classifier and an image store").
			Component("diagnosis").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if _, err := knowledge.Records(organ); err != nil {
		return nil, err
	}
	if err := imagestore.Validate(img, 0); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordImageSize(organ.String(), len(img.Data))
	}

	key := stagingKey(sess.User.ID, organ, img.Data)
	staged, err := s.stage(ctx, key, organ, img)
	if err != nil {
		return nil, err
	}

	rec, err := s.SubmitAnalysis(ctx, sess, organ, staged.ImageRef, staged.Output)
	if err != nil {
		return nil, err
	}
	staged.consumed.Store(true)
	s.staging.Delete(key)
	return rec, nil
}

// stage returns the staged result for key, classifying and storing the
// image on a miss.
func (s *Service) stage(ctx context.Context, key string, organ knowledge.OrganType, img classifier.Image) (*stagedResult, error) {
	if v, ok := s.staging.Get(key); ok {
		if staged, ok := v.(*stagedResult); ok {
			s.recordStaging(metrics.OpStagingHit)
			s.log.Debug("reusing staged classification", logger.String("organ", organ.String()))
			return staged, nil
		}
	}
	s.recordStaging(metrics.OpStagingMiss)

	started := time.Now()
	out, err := s.classifier.Classify(ctx, organ, img)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	if s.metrics != nil {
		s.metrics.RecordClassification(organ.String(), status, time.Since(started).Seconds())
	}
	if err != nil {
		if !errors.Is(err, classifier.ErrClassificationFailed) {
			err = errors.New(fmt.Errorf("%w: %w", classifier.ErrClassificationFailed, err)).
				Component("diagnosis").
				Category(errors.CategoryClassification).
				Context("organ", organ.String()).
				Build()
		}
		return nil, s.failAnalysis(organ, err)
	}

	ref, err := s.images.Put(ctx, organ, img)
	if err != nil {
		return nil, s.failAnalysis(organ, err)
	}

	staged := &stagedResult{Output: out, ImageRef: ref}
	s.staging.SetDefault(key, staged)
	s.recordStaging(metrics.OpStagingStore)
	return staged, nil
}

// History returns the user's records newest first, or an empty slice.
func (s *Service) History(ctx context.Context, userID string) ([]datastore.DiagnosisRecord, error) {
	records, err := s.store.ListDiagnoses(ctx, userID)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrPersistence, err)).
			Component("diagnosis").
			Category(errors.CategoryPersistence).
			Context("operation", "history").
			Build()
	}
	if records == nil {
		records = []datastore.DiagnosisRecord{}
	}
	return records, nil
}

// Get returns one of the user's records.
func (s *Service) Get(ctx context.Context, userID, recordID string) (*datastore.DiagnosisRecord, error) {
	rec, err := s.store.GetDiagnosis(ctx, userID, recordID)
	if err == nil {
		return rec, nil
	}
	if errors.IsNotFound(err) {
		return nil, errors.New(fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)).
			Component("diagnosis").
			Category(errors.CategoryNotFound).
			Context("operation", "get").
			Build()
	}
	return nil, errors.New(fmt.Errorf("%w: %w", ErrPersistence, err)).
		Component("diagnosis").
		Category(errors.CategoryPersistence).
		Context("operation", "get").
		Build()
}

// Close drops staged results.
func (s *Service) Close() {
	s.staging.Flush()
}

// publish sends the created event. The record is already durable, so
// failures are only logged.
func (s *Service) publish(ctx context.Context, rec *datastore.DiagnosisRecord) {
	event := events.NewDiagnosisEvent(rec, s.source)
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn("failed to publish diagnosis event",
			logger.String("record_id", rec.ID),
			logger.Error(err))
	}
}

func (s *Service) failAnalysis(organ knowledge.OrganType, err error) error {
	if s.metrics != nil {
		s.metrics.RecordAnalysis(organ.String(), metrics.StatusError, 0, false)
	}
	s.log.Warn("analysis failed", logger.String("organ", organ.String()), logger.Error(err))
	return err
}

func (s *Service) recordStaging(result string) {
	if s.metrics != nil {
		s.metrics.RecordStaging(result)
	}
}

func requireSession(sess *account.Session, operation string) error {
	if sess == nil || sess.User == nil {
		return errors.New(ErrNoSession).
			Component("diagnosis").
			Category(errors.CategoryAuthentication).
			Context("operation", operation).
			Build()
	}
	return nil
}

func mismatchError(organ knowledge.OrganType, out classifier.Output) error {
	got := "none"
	if !classifier.IsNil(out) {
		got = out.Organ().String()
	}
	return errors.New(fmt.Errorf("%w: output for %s submitted as %s", classifier.ErrClassificationFailed, got, organ)).
		Component("diagnosis").
		Category(errors.CategoryClassification).
		Build()
}

// stagingKey identifies an upload by user, organ and image content.
func stagingKey(userID string, organ knowledge.OrganType, data []byte) string {
	sum := sha256.Sum256(data)
	return userID + ":" + organ.String() + ":" + hex.EncodeToString(sum[:])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
