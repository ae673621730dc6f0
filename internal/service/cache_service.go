package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

const (
	studentListKeyPrefix = "students:list:"
	// studentListGenKey sits outside the list prefix so pattern deletes
	// never reset it.
	studentListGenKey = "students:list-gen"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService caches read projections and records cache metrics. A nil or
// disabled service behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// StudentListGeneration returns the current list generation. Readers must
// take it before loading from the store and key their entry with it, so a
// list read before a concurrent commit lands under a generation nobody asks
// for again.
func (s *CacheService) StudentListGeneration(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	gen, err := s.repo.Counter(ctx, studentListGenKey)
	if err != nil {
		s.logger.Warn("cache generation read failed", zap.Error(err))
		return 0, err
	}
	return gen, nil
}

// InvalidateStudentLists moves student lists to a new generation and drops
// the old entries. Failures are logged and otherwise ignored since entries
// expire on their own.
func (s *CacheService) InvalidateStudentLists(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if _, err := s.repo.Incr(ctx, studentListGenKey); err != nil {
		s.logger.Warn("cache generation bump failed", zap.Error(err))
	}
	_ = s.Invalidate(ctx, studentListKeyPrefix+"*")
}

// StudentListKey derives the cache key for a list filter within a generation.
func StudentListKey(gen int64, filter models.StudentFilter) string {
	values := url.Values{}
	if filter.EnrolledIn != nil {
		values.Set("enrolled", *filter.EnrolledIn)
	}
	if filter.NumberOfCourses != nil {
		values.Set("number", strconv.Itoa(*filter.NumberOfCourses))
	}
	prefix := studentListKeyPrefix + strconv.FormatInt(gen, 10) + ":"
	if len(values) == 0 {
		return prefix + "all"
	}
	return prefix + values.Encode()
}
