package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeSet stores value and logs instead of failing the caller
func SafeSet(ctx context.Context, helper *CacheHelper, key string, value interface{}, config CacheConfig) {
	if err := helper.Set(ctx, key, value, config.TTL); err != nil {
		slog.ErrorContext(ctx, "Failed to populate cache",
			"error", err,
			"key", helper.GetCacheKey(key))
	}
}

// CourseKey is the cache key of a single course document
func CourseKey(courseID uint) string {
	return fmt.Sprintf("id:%d", courseID)
}

// InvalidateCourseCache drops the cached document of a course
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID uint) {
	SafeDelete(ctx, cm.Course, CourseKey(courseID))
}
