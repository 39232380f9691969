package services

import (
	"context"
	"time"

	"goodlist/internal/logger"
	"goodlist/internal/models"
	"goodlist/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	feedCacheKey = "feed:recent"
	feedCacheTTL = time.Minute
)

// FeedService serves the public feed: recent posts of non-private accounts,
// excluding private lists.
type FeedService struct {
	db    *gorm.DB
	cache utils.Cache
	size  int
}

func NewFeedService(db *gorm.DB, cache utils.Cache, size int) *FeedService {
	return &FeedService{db: db, cache: cache, size: size}
}

func (s *FeedService) Recent(ctx context.Context) ([]PostView, error) {
	var cached []PostView
	if s.cache != nil && s.cache.Get(ctx, feedCacheKey, &cached) {
		return cached, nil
	}

	conn := s.db.WithContext(ctx)
	var posts []models.UserPost
	err := conn.Preload("User").
		Joins("LEFT JOIN users ON users.id = user_posts.user_id").
		Joins("LEFT JOIN user_lists ON user_lists.id = user_posts.list_id").
		Where("users.id IS NULL OR (users.private = ? AND users.is_active = ?)", false, true).
		Where("user_lists.id IS NULL OR user_lists.is_public = ?", true).
		Order("user_posts.created_at DESC").Order("user_posts.id DESC").
		Limit(s.size).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	views, err := postViews(conn, posts)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, feedCacheKey, views, feedCacheTTL)
	}
	return views, nil
}

// Invalidate drops the cached feed. Safe on a nil receiver.
func (s *FeedService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.Delete(ctx, feedCacheKey)
	logger.Debug("Feed cache invalidated", zap.String("key", feedCacheKey))
}
