package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"goodlist/internal/logger"
	"goodlist/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreatePostInput struct {
	ContentURL  string
	Description string
	ContentType string
	ListID      *uint // Home list when nil
}

type PostService struct {
	db       *gorm.DB
	contents *ContentService
	feed     *FeedService
}

func NewPostService(db *gorm.DB, contents *ContentService, feed *FeedService) *PostService {
	return &PostService{db: db, contents: contents, feed: feed}
}

// Create files a URL into one of actor's lists and records actor's Good on
// it. The post, the aggregate and the Good are written together or not at
// all; an unreachable URL writes nothing.
func (s *PostService) Create(ctx context.Context, actor *models.User, in CreatePostInput) (*models.UserPost, error) {
	url := strings.TrimSpace(in.ContentURL)
	if url == "" {
		return nil, fmt.Errorf("content_url is required: %w", ErrInvalidInput)
	}
	conn := s.db.WithContext(ctx)

	dup, err := s.ownPost(conn, actor, url)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, fmt.Errorf("post for %s: %w", url, ErrConflict)
	}

	if in.ListID != nil {
		if err := checkTargetList(conn, actor, *in.ListID); err != nil {
			return nil, err
		}
	}

	cd, err := s.contents.prepare(ctx, url, in.ContentType)
	if err != nil {
		return nil, err
	}

	post := &models.UserPost{
		UserID:         &actor.ID,
		UsernameLegacy: actor.DisplayName(),
		Description:    in.Description,
		ContentURL:     url,
		ListID:         in.ListID,
	}
	err = conn.Transaction(func(tx *gorm.DB) error {
		if post.ListID == nil {
			home, err := ensureHomeList(tx, actor.ID)
			if err != nil {
				return err
			}
			post.ListID = &home.ID
		} else if err := checkTargetList(tx, actor, *post.ListID); err != nil {
			// the list may have gone away while the page was fetched
			return err
		}
		if err := ensureContent(tx, cd); err != nil {
			return err
		}
		if err := tx.Omit("User", "List").Create(post).Error; err != nil {
			return err
		}
		good := models.Good{UserID: &actor.ID, UsernameLegacy: actor.DisplayName(), ContentURL: url}
		if err := tx.Create(&good).Error; err != nil {
			return err
		}
		_, err := adjustGoodCount(tx, url, 1)
		return err
	})
	if err != nil {
		return nil, translate(err, "post")
	}

	s.feed.Invalidate(ctx)
	logger.Info("Post created",
		zap.Uint("post_id", post.ID),
		zap.Uint("user_id", actor.ID),
		zap.Uint("list_id", *post.ListID),
		zap.String("url", url))
	return post, nil
}

// checkTargetList verifies that actor owns the list a post is filed into.
func checkTargetList(conn *gorm.DB, actor *models.User, listID uint) error {
	var list models.UserList
	if err := conn.First(&list, listID).Error; err != nil {
		return translate(err, "list")
	}
	if list.OwnerID != actor.ID {
		return fmt.Errorf("list %d: %w", list.ID, ErrForbidden)
	}
	return nil
}

// Delete removes a post owned by actor, with the Goods it accounts for.
func (s *PostService) Delete(ctx context.Context, actor *models.User, postID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.loadOwned(tx, actor, postID)
		if err != nil {
			return err
		}
		return removePost(tx, post)
	})
	if err != nil {
		return err
	}
	s.feed.Invalidate(ctx)
	logger.Info("Post deleted", zap.Uint("post_id", postID), zap.Uint("user_id", actor.ID))
	return nil
}

// Move files a post into another of actor's lists.
func (s *PostService) Move(ctx context.Context, actor *models.User, postID, listID uint) (*models.UserPost, error) {
	conn := s.db.WithContext(ctx)
	post, err := s.loadOwned(conn, actor, postID)
	if err != nil {
		return nil, err
	}
	if err := checkTargetList(conn, actor, listID); err != nil {
		return nil, err
	}
	if err := conn.Model(post).Update("list_id", listID).Error; err != nil {
		return nil, err
	}
	post.ListID = &listID
	s.feed.Invalidate(ctx)
	return post, nil
}

// Get returns one post. Posts in private lists follow the list's visibility.
func (s *PostService) Get(ctx context.Context, viewer *models.User, postID uint) (*PostView, error) {
	conn := s.db.WithContext(ctx)
	var post models.UserPost
	if err := conn.Preload("User").Preload("List").First(&post, postID).Error; err != nil {
		return nil, translate(err, "post")
	}
	if post.List != nil {
		ok, err := canView(conn, viewer, post.List)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("post %d: %w", postID, ErrForbidden)
		}
	}
	views, err := postViews(conn, []models.UserPost{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns recent posts, optionally of one account. Posts in private
// lists are left out unless the viewer owns them.
func (s *PostService) List(ctx context.Context, viewer *models.User, userID *uint, limit int) ([]PostView, error) {
	conn := s.db.WithContext(ctx)
	q := conn.Preload("User").
		Joins("LEFT JOIN user_lists ON user_lists.id = user_posts.list_id")
	if viewer != nil {
		q = q.Where("user_lists.id IS NULL OR user_lists.is_public = ? OR user_lists.owner_id = ?", true, viewer.ID)
	} else {
		q = q.Where("user_lists.id IS NULL OR user_lists.is_public = ?", true)
	}
	if userID != nil {
		q = q.Where("user_posts.user_id = ?", *userID)
	}
	var posts []models.UserPost
	if err := q.Order("user_posts.created_at DESC").Order("user_posts.id DESC").
		Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return postViews(conn, posts)
}

func (s *PostService) ownPost(conn *gorm.DB, actor *models.User, url string) (bool, error) {
	var n int64
	err := conn.Model(&models.UserPost{}).
		Where("content_url = ? AND (user_id = ? OR (user_id IS NULL AND username_legacy = ?))",
			url, actor.ID, actor.DisplayName()).
		Count(&n).Error
	return n > 0, err
}

// loadOwned loads a post and checks actor owns it, by account or by legacy
// display name for unlinked posts.
func (s *PostService) loadOwned(conn *gorm.DB, actor *models.User, postID uint) (*models.UserPost, error) {
	var post models.UserPost
	err := conn.First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	owned := false
	if post.UserID != nil {
		owned = *post.UserID == actor.ID
	} else {
		owned = post.UsernameLegacy != "" && post.UsernameLegacy == actor.DisplayName()
	}
	if !owned {
		return nil, fmt.Errorf("post %d: %w", postID, ErrForbidden)
	}
	return &post, nil
}
