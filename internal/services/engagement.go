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

// GootResult is the state of a list like after a toggle. NewLikeDisabled is
// set when a new goot was refused because the list is private.
type GootResult struct {
	IsGoot          bool `json:"is_goot"`
	GootCount       int  `json:"goot_count"`
	NewLikeDisabled bool `json:"-"`
}

// GoodResult is the state of a content like after a toggle. Content is nil
// once the aggregate has been collected.
type GoodResult struct {
	IsGood    bool                `json:"is_good"`
	GoodCount int                 `json:"good_count"`
	Content   *models.ContentData `json:"content"`
}

type EngagementService struct {
	db       *gorm.DB
	contents *ContentService
}

func NewEngagementService(db *gorm.DB, contents *ContentService) *EngagementService {
	return &EngagementService{db: db, contents: contents}
}

// ToggleGoot likes or unlikes a list for actor. Unliking is always allowed
// and never takes the count below zero; a new like requires a public list.
func (s *EngagementService) ToggleGoot(ctx context.Context, actor *models.User, listID uint) (*GootResult, error) {
	result := &GootResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var list models.UserList
		if err := tx.First(&list, listID).Error; err != nil {
			return translate(err, "list")
		}

		var existing models.GootList
		err := tx.Where("user_id = ? AND user_list_id = ?", actor.ID, list.ID).First(&existing).Error
		switch {
		case err == nil:
			res := tx.Delete(&existing)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				if err := tx.Model(&models.UserList{}).Where("id = ?", list.ID).
					UpdateColumn("goot_count", gorm.Expr("CASE WHEN goot_count > 0 THEN goot_count - 1 ELSE 0 END")).
					Error; err != nil {
					return err
				}
			}
			result.IsGoot = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !list.IsPublic {
				result.NewLikeDisabled = true
				result.GootCount = list.GootCount
				return nil
			}
			goot := models.GootList{UserID: actor.ID, UserListID: list.ID}
			if err := tx.Create(&goot).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.UserList{}).Where("id = ?", list.ID).
				UpdateColumn("goot_count", gorm.Expr("goot_count + ?", 1)).Error; err != nil {
				return err
			}
			result.IsGoot = true
		default:
			return err
		}
		return tx.Model(&models.UserList{}).Where("id = ?", list.ID).
			Pluck("goot_count", &result.GootCount).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent request liked first.
			return s.gootState(ctx, actor, listID)
		}
		return nil, err
	}
	logger.Debug("Goot toggled",
		zap.Uint("user_id", actor.ID),
		zap.Uint("list_id", listID),
		zap.Bool("is_goot", result.IsGoot),
		zap.Bool("new_like_disabled", result.NewLikeDisabled))
	return result, nil
}

func (s *EngagementService) gootState(ctx context.Context, actor *models.User, listID uint) (*GootResult, error) {
	conn := s.db.WithContext(ctx)
	var list models.UserList
	if err := conn.First(&list, listID).Error; err != nil {
		return nil, translate(err, "list")
	}
	var n int64
	if err := conn.Model(&models.GootList{}).
		Where("user_id = ? AND user_list_id = ?", actor.ID, listID).
		Count(&n).Error; err != nil {
		return nil, err
	}
	return &GootResult{IsGoot: n > 0, GootCount: list.GootCount}, nil
}

// ToggleGood likes or unlikes a content URL for actor. Liking an unknown URL
// scrapes it first; unliking the last Good collects the aggregate.
func (s *EngagementService) ToggleGood(ctx context.Context, actor *models.User, url string) (*GoodResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("content_url is required: %w", ErrInvalidInput)
	}

	existing, err := s.findGood(s.db.WithContext(ctx), actor, url)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.unlike(ctx, actor, existing)
	}

	cd, err := s.contents.prepare(ctx, url, "")
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureContent(tx, cd); err != nil {
			return err
		}
		good := models.Good{UserID: &actor.ID, UsernameLegacy: actor.DisplayName(), ContentURL: url}
		if err := tx.Create(&good).Error; err != nil {
			return err
		}
		count, err := adjustGoodCount(tx, url, 1)
		if err != nil {
			return err
		}
		cd.GoodCount = count
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return s.goodState(ctx, actor, url)
		}
		return nil, err
	}
	logger.Debug("Good added", zap.Uint("user_id", actor.ID), zap.String("url", url), zap.Int("good_count", cd.GoodCount))
	return &GoodResult{IsGood: true, GoodCount: cd.GoodCount, Content: cd}, nil
}

// ToggleGoodByID is ToggleGood addressed by aggregate id.
func (s *EngagementService) ToggleGoodByID(ctx context.Context, actor *models.User, contentID uint) (*GoodResult, error) {
	cd, err := s.contents.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return s.ToggleGood(ctx, actor, cd.ContentURL)
}

func (s *EngagementService) unlike(ctx context.Context, actor *models.User, good *models.Good) (*GoodResult, error) {
	result := &GoodResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(good)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already removed by a concurrent request.
			return tx.Model(&models.ContentData{}).Where("content_url = ?", good.ContentURL).
				Pluck("good_count", &result.GoodCount).Error
		}
		count, err := adjustGoodCount(tx, good.ContentURL, -1)
		if err != nil {
			return err
		}
		result.GoodCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.GoodCount > 0 {
		if cd, err := s.contents.GetByURL(ctx, good.ContentURL); err == nil {
			result.Content = cd
		}
	}
	logger.Debug("Good removed", zap.Uint("user_id", actor.ID), zap.String("url", good.ContentURL), zap.Int("good_count", result.GoodCount))
	return result, nil
}

func (s *EngagementService) goodState(ctx context.Context, actor *models.User, url string) (*GoodResult, error) {
	conn := s.db.WithContext(ctx)
	good, err := s.findGood(conn, actor, url)
	if err != nil {
		return nil, err
	}
	result := &GoodResult{IsGood: good != nil}
	if cd, err := s.contents.GetByURL(ctx, url); err == nil {
		result.Content = cd
		result.GoodCount = cd.GoodCount
	}
	return result, nil
}

// findGood matches by account first, then by the legacy display name of
// Goods that predate account linking.
func (s *EngagementService) findGood(conn *gorm.DB, actor *models.User, url string) (*models.Good, error) {
	var g models.Good
	err := conn.Where("user_id = ? AND content_url = ?", actor.ID, url).First(&g).Error
	if err == nil {
		return &g, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	name := actor.DisplayName()
	if name == "" {
		return nil, nil
	}
	err = conn.Where("user_id IS NULL AND username_legacy = ? AND content_url = ?", name, url).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
