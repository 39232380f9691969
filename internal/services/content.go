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
	"gorm.io/gorm/clause"
)

// ContentService owns the per-URL aggregate: cached metadata plus the live
// Good count. A row exists only while at least one Good references its URL.
type ContentService struct {
	db      *gorm.DB
	fetcher MetadataFetcher
}

func NewContentService(db *gorm.DB, fetcher MetadataFetcher) *ContentService {
	return &ContentService{db: db, fetcher: fetcher}
}

// FetchOrCreate returns the aggregate for url, scraping and storing it when
// absent. A fresh row starts at zero Goods.
func (s *ContentService) FetchOrCreate(ctx context.Context, url, contentType string) (*models.ContentData, error) {
	cd, err := s.prepare(ctx, url, contentType)
	if err != nil {
		return nil, err
	}
	if cd.ID != 0 {
		return cd, nil
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ensureContent(tx, cd)
	})
	if err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}
	return cd, nil
}

func (s *ContentService) Get(ctx context.Context, id uint) (*models.ContentData, error) {
	var cd models.ContentData
	if err := s.db.WithContext(ctx).First(&cd, id).Error; err != nil {
		return nil, translate(err, "content")
	}
	return &cd, nil
}

func (s *ContentService) GetByURL(ctx context.Context, url string) (*models.ContentData, error) {
	var cd models.ContentData
	if err := s.db.WithContext(ctx).Where("content_url = ?", url).First(&cd).Error; err != nil {
		return nil, translate(err, "content")
	}
	return &cd, nil
}

// List returns the most recently created aggregates.
func (s *ContentService) List(ctx context.Context, limit int) ([]models.ContentData, error) {
	var out []models.ContentData
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// prepare returns the stored aggregate for url, or an unsaved one built from a
// fresh scrape. Scraping happens outside any transaction.
func (s *ContentService) prepare(ctx context.Context, url, contentType string) (*models.ContentData, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("content_url is required: %w", ErrInvalidInput)
	}

	var cd models.ContentData
	err := s.db.WithContext(ctx).Where("content_url = ?", url).First(&cd).Error
	if err == nil {
		return &cd, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		logger.Warn("Failed to fetch content metadata", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if contentType == "" {
		contentType = models.DefaultContentType
	}
	return &models.ContentData{
		ContentURL:  url,
		Title:       data.Title,
		Image:       data.Image,
		Description: data.Description,
		ContentType: contentType,
	}, nil
}

// ensureContent makes sure the aggregate row for cd.ContentURL exists inside
// tx and reloads cd from it. It recreates rows collected since prepare ran.
func ensureContent(tx *gorm.DB, cd *models.ContentData) error {
	row := models.ContentData{
		ContentURL:  cd.ContentURL,
		Title:       cd.Title,
		Image:       cd.Image,
		Description: cd.Description,
		ContentType: cd.ContentType,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_url"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return err
	}
	return tx.Where("content_url = ?", cd.ContentURL).First(cd).Error
}

// adjustGoodCount applies delta to the aggregate of url and collects the row
// when the count reaches zero. A missing aggregate counts as zero.
func adjustGoodCount(tx *gorm.DB, url string, delta int) (int, error) {
	res := tx.Model(&models.ContentData{}).
		Where("content_url = ?", url).
		UpdateColumn("good_count", gorm.Expr("good_count + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}

	var cd models.ContentData
	if err := tx.Where("content_url = ?", url).First(&cd).Error; err != nil {
		return 0, err
	}
	if cd.GoodCount > 0 {
		return cd.GoodCount, nil
	}
	if err := tx.Where("content_url = ? AND good_count <= 0", url).Delete(&models.ContentData{}).Error; err != nil {
		return 0, err
	}
	logger.Info("Content aggregate collected", zap.String("url", url))
	return 0, nil
}

// matchingGoods finds the Goods a post accounts for. Owner-linked posts match
// by owner only; posts that predate owner linkage match unlinked Goods by the
// legacy display name.
func matchingGoods(tx *gorm.DB, post *models.UserPost) ([]models.Good, error) {
	var goods []models.Good
	if post.UserID != nil {
		err := tx.Where("user_id = ? AND content_url = ?", *post.UserID, post.ContentURL).Find(&goods).Error
		return goods, err
	}
	if post.UsernameLegacy == "" {
		return nil, nil
	}
	err := tx.Where("user_id IS NULL AND username_legacy = ? AND content_url = ?", post.UsernameLegacy, post.ContentURL).
		Find(&goods).Error
	return goods, err
}

// removePost deletes a post and its Goods, releasing their weight on the
// aggregate.
func removePost(tx *gorm.DB, post *models.UserPost) error {
	goods, err := matchingGoods(tx, post)
	if err != nil {
		return err
	}
	if len(goods) > 0 {
		ids := make([]uint, len(goods))
		for i, g := range goods {
			ids[i] = g.ID
		}
		res := tx.Delete(&models.Good{}, ids)
		if res.Error != nil {
			return res.Error
		}
		if _, err := adjustGoodCount(tx, post.ContentURL, -int(res.RowsAffected)); err != nil {
			return err
		}
	}
	return tx.Delete(&models.UserPost{}, post.ID).Error
}
