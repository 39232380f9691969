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

type ListService struct {
	db   *gorm.DB
	feed *FeedService
}

func NewListService(db *gorm.DB, feed *FeedService) *ListService {
	return &ListService{db: db, feed: feed}
}

// Create adds a list for owner. Names are unique per owner.
func (s *ListService) Create(ctx context.Context, owner *models.User, name, description string, isPublic bool) (*models.UserList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("list name is required: %w", ErrInvalidInput)
	}
	list := &models.UserList{
		OwnerID:     owner.ID,
		Owner:       *owner,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
	}
	if err := s.db.WithContext(ctx).Omit("Owner").Create(list).Error; err != nil {
		return nil, translate(err, "list name")
	}
	logger.Info("List created", zap.Uint("list_id", list.ID), zap.Uint("owner_id", owner.ID))
	return list, nil
}

// Rename is a no-op when the name is unchanged.
func (s *ListService) Rename(ctx context.Context, actor *models.User, listID uint, name string) (*models.UserList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("list name is required: %w", ErrInvalidInput)
	}
	list, err := s.loadOwned(s.db.WithContext(ctx), actor, listID)
	if err != nil {
		return nil, err
	}
	if list.Name == name {
		return list, nil
	}
	if err := s.db.WithContext(ctx).Model(list).Update("name", name).Error; err != nil {
		return nil, translate(err, "list name")
	}
	list.Name = name
	return list, nil
}

func (s *ListService) UpdateDescription(ctx context.Context, actor *models.User, listID uint, description string) (*models.UserList, error) {
	list, err := s.loadOwned(s.db.WithContext(ctx), actor, listID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(list).Update("description", description).Error; err != nil {
		return nil, err
	}
	list.Description = description
	return list, nil
}

func (s *ListService) SetVisibility(ctx context.Context, actor *models.User, listID uint, isPublic bool) (*models.UserList, error) {
	list, err := s.loadOwned(s.db.WithContext(ctx), actor, listID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(list).Update("is_public", isPublic).Error; err != nil {
		return nil, err
	}
	list.IsPublic = isPublic
	s.feed.Invalidate(ctx)
	return list, nil
}

// Delete removes a list with every post in it, the Goods those posts account
// for and the list's goots, in one transaction.
func (s *ListService) Delete(ctx context.Context, actor *models.User, listID uint) error {
	var removed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := s.loadOwned(tx, actor, listID)
		if err != nil {
			return err
		}

		var posts []models.UserPost
		if err := tx.Where("list_id = ?", list.ID).Order("id").Find(&posts).Error; err != nil {
			return err
		}
		for i := range posts {
			if err := removePost(tx, &posts[i]); err != nil {
				return fmt.Errorf("remove post %d: %w", posts[i].ID, err)
			}
		}
		removed = len(posts)

		if err := tx.Where("user_list_id = ?", list.ID).Delete(&models.GootList{}).Error; err != nil {
			return err
		}
		return tx.Delete(list).Error
	})
	if err != nil {
		return err
	}
	s.feed.Invalidate(ctx)
	logger.Info("List deleted", zap.Uint("list_id", listID), zap.Uint("owner_id", actor.ID), zap.Int("posts", removed))
	return nil
}

// GetVisible returns a list with its posts. Private lists are visible only to
// the owner and to accounts holding a goot on them; everyone else gets a
// ListForbiddenError.
func (s *ListService) GetVisible(ctx context.Context, viewer *models.User, listID uint) (*ListDetail, error) {
	conn := s.db.WithContext(ctx)
	var list models.UserList
	if err := conn.Preload("Owner").First(&list, listID).Error; err != nil {
		return nil, translate(err, "list")
	}

	ok, err := canView(conn, viewer, &list)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ListForbiddenError{ID: list.ID, Name: list.Name, IsPublic: list.IsPublic}
	}

	views, err := listViews(conn, viewer, []models.UserList{list})
	if err != nil {
		return nil, err
	}

	var posts []models.UserPost
	if err := conn.Preload("User").
		Where("list_id = ?", list.ID).
		Order("created_at DESC").Order("id DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	pv, err := postViews(conn, posts)
	if err != nil {
		return nil, err
	}
	return &ListDetail{ListView: views[0], Posts: pv}, nil
}

// Mine returns every list of owner, private ones included.
func (s *ListService) Mine(ctx context.Context, owner *models.User) ([]ListView, error) {
	conn := s.db.WithContext(ctx)
	var lists []models.UserList
	if err := conn.Preload("Owner").Where("owner_id = ?", owner.ID).Order("created_at DESC").Order("id DESC").Find(&lists).Error; err != nil {
		return nil, err
	}
	return listViews(conn, owner, lists)
}

// ByUsername returns the lists of username, most recently updated first; only
// public ones unless the viewer is that account.
func (s *ListService) ByUsername(ctx context.Context, viewer *models.User, username string) ([]ListView, error) {
	conn := s.db.WithContext(ctx)
	owner, err := userByName(conn, username)
	if err != nil {
		return nil, err
	}
	q := conn.Preload("Owner").Where("owner_id = ?", owner.ID)
	if !sameUser(viewer, owner) {
		q = q.Where("is_public = ?", true)
	}
	var lists []models.UserList
	if err := q.Order("updated_at DESC").Order("id DESC").Find(&lists).Error; err != nil {
		return nil, err
	}
	return listViews(conn, viewer, lists)
}

// Favorites returns the lists actor has gooted, most recently updated first.
func (s *ListService) Favorites(ctx context.Context, actor *models.User) ([]ListView, error) {
	conn := s.db.WithContext(ctx)
	lists, err := gootedLists(conn, actor.ID, false)
	if err != nil {
		return nil, err
	}
	return listViews(conn, actor, lists)
}

// FavoritesByUsername returns the lists username has gooted; only public ones
// unless the viewer is that account.
func (s *ListService) FavoritesByUsername(ctx context.Context, viewer *models.User, username string) ([]ListView, error) {
	conn := s.db.WithContext(ctx)
	u, err := userByName(conn, username)
	if err != nil {
		return nil, err
	}
	lists, err := gootedLists(conn, u.ID, !sameUser(viewer, u))
	if err != nil {
		return nil, err
	}
	return listViews(conn, viewer, lists)
}

func (s *ListService) loadOwned(conn *gorm.DB, actor *models.User, listID uint) (*models.UserList, error) {
	var list models.UserList
	if err := conn.First(&list, listID).Error; err != nil {
		return nil, translate(err, "list")
	}
	if list.OwnerID != actor.ID {
		return nil, fmt.Errorf("list %d: %w", listID, ErrForbidden)
	}
	return &list, nil
}

func gootedLists(conn *gorm.DB, userID uint, publicOnly bool) ([]models.UserList, error) {
	q := conn.Preload("Owner").
		Joins("JOIN goot_lists ON goot_lists.user_list_id = user_lists.id").
		Where("goot_lists.user_id = ?", userID)
	if publicOnly {
		q = q.Where("user_lists.is_public = ?", true)
	}
	var lists []models.UserList
	err := q.Order("user_lists.updated_at DESC").Order("user_lists.id DESC").Find(&lists).Error
	return lists, err
}

func canView(conn *gorm.DB, viewer *models.User, list *models.UserList) (bool, error) {
	if list.IsPublic {
		return true, nil
	}
	if viewer == nil {
		return false, nil
	}
	if viewer.ID == list.OwnerID {
		return true, nil
	}
	var n int64
	err := conn.Model(&models.GootList{}).
		Where("user_id = ? AND user_list_id = ?", viewer.ID, list.ID).
		Count(&n).Error
	return n > 0, err
}

func userByName(conn *gorm.DB, username string) (*models.User, error) {
	var u models.User
	err := conn.Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func sameUser(a, b *models.User) bool {
	return a != nil && b != nil && a.ID == b.ID
}
