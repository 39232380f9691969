package services

import (
	"time"

	"goodlist/internal/models"
	"goodlist/internal/utils"

	"gorm.io/gorm"
)

// ListView is a list as rendered to clients.
type ListView struct {
	ID              uint      `json:"id"`
	OwnerID         uint      `json:"owner_id"`
	OwnerUsername   string    `json:"owner_username"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DescriptionHTML string    `json:"description_html"`
	IsPublic        bool      `json:"is_public"`
	GootCount       int       `json:"goot_count"`
	IsGoot          bool      `json:"is_goot"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListDetail is a list with its posts.
type ListDetail struct {
	ListView
	Posts []PostView `json:"posts"`
}

// PostView is a post with its content aggregate, when one exists.
type PostView struct {
	ID              uint                `json:"id"`
	UserID          *uint               `json:"user_id"`
	Username        string              `json:"username"`
	Description     string              `json:"description"`
	DescriptionHTML string              `json:"description_html"`
	ContentURL      string              `json:"content_url"`
	ListID          *uint               `json:"list_id"`
	CreatedAt       time.Time           `json:"created_at"`
	Content         *models.ContentData `json:"content"`
}

func listViews(db *gorm.DB, viewer *models.User, lists []models.UserList) ([]ListView, error) {
	gooted := map[uint]bool{}
	if viewer != nil && len(lists) > 0 {
		ids := make([]uint, len(lists))
		for i, l := range lists {
			ids[i] = l.ID
		}
		var rows []uint
		if err := db.Model(&models.GootList{}).
			Where("user_id = ? AND user_list_id IN ?", viewer.ID, ids).
			Pluck("user_list_id", &rows).Error; err != nil {
			return nil, err
		}
		for _, id := range rows {
			gooted[id] = true
		}
	}

	out := make([]ListView, 0, len(lists))
	for _, l := range lists {
		out = append(out, ListView{
			ID:              l.ID,
			OwnerID:         l.OwnerID,
			OwnerUsername:   l.Owner.DisplayName(),
			Name:            l.Name,
			Description:     l.Description,
			DescriptionHTML: utils.RenderMarkdown(l.Description),
			IsPublic:        l.IsPublic,
			GootCount:       l.GootCount,
			IsGoot:          gooted[l.ID],
			CreatedAt:       l.CreatedAt,
			UpdatedAt:       l.UpdatedAt,
		})
	}
	return out, nil
}

func postViews(db *gorm.DB, posts []models.UserPost) ([]PostView, error) {
	contents := map[string]*models.ContentData{}
	if len(posts) > 0 {
		urls := make([]string, 0, len(posts))
		for _, p := range posts {
			urls = append(urls, p.ContentURL)
		}
		var rows []models.ContentData
		if err := db.Where("content_url IN ?", urls).Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			contents[rows[i].ContentURL] = &rows[i]
		}
	}

	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		name := p.UsernameLegacy
		if p.User != nil {
			name = p.User.DisplayName()
		}
		out = append(out, PostView{
			ID:              p.ID,
			UserID:          p.UserID,
			Username:        name,
			Description:     p.Description,
			DescriptionHTML: utils.RenderMarkdown(p.Description),
			ContentURL:      p.ContentURL,
			ListID:          p.ListID,
			CreatedAt:       p.CreatedAt,
			Content:         contents[p.ContentURL],
		})
	}
	return out, nil
}
