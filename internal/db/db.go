package db

import (
	"fmt"

	"goodlist/internal/logger"
	"goodlist/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init connects to Postgres, migrates the schema and stores the handle in DB.
func Init(dsn string) (*gorm.DB, error) {
	conn, err := Open(postgres.Open(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("Database connection established")

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	logger.Info("Database migration completed")

	if err := BackfillHomeLists(conn); err != nil {
		return nil, err
	}

	DB = conn
	return conn, nil
}

// Open wraps gorm.Open with the settings every environment shares. Unique
// violations are translated to gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{TranslateError: true})
}

func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// BackfillHomeLists gives every account without a Home list one, and files
// list-less posts of that account into it.
func BackfillHomeLists(conn *gorm.DB) error {
	var users []models.User
	err := conn.Where("NOT EXISTS (?)",
		conn.Model(&models.UserList{}).Select("1").
			Where("user_lists.owner_id = users.id AND user_lists.name = ?", models.HomeListName),
	).Find(&users).Error
	if err != nil {
		return fmt.Errorf("find accounts without home list: %w", err)
	}
	if len(users) == 0 {
		logger.Info("Home lists already present, skipping backfill")
		return nil
	}

	for _, u := range users {
		err := conn.Transaction(func(tx *gorm.DB) error {
			home := models.UserList{
				OwnerID:     u.ID,
				Name:        models.HomeListName,
				Description: models.HomeListDescription,
				IsPublic:    true,
			}
			if err := tx.Create(&home).Error; err != nil {
				return err
			}
			return tx.Model(&models.UserPost{}).
				Where("user_id = ? AND list_id IS NULL", u.ID).
				Update("list_id", home.ID).Error
		})
		if err != nil {
			logger.Warn("Failed to backfill home list", zap.Uint("user_id", u.ID), zap.Error(err))
		}
	}
	logger.Info("Home list backfill completed", zap.Int("accounts", len(users)))
	return nil
}
