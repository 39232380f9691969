package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"goodlist/internal/logger"
	"goodlist/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Evidence is what a request carries about who is calling. An authenticated
// User always wins over a guest token.
type Evidence struct {
	User       *models.User
	GuestToken string
}

type IdentityService struct {
	db   *gorm.DB
	feed *FeedService
}

func NewIdentityService(db *gorm.DB, feed *FeedService) *IdentityService {
	return &IdentityService{db: db, feed: feed}
}

// NewGuestToken mints a fresh guest identifier.
func NewGuestToken() string {
	return uuid.NewString()
}

// ValidGuestToken returns the canonical form of a guest token, or false when
// the value is not a UUID.
func ValidGuestToken(token string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Resolve maps request evidence to an account, creating the guest account
// (and its Home list) on first sighting of a guest token. It returns nil when
// the request carries no usable identity.
func (s *IdentityService) Resolve(ctx context.Context, ev Evidence) (*models.User, error) {
	if ev.User != nil {
		return ev.User, nil
	}
	token, ok := ValidGuestToken(ev.GuestToken)
	if !ok {
		return nil, nil
	}

	u, err := s.findGuest(ctx, token)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return activeOrNil(u), nil
	}

	u = &models.User{GuestID: &token, IsActive: true}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		_, err := ensureHomeList(tx, u.ID)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Another request created the same guest first.
			u, err = s.findGuest(ctx, token)
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, fmt.Errorf("guest %s vanished after conflict", token)
			}
			return activeOrNil(u), nil
		}
		return nil, fmt.Errorf("create guest account: %w", err)
	}
	logger.Info("Guest account created", zap.Uint("user_id", u.ID), zap.String("guest_id", token))
	return u, nil
}

// Lookup is Resolve without side effects, for read paths.
func (s *IdentityService) Lookup(ctx context.Context, ev Evidence) (*models.User, error) {
	if ev.User != nil {
		return ev.User, nil
	}
	token, ok := ValidGuestToken(ev.GuestToken)
	if !ok {
		return nil, nil
	}
	u, err := s.findGuest(ctx, token)
	if err != nil || u == nil {
		return nil, err
	}
	return activeOrNil(u), nil
}

// RequireActor is Resolve that fails with ErrUnauthorized instead of
// returning nil.
func (s *IdentityService) RequireActor(ctx context.Context, ev Evidence) (*models.User, error) {
	u, err := s.Resolve(ctx, ev)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthorized
	}
	return u, nil
}

func (s *IdentityService) findGuest(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("guest_id = ?", token).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func activeOrNil(u *models.User) *models.User {
	if !u.IsActive {
		return nil
	}
	return u
}

func (s *IdentityService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (s *IdentityService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a named account together with its Home list.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", ErrInvalidInput)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Username: &username,
		Password: string(hashed),
		IsActive: true,
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		u.Email = &email
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		_, err := ensureHomeList(tx, u.ID)
		return err
	})
	if err != nil {
		return nil, translate(err, "account")
	}
	logger.Info("Account registered", zap.Uint("user_id", u.ID), zap.String("username", username))
	return u, nil
}

// Authenticate checks a username/password pair.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if u.Password == "" || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrUnauthorized
	}
	if !u.IsActive {
		return nil, ErrUnauthorized
	}
	return &u, nil
}

// ClaimUsername sets or changes the actor's username. A guest keeps its
// guest id, so everything it created stays attached.
func (s *IdentityService) ClaimUsername(ctx context.Context, actor *models.User, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("username is required: %w", ErrInvalidInput)
	}
	if actor.Username != nil && *actor.Username == name {
		return actor, nil
	}

	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", name, actor.ID).
		Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, fmt.Errorf("username %q: %w", name, ErrConflict)
	}

	if err := s.db.WithContext(ctx).Model(actor).Update("username", name).Error; err != nil {
		return nil, translate(err, "username")
	}
	actor.Username = &name
	s.feed.Invalidate(ctx)
	logger.Info("Username claimed", zap.Uint("user_id", actor.ID), zap.String("username", name))
	return actor, nil
}

// SetPrivate hides or shows the actor's posts in the public feed.
func (s *IdentityService) SetPrivate(ctx context.Context, actor *models.User, private bool) (*models.User, error) {
	if err := s.db.WithContext(ctx).Model(actor).Update("private", private).Error; err != nil {
		return nil, err
	}
	actor.Private = private
	s.feed.Invalidate(ctx)
	return actor, nil
}

// ensureHomeList returns the owner's Home list, creating it if missing.
func ensureHomeList(tx *gorm.DB, ownerID uint) (*models.UserList, error) {
	var home models.UserList
	err := tx.Where("owner_id = ? AND name = ?", ownerID, models.HomeListName).First(&home).Error
	if err == nil {
		return &home, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	home = models.UserList{
		OwnerID:     ownerID,
		Name:        models.HomeListName,
		Description: models.HomeListDescription,
		IsPublic:    true,
	}
	if err := tx.Create(&home).Error; err != nil {
		return nil, err
	}
	return &home, nil
}
