package router

import (
	"net/http"

	"goodlist/internal/config"
	"goodlist/internal/handlers"
	"goodlist/internal/middleware"
	"goodlist/internal/services"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Services is everything the routes depend on.
type Services struct {
	Identity   *services.IdentityService
	Tokens     *services.TokenIssuer
	Lists      *services.ListService
	Engagement *services.EngagementService
	Contents   *services.ContentService
	Posts      *services.PostService
	Feed       *services.FeedService
}

// New builds the engine with sessions, identity middleware and routes.
func New(cfg *config.Config, svc Services) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("goodlist_session", store))
	r.Use(middleware.LoadUser(svc.Identity, svc.Tokens))
	r.Use(middleware.GuestID(middleware.GuestCookieConfig{
		Name:   cfg.GuestCookieName,
		MaxAge: cfg.GuestCookieMaxAge,
	}))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	RegisterRoutes(r, svc, limiter.Middleware())
	return r, nil
}

func RegisterRoutes(r *gin.Engine, svc Services, limit gin.HandlerFunc) {
	authHandler := handlers.NewAuthHandler(svc.Identity, svc.Tokens)
	userHandler := handlers.NewUserHandler(svc.Identity, svc.Lists)
	listHandler := handlers.NewListHandler(svc.Identity, svc.Lists, svc.Engagement)
	contentHandler := handlers.NewContentHandler(svc.Identity, svc.Contents, svc.Engagement)
	postHandler := handlers.NewPostHandler(svc.Identity, svc.Posts, svc.Feed)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Public reads
	api.GET("/feed", postHandler.Feed)
	api.GET("/posts", postHandler.List)
	api.GET("/posts/:id", postHandler.Get)
	api.GET("/lists/:id", listHandler.Get)
	api.GET("/contents", contentHandler.List)
	api.GET("/contents/:id", contentHandler.Get)
	api.GET("/users/:username/lists", userHandler.Lists)
	api.GET("/users/:username/favorites", userHandler.Favorites)

	// Accounts
	api.POST("/auth/register", limit, authHandler.Register)
	api.POST("/auth/login", limit, authHandler.Login)
	api.POST("/auth/logout", middleware.AuthRequired(), authHandler.Logout)

	// Guests and accounts alike
	actor := api.Group("")
	actor.Use(limit)
	{
		actor.GET("/me", userHandler.Me)
		actor.PATCH("/me/username", userHandler.Rename)
		actor.PATCH("/me/private", userHandler.SetPrivate)

		actor.GET("/me/lists", listHandler.Mine)
		actor.GET("/me/favorites", listHandler.Favorites)
		actor.POST("/lists", listHandler.Create)
		actor.PATCH("/lists/:id", listHandler.Update)
		actor.POST("/lists/:id/toggle-public", listHandler.TogglePublic)
		actor.DELETE("/lists/:id", listHandler.Delete)
		actor.POST("/lists/:id/goot", listHandler.Goot)

		actor.POST("/posts", postHandler.Create)
		actor.DELETE("/posts/:id", postHandler.Delete)
		actor.POST("/posts/:id/move", postHandler.Move)

		actor.POST("/contents", contentHandler.Create)
		actor.POST("/contents/good", contentHandler.GoodByURL)
		actor.POST("/contents/:id/good", contentHandler.Good)
	}
}
