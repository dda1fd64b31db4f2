// Package server contains the HTTP handlers and page rendering of the application.
package server

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"storyline/internal/cache"
	"storyline/internal/config"
	"storyline/internal/database"
	"storyline/internal/middleware"
	"storyline/internal/repository"
	"storyline/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	sessionCookieName = "storyline_session"
	csrfCookieName    = "storyline_csrf"
	csrfFormField     = "csrf_token"
	csrfLocalsKey     = "csrf"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Store

	userRepo      repository.UserRepository
	historyRepo   repository.HistoryRepository
	characterRepo repository.CharacterRepository
	postRepo      repository.PostRepository
	followRepo    repository.FollowRepository

	authService      *service.AuthService
	userService      *service.UserService
	avatarService    *service.AvatarService
	historyService   *service.HistoryService
	characterService *service.CharacterService
	postService      *service.PostService
	followService    *service.FollowService
}

// NewServer connects to the database and Redis and creates a server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil Redis client keeps sessions in memory and disables caching.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("storyline"),
		userRepo:       repository.NewUserRepository(db),
		historyRepo:    repository.NewHistoryRepository(db),
		characterRepo:  repository.NewCharacterRepository(db),
		postRepo:       repository.NewPostRepository(db),
		followRepo:     repository.NewFollowRepository(db),
	}

	s.avatarService = service.NewAvatarService(s.staticDir(), cfg.AvatarMaxUploadSizeMB)
	s.authService = service.NewAuthService(s.userRepo)
	s.userService = service.NewUserService(s.userRepo, s.historyRepo, s.followRepo, s.avatarService)
	s.historyService = service.NewHistoryService(s.historyRepo, s.characterRepo)
	s.characterService = service.NewCharacterService(s.characterRepo, s.postRepo)
	s.postService = service.NewPostService(s.postRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo, s.postRepo)

	s.sessions = s.newSessionStore()
	return s, nil
}

// ApplySchema brings the database schema up to date according to DB_SCHEMA_MODE.
func (s *Server) ApplySchema(ctx context.Context) error {
	return database.ApplySchema(ctx, s.db, s.config)
}

func (s *Server) staticDir() string {
	if s.config.StaticDir == "" {
		return "./static"
	}
	return s.config.StaticDir
}

func (s *Server) newSessionStore() *session.Store {
	ttl := time.Duration(s.config.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cfg := session.Config{
		Expiration:     ttl,
		KeyLookup:      "cookie:" + sessionCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   s.config.IsProduction(),
		CookieSameSite: "Lax",
	}
	if s.redis != nil {
		cfg.Storage = cache.NewSessionStorage(s.redis, cache.SessionKeyPrefix)
	}
	return session.New(cfg)
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() (*fiber.App, error) {
	engine, err := newViewEngine()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "Storyline",
		Views:        engine,
		ErrorHandler: s.errorHandler,
		BodyLimit:    s.bodyLimit(),
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app, nil
}

// bodyLimit leaves room for the multipart envelope around the largest allowed avatar.
func (s *Server) bodyLimit() int {
	mb := s.config.AvatarMaxUploadSizeMB
	if mb <= 0 {
		mb = service.DefaultAvatarMaxSizeMB
	}
	return (mb + 1) * 1024 * 1024
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger())

	if s.config.CSRFEnabled {
		csrfCfg := csrf.Config{
			KeyLookup:      "form:" + csrfFormField,
			CookieName:     csrfCookieName,
			CookieSameSite: "Lax",
			CookieHTTPOnly: true,
			CookieSecure:   s.config.IsProduction(),
			Expiration:     time.Duration(s.config.SessionTTLHours) * time.Hour,
			ContextKey:     csrfLocalsKey,
		}
		if s.redis != nil {
			csrfCfg.Storage = cache.NewSessionStorage(s.redis, "csrf:")
		}
		app.Use(csrf.New(csrfCfg))
	}

	app.Use(s.SessionMiddleware())
	app.Use(s.IdentityMiddleware())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/static", s.staticDir())

	app.Get("/", s.Home)
	app.Get("/home", s.Home)
	app.Get("/about", s.About)
	app.Get("/feed", s.LoginRequired(), s.Feed)

	register := s.rateLimit(5, 10*time.Minute, "register")
	app.Get("/register", s.RegisterPage)
	app.Post("/register", register, s.Register)

	login := s.rateLimit(10, 5*time.Minute, "login")
	app.Get("/login", s.LoginPage)
	app.Post("/login", login, s.Login)
	app.Get("/logout", s.Logout)

	app.Get("/account", s.LoginRequired(), s.AccountPage)
	app.Post("/account", s.LoginRequired(), s.UpdateAccount)

	app.Get("/history_new", s.LoginRequired(), s.NewHistoryPage)
	app.Post("/history_new", s.LoginRequired(), s.CreateHistory)

	// Specific /history/:history_id/... routes before the generic one
	histories := app.Group("/history/:history_id")
	histories.Get("/update", s.LoginRequired(), s.EditHistoryPage)
	histories.Post("/update", s.LoginRequired(), s.UpdateHistory)
	histories.Post("/delete", s.LoginRequired(), s.DeleteHistory)
	histories.Get("/character_new", s.LoginRequired(), s.NewCharacterPage)
	histories.Post("/character_new", s.LoginRequired(), s.CreateCharacter)

	characters := histories.Group("/character/:character_id")
	characters.Get("/update", s.LoginRequired(), s.EditCharacterPage)
	characters.Post("/update", s.LoginRequired(), s.UpdateCharacter)
	characters.Post("/delete", s.LoginRequired(), s.DeleteCharacter)
	characters.Get("/post_new", s.LoginRequired(), s.NewPostPage)
	characters.Post("/post_new", s.LoginRequired(), s.CreatePost)
	characters.Get("", s.CharacterPage)

	histories.Get("", s.HistoryPage)

	posts := app.Group("/post/:post_id")
	posts.Get("/update", s.LoginRequired(), s.EditPostPage)
	posts.Post("/update", s.LoginRequired(), s.UpdatePost)
	posts.Post("/delete", s.LoginRequired(), s.DeletePost)
	posts.Get("", s.PostPage)

	app.Get("/users", s.Users)
	users := app.Group("/user/:user_id")
	users.Get("/follow", s.LoginRequired(), s.Follow)
	users.Get("/unfollow", s.LoginRequired(), s.Unfollow)
	users.Get("", s.UserPage)
}

// rateLimit limits form posts per client IP. Local and test environments are not limited.
// Without Redis the counters live in process memory.
func (s *Server) rateLimit(limit int, window time.Duration, name string) fiber.Handler {
	switch s.config.Env {
	case "", "development", "test":
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if s.redis != nil {
		return middleware.RateLimit(s.redis, limit, window, name)
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodPost
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	})
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only a configured but unreachable Redis makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "disabled"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app, err := s.App()
	if err != nil {
		return err
	}
	s.app = app

	log.Printf("Server starting on port %s (static files in %s)...", s.config.Port, filepath.Clean(s.staticDir()))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
