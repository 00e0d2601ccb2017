package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/birdboard/birdboard-backend/config"
	httpapi "github.com/birdboard/birdboard-backend/internal/api/http"
	"github.com/birdboard/birdboard-backend/internal/api/http/middleware"
	"github.com/birdboard/birdboard-backend/internal/auth"
	"github.com/birdboard/birdboard-backend/internal/projects/cache"
	projectshttp "github.com/birdboard/birdboard-backend/internal/projects/http"
	"github.com/birdboard/birdboard-backend/internal/projects/repository"
	"github.com/birdboard/birdboard-backend/internal/projects/service"
	"github.com/birdboard/birdboard-backend/internal/users"
)

type RouterDeps struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       *sql.DB
	Redis    *redis.Client
	Resolver auth.Resolver

	// Stores default to the Postgres repositories on DB.
	Projects service.ProjectStore
	Tasks    service.TaskStore
	Users    auth.UserStore
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config
	logger := dep.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(logger))
	r.Use(middleware.AccessLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-User-Id"},
		ExposeHeaders:    []string{"Location", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	projectStore, taskStore, userStore := dep.Projects, dep.Tasks, dep.Users
	if projectStore == nil {
		projectStore = repository.NewProjectRepository(dep.DB)
	}
	if taskStore == nil {
		taskStore = repository.NewTaskRepository(dep.DB)
	}
	if userStore == nil {
		userStore = users.NewRepo(dep.DB)
	}

	// Public routes are limited by client IP; app routes by user once identified.
	var limits []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limits = append(limits, middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	}

	var dbPinger httpapi.DBPinger
	if dep.DB != nil {
		dbPinger = dep.DB
	}
	var rdb redis.UniversalClient
	var listCache service.ListCache
	if dep.Redis != nil {
		rdb = dep.Redis
		listCache = cache.NewListCache(dep.Redis, cfg.Redis.ListCacheTTL)
	}

	// Public routes do not resolve the caller.
	public := r.Group("/", limits...)
	httpapi.NewHealthHandler(cfg.App.ServiceName, cfg.App.Version, dbPinger, rdb).RegisterRoutes(public)
	httpapi.NewHomeHandler(cfg.App.ServiceName, cfg.App.Version, cfg.Auth.Mode, cfg.Auth.LoginPath).RegisterRoutes(public)

	projectService := service.NewProjectService(projectStore, taskStore, listCache)
	taskService := service.NewTaskService(projectStore, taskStore, listCache)

	app := r.Group("/", auth.Identify(dep.Resolver, userStore))
	app.Use(limits...)
	app.Use(auth.RequireUser(cfg.Auth.LoginPath))
	projectshttp.New(projectService, taskService, cfg.Auth.LoginPath).Register(app)

	return r
}
