package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
)

// Deps are the collaborators the HTTP surface needs.  Redis may be nil,
// which disables rate limiting and response caching.
type Deps struct {
	Cfg       config.Config
	Log       *zerolog.Logger
	Users     *repository.UserRepo
	Engine    *service.Engine
	Directory *service.Directory
	Redis     *redis.Client
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))

	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(d.Cfg, d.Users, d.Log), d.Cfg.JWTSecret)

	var cache, limiter echo.MiddlewareFunc
	if d.Redis != nil {
		cache = middleware.NewRedisCache(d.Cfg.Cache, d.Redis, d.Log)
		limiter = middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log)
	}
	RegisterPublic(e, handler.NewPublicHandler(d.Directory), cache)
	RegisterAdmin(e, handler.NewAdminHandler(d.Engine, d.Directory), d.Cfg.JWTSecret)
	RegisterCustomer(e, handler.NewCustomerHandler(d.Engine, d.Directory), d.Cfg.JWTSecret, limiter)
	return e
}
