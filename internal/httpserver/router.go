package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"coinboard/internal/domain"
	upbitsvc "coinboard/internal/service/upbit"
	usersvc "coinboard/internal/service/user"
)

// CategoryService is the category surface the handlers need.
type CategoryService interface {
	Create(ctx context.Context, req domain.CategoryRequest) (*domain.Category, error)
	Update(ctx context.Context, id int64, req domain.CategoryRequest) (*domain.Category, error)
	Delete(ctx context.Context, id int64, mode domain.DeleteMode) error
	Get(ctx context.Context, id int64) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	ListRoots(ctx context.Context) ([]domain.Category, error)
	ListChildren(ctx context.Context, parentID int64) ([]domain.Category, error)
	ListTree(ctx context.Context) ([]domain.CategoryNode, error)
}

// UserService covers signup, login and token resolution.
type UserService interface {
	Signup(ctx context.Context, in usersvc.SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	ChangeRole(ctx context.Context, actor domain.User, userID int64, role domain.Role) (*domain.User, error)
	AccessTTLSeconds() int
}

// UpbitService manages the caller's linked exchange account.
type UpbitService interface {
	Link(ctx context.Context, userID int64, in upbitsvc.LinkInput) (*upbitsvc.AccountView, error)
	Get(ctx context.Context, userID int64) (*upbitsvc.AccountView, error)
	Unlink(ctx context.Context, userID int64) error
	Exists(ctx context.Context, userID int64) (bool, error)
}

// Deps groups the services the router dispatches to.
type Deps struct {
	CategorySvc CategoryService
	UserSvc     UserService
	UpbitSvc    UpbitService
}

func (d Deps) validate() error {
	switch {
	case d.CategorySvc == nil:
		return errors.New("httpserver: category service required")
	case d.UserSvc == nil:
		return errors.New("httpserver: user service required")
	case d.UpbitSvc == nil:
		return errors.New("httpserver: upbit service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestIDMiddleware(logger), accessLogMiddleware(logger), recoveryMiddleware(logger))
	if len(corsOrigins) > 0 {
		router.Use(cors.New(corsConfig(corsOrigins)))
	}

	h := &handlers{deps: deps}

	router.GET("/healthz", healthHandler)
	var dbPinger pinger
	if db != nil {
		dbPinger = db
	}
	router.GET("/readyz", readyHandler(dbPinger))

	auth := router.Group("/auth")
	auth.POST("/signup", h.signup)
	auth.POST("/token", h.token)

	authed := router.Group("/", authMiddleware(deps.UserSvc))
	authed.GET("/me", h.me)
	authed.GET("/me/upbit-account", h.getUpbitAccount)
	authed.HEAD("/me/upbit-account", h.upbitAccountExists)
	authed.PUT("/me/upbit-account", h.linkUpbitAccount)
	authed.DELETE("/me/upbit-account", h.unlinkUpbitAccount)

	admin := router.Group("/", authMiddleware(deps.UserSvc), requireRole(domain.RoleAdmin))
	admin.PUT("/users/:id/role", h.changeRole)
	admin.POST("/categories", h.createCategory)
	admin.PUT("/categories/:id", h.updateCategory)
	admin.DELETE("/categories/:id", h.deleteCategory)

	router.GET("/categories", h.listRootCategories)
	router.GET("/categories/tree", h.categoryTree)
	router.GET("/categories/by-name/:name", h.categoryByName)
	router.GET("/categories/:id", h.getCategory)
	router.GET("/categories/:id/children", h.listChildCategories)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

type handlers struct {
	deps Deps
}
