package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	authmw "github.com/bookly/bookly/internal/middleware/auth"
	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/ratelimit"
	"github.com/bookly/bookly/internal/tokens"
	"github.com/bookly/bookly/internal/validation"
)

// HealthCheck is one dependency probed by /health/ready.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	AuthHandler   *AuthHTTP
	BookHandler   *BookHTTP
	ReviewHandler *ReviewHTTP
	TagHandler    *TagHTTP

	Tokens  *tokens.Service
	Users   authmw.UserLoader
	Limiter *ratelimit.KeyedRateLimiter
	Checks  []HealthCheck
}

func Register(e *echo.Echo, d *Deps) {
	if e.Validator == nil {
		e.Validator = validation.New()
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	access := authmw.RequireAccess(d.Tokens)
	refresh := authmw.RequireRefresh(d.Tokens)
	members := authmw.RequireRoles(d.Users, models.RoleAdmin, models.RoleUser)
	admins := authmw.RequireAdmin(d.Users)

	var limited []echo.MiddlewareFunc
	if d.Limiter != nil {
		limited = append(limited, ratelimit.Middleware(d.Limiter))
	}

	api := e.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup, limited...)
	auth.POST("/login", d.AuthHandler.Login, limited...)
	auth.GET("/verify/:token", d.AuthHandler.Verify)
	auth.POST("/password-reset-request", d.AuthHandler.PasswordResetRequest, limited...)
	auth.POST("/password-reset-confirm/:token", d.AuthHandler.PasswordResetConfirm, limited...)
	auth.POST("/send_mail", d.AuthHandler.SendMail, limited...)
	auth.GET("/refresh_token", d.AuthHandler.Refresh, refresh)
	auth.GET("/me", d.AuthHandler.Me, access, members)
	auth.GET("/logout", d.AuthHandler.Logout, access)

	books := api.Group("/books", access, members)
	books.GET("", d.BookHandler.GetBooks)
	books.GET("/search", d.BookHandler.SearchBooks)
	books.POST("", d.BookHandler.CreateBook)
	books.GET("/user/:user_uid", d.BookHandler.GetUserBooks)
	books.GET("/:book_uid", d.BookHandler.GetBook)
	books.PATCH("/:book_uid", d.BookHandler.PatchBook)
	books.DELETE("/:book_uid", d.BookHandler.DeleteBook)

	reviews := api.Group("/reviews", access)
	reviews.GET("", d.ReviewHandler.GetReviews, admins)
	reviews.GET("/:review_uid", d.ReviewHandler.GetReview, members)
	reviews.POST("/book/:book_uid", d.ReviewHandler.AddReview, members)
	reviews.DELETE("/:review_uid", d.ReviewHandler.DeleteReview, members)

	tags := api.Group("/tags", access)
	tags.GET("", d.TagHandler.GetTags, members)
	tags.POST("", d.TagHandler.CreateTag, members)
	tags.POST("/book/:book_uid/tags", d.TagHandler.AddTagsToBook, members)
	tags.PUT("/:tag_uid", d.TagHandler.UpdateTag, members)
	tags.DELETE("/:tag_uid", d.TagHandler.DeleteTag, members)
}

func (d *Deps) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(d.Checks))
	code := http.StatusOK
	for _, chk := range d.Checks {
		if err := chk.Ping(ctx); err != nil {
			status[chk.Name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[chk.Name] = "ok"
	}
	return c.JSON(code, status)
}
