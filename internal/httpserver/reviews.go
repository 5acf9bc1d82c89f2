package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/logging"
	authmw "github.com/bookly/bookly/internal/middleware/auth"
	"github.com/bookly/bookly/internal/service"
	"github.com/bookly/bookly/internal/transport"
)

type ReviewHTTP struct {
	Svc *service.ReviewService
}

func (h *ReviewHTTP) GetReviews(c echo.Context) error {
	ctx := c.Request().Context()

	page, size := pageParams(c)
	res, err := h.Svc.GetReviews(ctx, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ReviewHTTP) GetReview(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramUID(c, "review_uid")
	if err != nil {
		return err
	}
	review, err := h.Svc.GetReview(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, review)
}

func (h *ReviewHTTP) AddReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.add")

	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return errs.ErrAccessTokenRequired
	}
	bookUID, err := paramUID(c, "book_uid")
	if err != nil {
		return err
	}

	var req transport.CreateReviewRequest
	if err := bind(c, &req); err != nil {
		l.Warn("review_create_error", "status", errs.StatusOf(err), "reason", "invalid body", "error", err)
		return err
	}

	review, err := h.Svc.AddReview(ctx, claims.UID(), bookUID, req)
	if err != nil {
		l.Warn("review_create_error", "status", errs.StatusOf(err), "book_uid", bookUID, "error", err)
		return err
	}

	l.Info("create_review_success", "review_uid", review.UID)
	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHTTP) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()

	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return errs.ErrAccessTokenRequired
	}
	id, err := paramUID(c, "review_uid")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteReview(ctx, claims.UID(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
