package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/logging"
	"github.com/bookly/bookly/internal/service"
	"github.com/bookly/bookly/internal/transport"
)

type TagHTTP struct {
	Svc *service.TagService
}

func (h *TagHTTP) GetTags(c echo.Context) error {
	tags, err := h.Svc.GetTags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

func (h *TagHTTP) CreateTag(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tag.create")

	var req transport.TagRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tag, err := h.Svc.CreateTag(ctx, req)
	if err != nil {
		l.Warn("tag_create_error", "status", errs.StatusOf(err), "name", req.Name, "error", err)
		return err
	}
	return c.JSON(http.StatusCreated, tag)
}

func (h *TagHTTP) AddTagsToBook(c echo.Context) error {
	ctx := c.Request().Context()

	bookUID, err := paramUID(c, "book_uid")
	if err != nil {
		return err
	}

	var req transport.TagsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	book, err := h.Svc.AddTagsToBook(ctx, bookUID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, book)
}

func (h *TagHTTP) UpdateTag(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramUID(c, "tag_uid")
	if err != nil {
		return err
	}

	var req transport.TagRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tag, err := h.Svc.UpdateTag(ctx, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

func (h *TagHTTP) DeleteTag(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramUID(c, "tag_uid")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteTag(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
