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

type BookHTTP struct {
	Svc *service.BookService
}

func (h *BookHTTP) GetBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.get_books")

	page, size := pageParams(c)
	res, err := h.Svc.GetBooks(ctx, page, size)
	if err != nil {
		l.Error("get_books_error", "status", 500, "reason", "cannot list books", "error", err)
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *BookHTTP) SearchBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.search")

	page, size := pageParams(c)
	res, err := h.Svc.Search(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		l.Error("search_books_error", "status", 500, "reason", "search failed", "error", err)
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *BookHTTP) GetUserBooks(c echo.Context) error {
	ctx := c.Request().Context()

	userUID, err := paramUID(c, "user_uid")
	if err != nil {
		return err
	}
	page, size := pageParams(c)
	res, err := h.Svc.GetUserBooks(ctx, userUID, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *BookHTTP) GetBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.get_book")

	id, err := paramUID(c, "book_uid")
	if err != nil {
		return err
	}
	book, err := h.Svc.GetBook(ctx, id)
	if err != nil {
		l.Warn("get_book_failed", "status", errs.StatusOf(err), "book_uid", id, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, book)
}

func (h *BookHTTP) CreateBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.create")

	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return errs.ErrAccessTokenRequired
	}

	var req transport.CreateBookRequest
	if err := bind(c, &req); err != nil {
		l.Warn("book_create_error", "status", errs.StatusOf(err), "reason", "invalid body", "error", err)
		return err
	}

	book, err := h.Svc.CreateBook(ctx, claims.UID(), req)
	if err != nil {
		l.Error("book_create_error", "status", 500, "reason", "cannot add book to db", "error", err)
		return err
	}

	l.Info("create_book_success", "book_uid", book.UID)
	return c.JSON(http.StatusCreated, book)
}

func (h *BookHTTP) PatchBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.patch")

	id, err := paramUID(c, "book_uid")
	if err != nil {
		return err
	}

	var req transport.PatchBookRequest
	if err := bind(c, &req); err != nil {
		l.Warn("book_patch_error", "status", errs.StatusOf(err), "reason", "invalid body", "error", err)
		return err
	}

	book, err := h.Svc.PatchBook(ctx, id, req)
	if err != nil {
		l.Warn("book_patch_error", "status", errs.StatusOf(err), "book_uid", id, "error", err)
		return err
	}

	l.Info("patch_book_success", "book_uid", id)
	return c.JSON(http.StatusOK, book)
}

func (h *BookHTTP) DeleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.delete")

	id, err := paramUID(c, "book_uid")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteBook(ctx, id); err != nil {
		l.Warn("book_delete_error", "status", errs.StatusOf(err), "book_uid", id, "error", err)
		return err
	}

	l.Info("delete_book_success", "book_uid", id)
	return c.NoContent(http.StatusNoContent)
}
