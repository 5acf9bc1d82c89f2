package httpserver

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/util"
)

// bind decodes the body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errs.ErrBadRequest.WithMessage("invalid body").Wrap(err)
	}
	return c.Validate(req)
}

func paramUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errs.ErrValidation.WithDetails(map[string]string{name: "must be a valid UUID"}).Wrap(err)
	}
	return id, nil
}

func pageParams(c echo.Context) (page, size int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	size = util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	return page, size
}
