package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/logging"
	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/repo"
	"github.com/bookly/bookly/internal/search"
	"github.com/bookly/bookly/internal/transport"
	"github.com/bookly/bookly/internal/util"
)

type BookService struct {
	Repo  *repo.GormRepo
	Index search.Index
}

func (s *BookService) GetBooks(ctx context.Context, page, size int) (transport.Page[models.Book], error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.GetBooks(ctx, offset, limit)
	if err != nil {
		return transport.Page[models.Book]{}, fmt.Errorf("list books: %w", err)
	}
	return transport.Page[models.Book]{Total: total, Page: page, Size: size, Items: items}, nil
}

func (s *BookService) GetUserBooks(ctx context.Context, userUID uuid.UUID, page, size int) (transport.Page[models.Book], error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.GetUserBooks(ctx, userUID, offset, limit)
	if err != nil {
		return transport.Page[models.Book]{}, fmt.Errorf("list user books: %w", err)
	}
	return transport.Page[models.Book]{Total: total, Page: page, Size: size, Items: items}, nil
}

func (s *BookService) GetBook(ctx context.Context, uid uuid.UUID) (*models.Book, error) {
	book, err := s.Repo.GetBook(ctx, uid)
	return book, bookErr(err)
}

func (s *BookService) CreateBook(ctx context.Context, owner uuid.UUID, req transport.CreateBookRequest) (*models.Book, error) {
	book := &models.Book{
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		PublishedDate: req.PublishedDate,
		PageCount:     req.PageCount,
		Language:      req.Language,
		UserUID:       &owner,
	}
	if _, err := s.Repo.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	s.index(ctx, book)
	return book, nil
}

func (s *BookService) PatchBook(ctx context.Context, uid uuid.UUID, req transport.PatchBookRequest) (*models.Book, error) {
	book, err := s.Repo.PatchBook(ctx, req, uid)
	if err != nil {
		return nil, bookErr(err)
	}
	s.index(ctx, book)
	return book, nil
}

func (s *BookService) DeleteBook(ctx context.Context, uid uuid.UUID) error {
	if err := s.Repo.DeleteBook(ctx, uid); err != nil {
		return bookErr(err)
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, uid); err != nil {
			logging.FromContext(ctx).Warn("search_unindex_failed", "book_uid", uid, "error", err)
		}
	}
	return nil
}

func (s *BookService) Search(ctx context.Context, q string, page, size int) (transport.Page[models.Book], error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	res, err := s.Index.Search(ctx, q, offset, limit)
	if err != nil {
		return transport.Page[models.Book]{}, fmt.Errorf("search books: %w", err)
	}
	return transport.Page[models.Book]{Total: res.Total, Page: page, Size: size, Items: res.Items}, nil
}

// index keeps the search index in step with the store. Failures are logged;
// the book write has already succeeded.
func (s *BookService) index(ctx context.Context, b *models.Book) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, b); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "book_uid", b.UID, "error", err)
	}
}

func bookErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return errs.ErrBookNotFound
	default:
		return fmt.Errorf("book store: %w", err)
	}
}
