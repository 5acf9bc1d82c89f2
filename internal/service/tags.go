package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/repo"
	"github.com/bookly/bookly/internal/transport"
)

type TagService struct {
	Repo *repo.GormRepo
}

func (s *TagService) GetTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.Repo.GetTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (s *TagService) CreateTag(ctx context.Context, req transport.TagRequest) (*models.Tag, error) {
	tag := &models.Tag{Name: req.Name}
	if err := s.Repo.CreateTagIfNotExists(ctx, tag); err != nil {
		return nil, tagErr(err)
	}
	return tag, nil
}

func (s *TagService) AddTagsToBook(ctx context.Context, bookUID uuid.UUID, req transport.TagsRequest) (*models.Book, error) {
	names := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		names = append(names, t.Name)
	}
	book, err := s.Repo.AddTagsToBook(ctx, bookUID, names)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errs.ErrBookNotFound
		}
		return nil, fmt.Errorf("tag book: %w", err)
	}
	return book, nil
}

func (s *TagService) UpdateTag(ctx context.Context, uid uuid.UUID, req transport.TagRequest) (*models.Tag, error) {
	tag, err := s.Repo.UpdateTag(ctx, uid, req.Name)
	return tag, tagErr(err)
}

func (s *TagService) DeleteTag(ctx context.Context, uid uuid.UUID) error {
	return tagErr(s.Repo.DeleteTag(ctx, uid))
}

func tagErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return errs.ErrTagNotFound
	case errors.Is(err, repo.ErrAlreadyExists):
		return errs.ErrTagExists
	default:
		return fmt.Errorf("tag store: %w", err)
	}
}
