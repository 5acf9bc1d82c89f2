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
	"github.com/bookly/bookly/internal/transport"
	"github.com/bookly/bookly/internal/util"
)

type ReviewService struct {
	Repo *repo.GormRepo
}

// AddReview attaches a review by userUID to a book.
func (s *ReviewService) AddReview(ctx context.Context, userUID, bookUID uuid.UUID, req transport.CreateReviewRequest) (*models.Review, error) {
	l := logging.FromContext(ctx).With("svc", "review.add")

	exists, err := s.Repo.BookExists(ctx, bookUID)
	if err != nil {
		l.Error("add_review_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("load book: %w", err)
	}
	if !exists {
		return nil, errs.ErrBookNotFound
	}
	if _, err := s.Repo.GetUserByUID(ctx, userUID); err != nil {
		return nil, userErr(err)
	}

	review := &models.Review{
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		UserUID:    &userUID,
		BookUID:    &bookUID,
	}
	if _, err := s.Repo.CreateReview(ctx, review); err != nil {
		l.Error("add_review_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) GetReview(ctx context.Context, uid uuid.UUID) (*models.Review, error) {
	review, err := s.Repo.GetReview(ctx, uid)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errs.ErrReviewNotFound
		}
		return nil, fmt.Errorf("load review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) GetReviews(ctx context.Context, page, size int) (transport.Page[models.Review], error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.GetReviews(ctx, offset, limit)
	if err != nil {
		return transport.Page[models.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	return transport.Page[models.Review]{Total: total, Page: page, Size: size, Items: items}, nil
}

func (s *ReviewService) GetBookReviews(ctx context.Context, bookUID uuid.UUID) ([]models.Review, error) {
	exists, err := s.Repo.BookExists(ctx, bookUID)
	if err != nil {
		return nil, fmt.Errorf("load book: %w", err)
	}
	if !exists {
		return nil, errs.ErrBookNotFound
	}
	items, err := s.Repo.GetBookReviews(ctx, bookUID)
	if err != nil {
		return nil, fmt.Errorf("list book reviews: %w", err)
	}
	return items, nil
}

// DeleteReview removes a review owned by userUID. A missing review and a
// review owned by someone else both fail with Forbidden.
func (s *ReviewService) DeleteReview(ctx context.Context, userUID, reviewUID uuid.UUID) error {
	review, err := s.Repo.GetReview(ctx, reviewUID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("load review: %w", err)
	}
	if review == nil || review.UserUID == nil || *review.UserUID != userUID {
		logging.FromContext(ctx).Warn("delete_review_failed", "status", 403, "reason", "not the owner", "review_uid", reviewUID)
		return errs.ErrForbidden
	}
	if err := s.Repo.DeleteReview(ctx, reviewUID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}
