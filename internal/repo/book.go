package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/transport"
)

func (r *GormRepo) GetBooks(ctx context.Context, offset, limit int) (int64, []models.Book, error) {
	return r.listBooks(ctx, r.DB.WithContext(ctx).Model(&models.Book{}), offset, limit)
}

func (r *GormRepo) GetUserBooks(ctx context.Context, userUID uuid.UUID, offset, limit int) (int64, []models.Book, error) {
	return r.listBooks(ctx, r.DB.WithContext(ctx).Model(&models.Book{}).Where("user_uid = ?", userUID), offset, limit)
}

func (r *GormRepo) listBooks(ctx context.Context, q *gorm.DB, offset, limit int) (int64, []models.Book, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Book, 0, limit)
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// GetBook loads a book with its reviews and tags.
func (r *GormRepo) GetBook(ctx context.Context, uid uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.DB.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Tags").
		Where("uid = ?", uid).
		First(&book).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &book, nil
}

func (r *GormRepo) BookExists(ctx context.Context, uid uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Book{}).Where("uid = ?", uid).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.DB.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

func (r *GormRepo) PatchBook(ctx context.Context, req transport.PatchBookRequest, uid uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.DB.WithContext(ctx).Where("uid = ?", uid).First(&book).Error; err != nil {
		return nil, notFound(err)
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Publisher != nil {
		book.Publisher = *req.Publisher
	}
	if req.PageCount != nil {
		book.PageCount = *req.PageCount
	}
	if req.Language != nil {
		book.Language = *req.Language
	}

	if err := r.DB.WithContext(ctx).Save(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// DeleteBook removes the book, its reviews and its tag links.
func (r *GormRepo) DeleteBook(ctx context.Context, uid uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book := models.Book{UID: uid}
		if err := tx.Model(&book).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("book_uid = ?", uid).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		res := tx.Where("uid = ?", uid).Delete(&models.Book{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
