package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookly/bookly/internal/models"
)

func (r *GormRepo) GetTags(ctx context.Context) ([]models.Tag, error) {
	items := make([]models.Tag, 0)
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetTag(ctx context.Context, uid uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	if err := r.DB.WithContext(ctx).Where("uid = ?", uid).First(&tag).Error; err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

var onTagConflict = clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}

// CreateTagIfNotExists inserts tag unless the name is taken.
func (r *GormRepo) CreateTagIfNotExists(ctx context.Context, tag *models.Tag) error {
	tx := r.DB.WithContext(ctx).Clauses(onTagConflict).Create(tag)
	if tx.Error != nil {
		return alreadyExists(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// AddTagsToBook links the named tags to a book, creating missing tags.
func (r *GormRepo) AddTagsToBook(ctx context.Context, bookUID uuid.UUID, names []string) (*models.Book, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.Where("uid = ?", bookUID).First(&book).Error; err != nil {
			return notFound(err)
		}

		tags := make([]models.Tag, 0, len(names))
		for _, name := range names {
			if err := tx.Clauses(onTagConflict).Create(&models.Tag{Name: name}).Error; err != nil {
				return err
			}
			var tag models.Tag
			if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return tx.Model(&book).Association("Tags").Append(tags)
	})
	if err != nil {
		return nil, err
	}
	return r.GetBook(ctx, bookUID)
}

func (r *GormRepo) UpdateTag(ctx context.Context, uid uuid.UUID, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("uid = ?", uid).First(&tag).Error; err != nil {
			return notFound(err)
		}
		var clash int64
		if err := tx.Model(&models.Tag{}).Where("name = ? AND uid <> ?", name, uid).Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return ErrAlreadyExists
		}
		tag.Name = name
		return alreadyExists(tx.Save(&tag).Error)
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *GormRepo) DeleteTag(ctx context.Context, uid uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tag := models.Tag{UID: uid}
		if err := tx.Exec("DELETE FROM book_tags WHERE tag_uid = ?", uid).Error; err != nil {
			return err
		}
		res := tx.Delete(&tag)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
