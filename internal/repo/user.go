package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookly/bookly/internal/models"
)

func (r *GormRepo) UserExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateUserIfNotExists inserts u unless a user with the same email exists,
// in which case nothing is written and ErrAlreadyExists is returned.
func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(u)
	if tx.Error != nil {
		return alreadyExists(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) GetUserByUID(ctx context.Context, uid uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserWithRelations loads the user together with their books and reviews.
func (r *GormRepo) GetUserWithRelations(ctx context.Context, uid uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Preload("Books", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("uid = ?", uid).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) SetVerified(ctx context.Context, email string) error {
	return r.updateUser(ctx, email, "is_verified", true)
}

func (r *GormRepo) SetPassword(ctx context.Context, email, hash string) error {
	return r.updateUser(ctx, email, "password_hash", hash)
}

func (r *GormRepo) updateUser(ctx context.Context, email, column string, value any) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
