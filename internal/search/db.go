package search

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookly/bookly/internal/models"
)

// DBIndex searches the books table directly. Index and Delete are no-ops
// because the table is the index.
type DBIndex struct {
	DB *gorm.DB
}

func (x *DBIndex) Index(context.Context, *models.Book) error { return nil }

func (x *DBIndex) Delete(context.Context, uuid.UUID) error { return nil }

func (x *DBIndex) Search(ctx context.Context, rawQ string, from, size int) (Results, error) {
	q := sanitizeQuery(rawQ)
	if q == "" {
		return Results{Items: []models.Book{}}, nil
	}
	from, size = clampPage(from, size)

	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	where := "LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(author) LIKE ? ESCAPE '\\'"
	tx := x.DB.WithContext(ctx).Model(&models.Book{}).Where(where, pattern, pattern)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return Results{}, err
	}

	items := make([]models.Book, 0, size)
	if err := x.DB.WithContext(ctx).
		Where(where, pattern, pattern).
		Order("created_at DESC").
		Limit(size).
		Offset(from).
		Find(&items).Error; err != nil {
		return Results{}, err
	}
	return Results{Total: total, Items: items}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
