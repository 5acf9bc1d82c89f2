// Package search finds books by free text. Elasticsearch is used when
// configured; otherwise queries fall back to the relational store.
package search

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/bookly/bookly/internal/models"
)

type Results struct {
	Total int64         `json:"total"`
	Items []models.Book `json:"items"`
}

type Index interface {
	Index(ctx context.Context, b *models.Book) error
	Delete(ctx context.Context, uid uuid.UUID) error
	Search(ctx context.Context, q string, from, size int) (Results, error)
}

func sanitizeQuery(q string) string {
	return strings.TrimSpace(q)
}

func clampPage(from, size int) (int, int) {
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	if from < 0 {
		from = 0
	}
	return from, size
}
