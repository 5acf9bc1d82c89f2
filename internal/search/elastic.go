package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/bookly/bookly/internal/models"
)

type ESConfig struct {
	URL       string
	Username  string
	Password  string
	Transport http.RoundTripper
}

// NewClient connects and checks the cluster answers Info.
func NewClient(ctx context.Context, cfg ESConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return client, nil
}

type ESIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewESIndex(es *elasticsearch.Client, index string) *ESIndex {
	return &ESIndex{es: es, index: index}
}

type bookDoc struct {
	UID           uuid.UUID   `json:"uid"`
	Title         string      `json:"title"`
	Author        string      `json:"author"`
	Publisher     string      `json:"publisher"`
	PublishedDate models.Date `json:"published_date"`
	PageCount     int         `json:"page_count"`
	Language      string      `json:"language"`
	UserUID       *uuid.UUID  `json:"user_uid"`
}

func (x *ESIndex) Index(ctx context.Context, b *models.Book) error {
	var buf bytes.Buffer
	doc := bookDoc{
		UID: b.UID, Title: b.Title, Author: b.Author, Publisher: b.Publisher,
		PublishedDate: b.PublishedDate, PageCount: b.PageCount, Language: b.Language, UserUID: b.UserUID,
	}
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode book doc: %w", err)
	}

	res, err := x.es.Index(x.index, &buf,
		x.es.Index.WithContext(ctx),
		x.es.Index.WithDocumentID(b.UID.String()),
	)
	if err != nil {
		return fmt.Errorf("index book: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index book: %s", res.Status())
	}
	return nil
}

func (x *ESIndex) Delete(ctx context.Context, uid uuid.UUID) error {
	res, err := x.es.Delete(x.index, uid.String(), x.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete book doc: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete book doc: %s", res.Status())
	}
	return nil
}

func (x *ESIndex) Search(ctx context.Context, rawQ string, from, size int) (Results, error) {
	q := sanitizeQuery(rawQ)
	if q == "" {
		return Results{Items: []models.Book{}}, nil
	}
	from, size = clampPage(from, size)

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"title^2", "author", "publisher"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return Results{}, fmt.Errorf("encode search: %w", err)
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(&buf),
	)
	if err != nil {
		return Results{}, fmt.Errorf("search books: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Results{}, fmt.Errorf("search books: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source models.Book `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return Results{}, fmt.Errorf("decode search: %w", err)
	}

	books := make([]models.Book, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		books[i] = hit.Source
	}
	return Results{Total: r.Hits.Total.Value, Items: books}, nil
}
