package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/google/uuid"

	"github.com/Skotchmaster/polyglot_blog/internal/models"
)

// Index keeps published blogs searchable by their localized text.
type Index struct {
	es   *elasticsearch.Client
	name string
}

func NewIndex(es *elasticsearch.Client, name string) *Index {
	return &Index{es: es, name: name}
}

type document struct {
	Slug        string            `json:"slug"`
	CategoryID  string            `json:"categoryId,omitempty"`
	Title       map[string]string `json:"title"`
	Summary     map[string]string `json:"summary"`
	Content     map[string]string `json:"content"`
	Tags        []string          `json:"tags"`
	Published   bool              `json:"published"`
	PublishedAt *time.Time        `json:"publishedAt,omitempty"`
}

func toDocument(b *models.Blog) document {
	d := document{
		Slug:        b.Slug,
		Title:       b.Title,
		Summary:     b.Summary,
		Content:     b.Content,
		Tags:        b.Tags,
		Published:   b.Published,
		PublishedAt: b.PublishedAt,
	}
	if b.CategoryID != nil {
		d.CategoryID = b.CategoryID.String()
	}
	return d
}

const mapping = `{
  "mappings": {
    "dynamic_templates": [
      {"localized": {"path_match": "*.*", "match_mapping_type": "string", "mapping": {"type": "text"}}}
    ],
    "properties": {
      "slug":        {"type": "keyword"},
      "categoryId":  {"type": "keyword"},
      "tags":        {"type": "keyword"},
      "published":   {"type": "boolean"},
      "publishedAt": {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.name}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.es.Indices.Create(i.name,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	return checkResponse("create index", res)
}

func (i *Index) IndexBlog(ctx context.Context, b *models.Blog) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(toDocument(b)); err != nil {
		return fmt.Errorf("elasticsearch: encode: %w", err)
	}

	res, err := i.es.Index(i.name, &buf,
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(b.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index: %w", err)
	}
	return checkResponse("index", res)
}

func (i *Index) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	res, err := i.es.Delete(i.name, id.String(), i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: delete: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse("delete", res)
}

// Search returns matching blog ids ordered by relevance. Fields in lang are
// boosted over the other translations.
func (i *Index) Search(ctx context.Context, query, lang string, from, size int) (int64, []uuid.UUID, error) {
	fields := []string{"title.*^3", "summary.*^2", "content.*", "tags^2"}
	if lang != "" {
		fields = append(fields, "title."+lang+"^5", "summary."+lang+"^3")
	}
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    fields,
						"fuzziness": "AUTO",
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"published": true}},
				},
			},
		},
		"_source": false,
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: encode query: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.name),
		i.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("elasticsearch: search: %s: %s", res.Status(), b)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: decode: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return r.Hits.Total.Value, ids, nil
}

func checkResponse(op string, res *esapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: %s: %s: %s", op, res.Status(), b)
	}
	return nil
}
