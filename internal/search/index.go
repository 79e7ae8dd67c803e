// Package search keeps an Elasticsearch index of publicly visible job postings.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/models"
)

const mapping = `{
  "mappings": {
    "properties": {
      "title":          {"type": "text"},
      "description":    {"type": "text"},
      "district":       {"type": "keyword"},
      "block":          {"type": "keyword"},
      "salary":         {"type": "text"},
      "skills":         {"type": "keyword"},
      "employmentType": {"type": "keyword"},
      "employerId":     {"type": "keyword"},
      "publishedAt":    {"type": "date"}
    }
  }
}`

// JobDocument is the indexed view of a public posting.
type JobDocument struct {
	ID             string    `json:"id"`
	EmployerID     string    `json:"employerId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	District       string    `json:"district"`
	Block          string    `json:"block,omitempty"`
	Salary         string    `json:"salary,omitempty"`
	Skills         []string  `json:"skills"`
	EmploymentType string    `json:"employmentType,omitempty"`
	PublishedAt    time.Time `json:"publishedAt"`
}

func documentFor(job *models.JobPosting) JobDocument {
	return JobDocument{
		ID:             job.ID,
		EmployerID:     job.EmployerID,
		Title:          job.Title,
		Description:    job.Description,
		District:       job.District,
		Block:          job.Block,
		Salary:         job.Salary,
		Skills:         job.Skills,
		EmploymentType: job.EmploymentType,
		PublishedAt:    job.UpdatedAt,
	}
}

type Index struct {
	client *elasticsearch.Client
	name   string
	logger logger.Logger
}

func NewIndex(client *elasticsearch.Client, name string, log logger.Logger) *Index {
	return &Index{
		client: client,
		name:   name,
		logger: log.With(map[string]interface{}{"component": "search", "index": name}),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{i.name}}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: i.name, Body: strings.NewReader(mapping)}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index: %s", readError(res))
	}
	i.logger.Info("search index created", nil)
	return nil
}

// Sync indexes a visible posting and removes any other.
func (i *Index) Sync(ctx context.Context, job *models.JobPosting) error {
	if job.Visible() {
		return i.upsert(ctx, job)
	}
	return i.remove(ctx, job.ID)
}

func (i *Index) upsert(ctx context.Context, job *models.JobPosting) error {
	body, err := json.Marshal(documentFor(job))
	if err != nil {
		return err
	}

	res, err := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: job.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index job %s: %w", job.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index job %s: %s", job.ID, readError(res))
	}
	return nil
}

func (i *Index) remove(ctx context.Context, id string) error {
	res, err := esapi.DeleteRequest{Index: i.name, DocumentID: id}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete job %s: %s", id, readError(res))
	}
	return nil
}

// Query filters a search. Text matches title, description and skills.
type Query struct {
	Text     string
	District string
	Skills   []string
	From     int
	Size     int
}

type Result struct {
	Total int64         `json:"total"`
	Jobs  []JobDocument `json:"jobs"`
	Took  int           `json:"took"`
}

func buildQuery(q Query) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"title^3", "description", "skills^2"},
				"type":   "best_fields",
			},
		})
	}
	if q.District != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"district": q.District},
		})
	}
	if len(q.Skills) > 0 {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"skills": q.Skills},
		})
	}
	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must, "filter": filter},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"publishedAt": map[string]interface{}{"order": "desc"}},
		},
	}
}

func (i *Index) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 20
	}
	if q.From < 0 {
		q.From = 0
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, apperrors.NewSearchQueryError(err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{i.name},
		Body:  bytes.NewReader(body),
		From:  &q.From,
		Size:  &q.Size,
	}.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.NewSearchQueryError(fmt.Errorf("%s", readError(res)))
	}

	var raw struct {
		Took int `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source JobDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, apperrors.NewSearchQueryError(fmt.Errorf("decode response: %w", err))
	}

	out := &Result{Total: raw.Hits.Total.Value, Took: raw.Took, Jobs: make([]JobDocument, 0, len(raw.Hits.Hits))}
	for _, h := range raw.Hits.Hits {
		out.Jobs = append(out.Jobs, h.Source)
	}
	return out, nil
}

func readError(res *esapi.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	return fmt.Sprintf("%s: %s", res.Status(), strings.TrimSpace(string(raw)))
}
