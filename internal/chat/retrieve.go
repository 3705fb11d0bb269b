package chat

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
)

const (
	fieldName    = "name"
	fieldContent = "content"
)

// Excerpt is a piece of a session document relevant to a question.
type Excerpt struct {
	Name  string
	Text  string
	Score float64
}

type indexedDoc struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func indexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldContent, content)

	name := bleve.NewTextFieldMapping()
	name.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldName, name)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// Retrieve ranks docs against question with a throwaway in-memory index and
// returns up to limit excerpts, each cut to excerptChars.
func Retrieve(docs []*models.Document, question string, limit, excerptChars int) ([]Excerpt, error) {
	if len(docs) == 0 || limit <= 0 {
		return nil, nil
	}
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("create chat index: %w", err)
	}
	defer index.Close()

	byID := make(map[string]*models.Document, len(docs))
	batch := index.NewBatch()
	for i, d := range docs {
		id := strconv.Itoa(i)
		byID[id] = d
		if err := batch.Index(id, indexedDoc{Name: d.Name, Content: d.Content}); err != nil {
			return nil, fmt.Errorf("index %s: %w", d.Name, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("index documents: %w", err)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(
		matchField(question, fieldContent),
		matchField(question, fieldName),
	))
	req.Size = limit
	res, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	out := make([]Excerpt, 0, len(res.Hits))
	for _, hit := range res.Hits {
		d, ok := byID[hit.ID]
		if !ok {
			continue
		}
		out = append(out, Excerpt{Name: d.Name, Text: prompt.Truncate(d.Content, excerptChars), Score: hit.Score})
	}
	return out, nil
}

func matchField(text, field string) query.Query {
	q := bleve.NewMatchQuery(text)
	q.SetField(field)
	return q
}
