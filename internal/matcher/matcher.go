package matcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/maypok86/otter"

	"github.com/mvp-joe/ifc-lca/internal/storage"
)

// Defaults used when Options leave a field zero.
const (
	DefaultMaxResults = 5
	DefaultCacheSize  = 1000
	DefaultFuzziness  = 1
)

// Matcher finds environmental database products for model material names.
type Matcher interface {
	// Match returns up to limit candidates for a material name, best first.
	// A limit <= 0 uses the configured maximum.
	Match(ctx context.Context, name string, limit int) ([]Candidate, error)

	// MatchAll matches every material of a project summary.
	MatchAll(ctx context.Context, materials []storage.MaterialSummary) ([]MaterialMatch, error)

	// Len returns the number of indexed products.
	Len() int

	// Close releases the index and the query cache.
	Close() error
}

// Candidate is a scored database product.
type Candidate struct {
	Product
	Score float64 `json:"score"`
}

// MaterialMatch pairs a stored material with its candidates.
type MaterialMatch struct {
	Material   storage.MaterialSummary `json:"material"`
	Candidates []Candidate             `json:"candidates"`
}

// Options configures a Matcher.
type Options struct {
	MaxResults int
	CacheSize  int // 0 disables the query cache
	Fuzziness  int // edit distance for fuzzy terms, 0..2
}

// matcher implements Matcher with an in-memory bleve index and an otter
// cache of query results.
type matcher struct {
	index      bleve.Index
	products   map[string]Product
	cache      otter.Cache[string, []Candidate]
	hasCache   bool
	maxResults int
	fuzziness  int
	mu         sync.RWMutex
}

// New indexes products and returns a ready Matcher.
func New(ctx context.Context, products []Product, opts Options) (Matcher, error) {
	if len(products) == 0 {
		return nil, ErrEmptyDatabase
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Fuzziness < 0 || opts.Fuzziness > 2 {
		opts.Fuzziness = DefaultFuzziness
	}

	index, err := bleve.NewMemOnly(buildBleveMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	m := &matcher{
		index:      index,
		products:   make(map[string]Product, len(products)),
		maxResults: opts.MaxResults,
		fuzziness:  opts.Fuzziness,
	}

	if err := m.indexProducts(ctx, products); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index products: %w", err)
	}

	if opts.CacheSize > 0 {
		cache, err := otter.MustBuilder[string, []Candidate](opts.CacheSize).
			CollectStats().
			Build()
		if err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		m.cache = cache
		m.hasCache = true
	}

	return m, nil
}

// NewFromFile loads a JSON environmental database and indexes it.
func NewFromFile(ctx context.Context, path string, opts Options) (Matcher, error) {
	products, err := LoadDatabase(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, products, opts)
}

// buildBleveMapping creates the index mapping for product documents.
func buildBleveMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	// Name field (primary search target) - standard analyzer
	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = "standard"
	nameMapping.Store = false
	nameMapping.Index = true
	nameMapping.IncludeTermVectors = true // Enable phrase search

	// Category field (secondary search target)
	categoryMapping := bleve.NewTextFieldMapping()
	categoryMapping.Analyzer = "standard"
	categoryMapping.Store = false
	categoryMapping.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("category", categoryMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// indexProducts adds products to the bleve index in batches.
func (m *matcher) indexProducts(ctx context.Context, products []Product) error {
	const batchSize = 1000

	batch := m.index.NewBatch()
	for i, p := range products {
		if i%batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		m.products[p.ID] = p
		doc := map[string]interface{}{
			"name":     p.Name,
			"category": p.Category,
		}
		if err := batch.Index(p.ID, doc); err != nil {
			return fmt.Errorf("failed to add product %s to batch: %w", p.ID, err)
		}

		if batch.Size() >= batchSize {
			if err := m.index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = m.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := m.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

// Match searches the name field with fuzzy terms, boosts exact phrases and
// lets the category contribute a little.
func (m *matcher) Match(ctx context.Context, name string, limit int) ([]Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []Candidate{}, nil
	}
	if limit <= 0 || limit > m.maxResults {
		limit = m.maxResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.index == nil {
		return nil, ErrClosed
	}

	key := fmt.Sprintf("%s\x00%d", strings.ToLower(name), limit)
	if m.hasCache {
		if cached, ok := m.cache.Get(key); ok {
			return cached, nil
		}
	}

	fuzzy := bleve.NewMatchQuery(name)
	fuzzy.SetField("name")
	fuzzy.SetFuzziness(m.fuzziness)

	phrase := bleve.NewMatchPhraseQuery(name)
	phrase.SetField("name")
	phrase.SetBoost(2.0)

	category := bleve.NewMatchQuery(name)
	category.SetField("category")
	category.SetBoost(0.5)

	request := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(fuzzy, phrase, category), limit, 0, false)

	result, err := m.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(result.Hits))
	for _, hit := range result.Hits {
		p, ok := m.products[hit.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{Product: p, Score: hit.Score})
	}

	if m.hasCache {
		m.cache.Set(key, candidates)
	}
	return candidates, nil
}

// MatchAll matches each material in order. It stops at the first error.
func (m *matcher) MatchAll(ctx context.Context, materials []storage.MaterialSummary) ([]MaterialMatch, error) {
	matches := make([]MaterialMatch, 0, len(materials))
	for _, mat := range materials {
		candidates, err := m.Match(ctx, mat.Name, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to match material %q: %w", mat.Name, err)
		}
		matches = append(matches, MaterialMatch{Material: mat, Candidates: candidates})
	}
	return matches, nil
}

func (m *matcher) Len() int {
	return len(m.products)
}

// Close releases resources held by the matcher.
func (m *matcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasCache {
		m.cache.Close()
		m.hasCache = false
	}
	if m.index != nil {
		err := m.index.Close()
		m.index = nil
		return err
	}
	return nil
}
