package syncer

import (
	"fmt"
	"time"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/schema-sync/internal/schema"
)

// DefaultParseCacheSize is the number of parse results kept by default.
const DefaultParseCacheSize = 256

// parseCacheTTL bounds how long a result is trusted after parsing.
const parseCacheTTL = 30 * time.Minute

// ParseCache remembers successful parse results keyed by the exact DBML text,
// so re-entering a text already parsed (undo, file reload) skips the parser.
type ParseCache struct {
	cache otter.Cache[string, *schema.SchemaAST]
}

// NewParseCache creates a cache holding up to size results.
func NewParseCache(size int) (*ParseCache, error) {
	if size <= 0 {
		size = DefaultParseCacheSize
	}
	cache, err := otter.MustBuilder[string, *schema.SchemaAST](size).
		WithTTL(parseCacheTTL).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build parse cache: %w", err)
	}
	return &ParseCache{cache: cache}, nil
}

// Get returns a copy of the AST cached for text.
func (c *ParseCache) Get(text string) (*schema.SchemaAST, bool) {
	if c == nil {
		return nil, false
	}
	ast, ok := c.cache.Get(text)
	if !ok {
		return nil, false
	}
	return ast.Clone(), true
}

// Put stores a copy of ast for text.
func (c *ParseCache) Put(text string, ast *schema.SchemaAST) {
	if c == nil || ast == nil {
		return
	}
	c.cache.Set(text, ast.Clone())
}

// Close releases the cache.
func (c *ParseCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
