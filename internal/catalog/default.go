package catalog

import (
	_ "embed"
	"sync"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the built-in retail catalog. The embedded document is
// validated by tests, so a load failure here is a programming error.
func Default() *Catalog {
	defaultOnce.Do(func() {
		cat, err := Parse(defaultCatalogYAML)
		if err != nil {
			panic("catalog: embedded default catalog: " + err.Error())
		}
		defaultCat = cat
	})
	return defaultCat
}

// DefaultSource returns the raw embedded catalog document.
func DefaultSource() []byte {
	out := make([]byte, len(defaultCatalogYAML))
	copy(out, defaultCatalogYAML)
	return out
}
