package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrExtractionFailed means the uploaded bytes could not be turned into text.
// The caller treats the document as malformed input.
var ErrExtractionFailed = errors.New("text extraction failed")

// Extractor turns one upload format into opaque plain text. The RAG core
// never inspects the bytes itself.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Extractor{}
)

func Register(ext string, e Extractor) {
	key := strings.ToLower(strings.TrimSpace(ext))
	if key == "" || e == nil {
		return
	}
	registryMu.Lock()
	registry[key] = e
	registryMu.Unlock()
}

// For picks an extractor by the file name's extension.
func For(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	registryMu.RLock()
	e := registry[ext]
	registryMu.RUnlock()
	if e == nil {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrExtractionFailed, ext)
	}
	return e, nil
}
