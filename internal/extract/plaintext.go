package extract

import (
	"context"
	"fmt"
	"unicode/utf8"
)

type plaintextExtractor struct{}

func init() {
	e := &plaintextExtractor{}
	Register(".txt", e)
	Register(".text", e)
}

func (e *plaintextExtractor) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: file is not valid utf-8 text", ErrExtractionFailed)
	}
	return string(data), nil
}
