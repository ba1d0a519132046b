package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes an external tool and returns its stdout. Indirection
// exists so tests can stub the pdftotext binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type pdfExtractor struct {
	runner CommandRunner
}

func init() {
	Register(".pdf", &pdfExtractor{runner: execRunner{}})
}

func NewPDFExtractor(runner CommandRunner) Extractor {
	if runner == nil {
		runner = execRunner{}
	}
	return &pdfExtractor{runner: runner}
}

// Extract shells out to poppler's pdftotext. The bytes go through a temp
// file because pdftotext cannot read a PDF from stdin reliably.
func (e *pdfExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docchat-*.pdf")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("%w: pdftotext: %v", ErrExtractionFailed, err)
	}
	return strings.TrimRight(string(out), "\f\n "), nil
}
