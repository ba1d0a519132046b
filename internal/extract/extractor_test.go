package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitat-apps/docchat/internal/extract"
)

func TestForByExtension(t *testing.T) {
	for _, name := range []string{"lease.pdf", "notes.md", "terms.txt", "UPPER.PDF"} {
		e, err := extract.For(name)
		require.NoError(t, err, name)
		require.NotNil(t, e)
	}
}

func TestForUnsupported(t *testing.T) {
	_, err := extract.For("image.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
}

func TestPlaintextExtract(t *testing.T) {
	e, err := extract.For("a.txt")
	require.NoError(t, err)

	out, err := e.Extract(context.Background(), []byte("The tenant must pay rent.\n"))
	require.NoError(t, err)
	assert.Equal(t, "The tenant must pay rent.\n", out)

	_, err = e.Extract(context.Background(), []byte{0xff, 0xfe, 0x00})
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
}

func TestMarkdownExtract(t *testing.T) {
	e, err := extract.For("a.md")
	require.NoError(t, err)

	src := "# Lease Terms\n\nThe tenant must pay **rent** monthly.\n\n- deposit\n- repairs\n\n```\nraw clause\n```\n"
	out, err := e.Extract(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Contains(t, out, "Lease Terms")
	assert.Contains(t, out, "The tenant must pay rent monthly.")
	assert.Contains(t, out, "deposit")
	assert.Contains(t, out, "raw clause")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "#")
}

type fakeRunner struct {
	out []byte
	err error
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return f.out, f.err
}

func TestPDFExtract(t *testing.T) {
	e := extract.NewPDFExtractor(&fakeRunner{out: []byte("page one text\n\fpage two text\n\f")})
	out, err := e.Extract(context.Background(), []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "page one text\n\fpage two text", out)
}

func TestPDFExtractFailure(t *testing.T) {
	e := extract.NewPDFExtractor(&fakeRunner{err: errors.New("exit status 1")})
	_, err := e.Extract(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
}
