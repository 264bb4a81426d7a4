package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Engine wraps pdfcpu for the in-memory document operations the print
// pipeline needs: page counting, validation, blank-page padding and
// merging. All inputs and outputs are raw PDF bytes.
type Engine struct{}

// NewEngine returns a stateless PDF engine.
func NewEngine() *Engine {
	return &Engine{}
}

// PageCount parses the document and returns its page count.
func (e *Engine) PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty document")
	}
	count, err := api.PageCount(bytes.NewReader(data), conf())
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}

// Validate reports whether the bytes form a well-formed PDF with at
// least one page.
func (e *Engine) Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty document")
	}
	if err := api.Validate(bytes.NewReader(data), conf()); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	count, err := api.PageCount(bytes.NewReader(data), conf())
	if err != nil {
		return fmt.Errorf("count pages: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("document has no pages")
	}
	return nil
}

// AppendBlankPage returns a copy of the document with one blank page
// appended after the last page, sized to match it.
func (e *Engine) AppendBlankPage(data []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := api.InsertPages(bytes.NewReader(data), &out, []string{"l"}, false, conf()); err != nil {
		return nil, fmt.Errorf("append blank page: %w", err)
	}
	return out.Bytes(), nil
}

// Merge combines the given documents, in order, into one PDF.
func (e *Engine) Merge(docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}
	readers := make([]io.ReadSeeker, 0, len(docs))
	for _, doc := range docs {
		readers = append(readers, bytes.NewReader(doc))
	}
	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, conf()); err != nil {
		return nil, fmt.Errorf("merge documents: %w", err)
	}
	return out.Bytes(), nil
}

// pdfcpu configurations carry per-operation state, so build a fresh one
// for every call.
func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}
