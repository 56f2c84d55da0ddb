package client

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// multipartWriter wraps mime/multipart with a file-attachment helper.
type multipartWriter struct {
	*multipart.Writer
}

func newMultipartWriter(w io.Writer) *multipartWriter {
	return &multipartWriter{multipart.NewWriter(w)}
}

// WriteFile attaches a local file under the given form field.
func (w *multipartWriter) WriteFile(field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to copy %s: %w", path, err)
	}
	return nil
}
