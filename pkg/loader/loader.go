// Package loader reads source documents from a folder. Plain text and
// markdown are read directly, PDFs through their embedded text layer.
// Files that cannot be read are counted and skipped, never fatal.
package loader

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/GPTNLP/AURA/pkg/logger"
)

// Document is one loaded file: its path relative to the folder root and
// its extracted text.
type Document struct {
	Source string
	Text   string
}

// LoadFolder walks root and loads every supported file. It returns the
// documents, the number of skipped files (unsupported type or read
// failure) and an error only when the walk itself fails.
func LoadFolder(root string) ([]Document, int, error) {
	var docs []Document
	skipped := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		text, err := loadFile(path)
		if err != nil {
			logger.Warn("file skipped", "path", path, "error", err)
			skipped++
			return nil
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("file skipped, no text content", "path", path)
			skipped++
			return nil
		}

		source, relErr := filepath.Rel(root, path)
		if relErr != nil {
			source = path
		}
		docs = append(docs, Document{Source: source, Text: text})
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return docs, skipped, nil
}

func loadFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		payload, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(payload), nil
	case ".pdf":
		return loadPDF(path)
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}
