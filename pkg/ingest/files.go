package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// SupportedExtensions are the file types LoadFile accepts.
var SupportedExtensions = []string{".txt", ".md", ".markdown", ".pdf"}

// ErrUnsupportedFile is returned for files LoadFile cannot read as a document.
var ErrUnsupportedFile = errors.New("unsupported file type")

// IsSupportedFile reports whether path names a visible text, markdown or PDF
// file.
func IsSupportedFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(base)))
}

// FileDocumentID derives a stable document ID from the absolute path, so
// ingesting the same file again replaces the earlier version.
func FileDocumentID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String(), nil
}

// LoadFile reads a text, markdown or PDF file into a Document. The title is
// the file name without its extension and the category is the parent
// directory. PDF documents hold the text of their pages.
func LoadFile(path string) (Document, error) {
	if !IsSupportedFile(path) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	id, err := FileDocumentID(path)
	if err != nil {
		return Document{}, err
	}

	var text string
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = readPDF(path)
		if err != nil {
			return Document{}, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return Document{}, fmt.Errorf("reading %s: %w", path, err)
		}
		text = string(data)
	}

	abs, _ := filepath.Abs(path)
	base := filepath.Base(abs)

	return Document{
		ID:       id,
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Category: filepath.Base(filepath.Dir(abs)),
		Text:     text,
		Source:   abs,
	}, nil
}

// LoadPaths loads every named file and every supported file below every
// named directory. Hidden directories are skipped. A named file that is not
// supported is an error; unsupported files inside directories are ignored.
func LoadPaths(paths []string) ([]Document, error) {
	var docs []Document

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		if !info.IsDir() {
			doc, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !IsSupportedFile(p) {
				return nil
			}

			doc, err := LoadFile(p)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}

	return docs, nil
}
