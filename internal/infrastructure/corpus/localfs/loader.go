package localfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

// Loader reads corpus source files from a local directory tree. The first
// path segment under the root names the knowledge domain:
//
//	corpus/tax/vat_filing.md    -> domain "tax"
//	corpus/common/civil_law.pdf -> domain "common"
//
// Files directly under the root get an empty domain. Supported formats are
// plain text (.txt, .md), PDF and XLSX; anything else is skipped with a
// warning.
type Loader struct {
	root string
}

func New(root string) (*Loader, error) {
	if root == "" {
		root = "./data/corpus"
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root is not a directory: %s", root)
	}
	return &Loader{root: root}, nil
}

func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	var out []domain.Document
	err := filepath.WalkDir(l.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		text, err := extractText(path)
		if err != nil {
			slog.Warn("corpus_file_skipped", "path", path, "error", err)
			return nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			rel = path
		}
		out = append(out, domain.Document{
			Content: text,
			Metadata: domain.DocumentMetadata{
				Title:  entry.Name(),
				Source: filepath.ToSlash(rel),
				Domain: domainFromPath(rel),
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus root: %w", err)
	}
	return out, nil
}

func domainFromPath(rel string) string {
	rel = filepath.ToSlash(rel)
	if idx := strings.IndexByte(rel, '/'); idx > 0 {
		return rel[:idx]
	}
	return ""
}

func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return readPlainText(path)
	case ".pdf":
		return readPDF(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return "", fmt.Errorf("unsupported corpus format")
	}
}

func readPlainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("not valid utf-8")
	}
	return string(raw), nil
}

func readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var b bytes.Buffer
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return b.String(), nil
}

func readXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}
