// Package archive unpacks uploaded HTML bundles and picks the page that
// becomes the article body.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ErrCorruptArchive = errors.New("file is not a valid zip archive")
	ErrNoMarkupFound  = errors.New("archive contains no .html or .htm file")
	ErrArchiveTooBig  = errors.New("archive expands beyond the allowed size")
)

const (
	indexFile = "index.html"

	defaultMaxExtractedBytes = 200 << 20
	defaultMaxEntries        = 10000
)

type Result struct {
	Content string
	// Entry is the selected file relative to the archive root
	Entry string
	Files int
}

type Processor struct {
	tempRoot          string
	policy            *bluemonday.Policy
	maxExtractedBytes int64
	maxEntries        int
}

// NewProcessor extracts under tempRoot. When sanitize is set the selected
// markup is passed through a user-generated-content policy before it is returned.
func NewProcessor(tempRoot string, sanitize bool) *Processor {
	p := &Processor{
		tempRoot:          tempRoot,
		maxExtractedBytes: defaultMaxExtractedBytes,
		maxEntries:        defaultMaxEntries,
	}
	if sanitize {
		p.policy = bluemonday.UGCPolicy()
	}
	return p
}

// Process extracts archivePath into a fresh directory, selects the primary
// markup file and returns its text. The directory is gone when Process returns.
func (p *Processor) Process(ctx context.Context, archivePath string) (*Result, error) {
	dir, err := os.MkdirTemp(p.tempRoot, "html-zip-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer func() {
		rmErr := os.RemoveAll(dir)
		if rmErr != nil {
			slog.Warn("failed to remove extraction dir", "error", rmErr)
		}
	}()

	files, err := p.extract(ctx, archivePath, dir)
	if err != nil {
		return nil, err
	}

	entry, err := selectMarkup(dir)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(dir, entry))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.ToSlash(entry), err)
	}

	content := string(raw)
	if p.policy != nil {
		content = p.policy.Sanitize(content)
	}

	return &Result{
		Content: content,
		Entry:   filepath.ToSlash(entry),
		Files:   files,
	}, nil
}

func (p *Processor) extract(ctx context.Context, archivePath, dir string) (int, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	defer func() { _ = zr.Close() }()

	if len(zr.File) > p.maxEntries {
		return 0, fmt.Errorf("%w: %d entries", ErrArchiveTooBig, len(zr.File))
	}

	var written int64
	files := 0
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		target, err := safeJoin(dir, f.Name)
		if err != nil {
			return 0, err
		}

		if f.FileInfo().IsDir() {
			err = os.MkdirAll(target, 0o755)
			if err != nil {
				return 0, err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue // symlinks and devices are never followed
		}

		n, err := p.extractFile(f, target, p.maxExtractedBytes-written)
		if err != nil {
			return 0, err
		}
		written += n
		files++
	}
	return files, nil
}

func (p *Processor) extractFile(f *zip.File, target string, budget int64) (int64, error) {
	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return 0, err
	}

	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrCorruptArchive, f.Name, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	defer func() { _ = dst.Close() }()

	// Read one byte past the budget to detect overflow without trusting the header sizes
	n, err := io.Copy(dst, io.LimitReader(src, budget+1))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrCorruptArchive, f.Name, err)
	}
	if n > budget {
		return 0, ErrArchiveTooBig
	}
	return n, nil
}

// safeJoin rejects entries that would land outside dir (zip slip).
func safeJoin(dir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: illegal path %q", ErrCorruptArchive, name)
	}
	return filepath.Join(dir, cleaned), nil
}

// selectMarkup returns, relative to dir: index.html at the root, else the
// first index.html found while walking, else the first .html/.htm file.
func selectMarkup(dir string) (string, error) {
	if info, err := os.Stat(filepath.Join(dir, indexFile)); err == nil && info.Mode().IsRegular() {
		return indexFile, nil
	}

	var firstIndex, firstMarkup string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// macOS zips carry resource forks that look like html files
			if d.Name() == "__MACOSX" {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if d.Name() == indexFile {
			firstIndex = rel
			return filepath.SkipAll
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if firstMarkup == "" && (ext == ".html" || ext == ".htm") {
			firstMarkup = rel
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch {
	case firstIndex != "":
		return firstIndex, nil
	case firstMarkup != "":
		return firstMarkup, nil
	default:
		return "", ErrNoMarkupFound
	}
}
