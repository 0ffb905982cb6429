package packager

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wharfctl/wharf/internal/logging"
	"github.com/wharfctl/wharf/internal/model"
)

// Packager builds the deployment zip for an application from the
// project directory. Archives are deterministic: entries are added in
// walk order with fixed timestamps, so identical sources produce
// byte-identical archives and the content-addressed filename is
// stable across runs.
type Packager struct {
	projectDir string
}

func New(projectDir string) *Packager {
	return &Packager{projectDir: projectDir}
}

// zip entry timestamps are pinned so rebuilds of unchanged sources
// hash identically
var fixedModTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Create builds the archive and returns its path under
// .wharf/packages. An archive with the same content hash is reused.
func (p *Packager) Create(app *model.Application) (string, error) {
	content, err := p.buildArchive()
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(content)
	filename := fmt.Sprintf("%s-%s.zip", app.Name, hex.EncodeToString(digest[:])[:12])
	outDir := filepath.Join(p.projectDir, ".wharf", "packages")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create package directory: %w", err)
	}

	outPath := filepath.Join(outDir, filename)
	if _, err := os.Stat(outPath); err == nil {
		logging.Debug("reusing deployment package", "path", outPath)
		return outPath, nil
	}

	if err := os.WriteFile(outPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write deployment package: %w", err)
	}
	logging.Debug("built deployment package", "path", outPath, "bytes", len(content))
	return outPath, nil
}

func (p *Packager) buildArchive() ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	err := filepath.WalkDir(p.projectDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.projectDir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if skipFile(rel) {
			return nil
		}
		return addFile(w, path, rel)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to package %s: %w", p.projectDir, err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize deployment package: %w", err)
	}
	return buf.Bytes(), nil
}

func addFile(w *zip.Writer, path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	header := &zip.FileHeader{
		Name:     filepath.ToSlash(rel),
		Method:   zip.Deflate,
		Modified: fixedModTime,
	}
	header.SetMode(info.Mode().Perm())

	entry, err := w.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(entry, f)
	return err
}

func skipDir(rel string) bool {
	base := filepath.Base(rel)
	if rel == "." {
		return false
	}
	return base == ".wharf" || base == ".git" || base == "__pycache__" || base == "node_modules"
}

func skipFile(rel string) bool {
	base := filepath.Base(rel)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".zip") || strings.HasSuffix(base, ".pyc")
}
