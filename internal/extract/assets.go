package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// AssetWriter stores an extracted image and returns the path it should be
// referenced by from rendered output.
type AssetWriter interface {
	WriteImage(name string, data []byte) (string, error)
}

// unsupportedImageExts are vector formats no renderer can display.
var unsupportedImageExts = map[string]bool{
	".emf": true,
	".wmf": true,
}

// DirAssets writes images under Root/images/<folder>/, where folder is
// derived from the source's relative path so documents never share a folder.
// Files are only rewritten when their bytes change.
type DirAssets struct {
	Root   string
	Folder string
}

// NewDirAssets returns the asset writer for one source document.
func NewDirAssets(root, sourceRelPath string) *DirAssets {
	return &DirAssets{Root: root, Folder: ImageFolder(sourceRelPath)}
}

// ImageFolder names the image folder of a source document.
func ImageFolder(sourceRelPath string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(sourceRelPath)))
	return hex.EncodeToString(sum[:])[:16]
}

func (a *DirAssets) WriteImage(name string, data []byte) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, "..") {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	rel := path.Join("images", a.Folder, name)
	dst := filepath.Join(a.Root, filepath.FromSlash(rel))

	if existing, err := os.ReadFile(dst); err == nil && bytes.Equal(existing, data) {
		return rel, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}
