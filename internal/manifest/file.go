package manifest

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/MrSnakeDoc/onboard/internal/domain"
)

//go:embed fixtures/*.json
var fixtures embed.FS

// FileFetcher serves manifests from a file system, one file per deployment.
// The file name is the first label of the base URL host plus ".json",
// e.g. https://test0.openremote.app -> test0.json.
type FileFetcher struct {
	fsys fs.FS
}

// NewFileFetcher creates a fetcher reading from fsys.
func NewFileFetcher(fsys fs.FS) *FileFetcher {
	return &FileFetcher{fsys: fsys}
}

// NewDirFetcher creates a fetcher reading from a local directory.
func NewDirFetcher(dir string) *FileFetcher {
	return NewFileFetcher(os.DirFS(dir))
}

// NewFixtureFetcher serves the built-in fixture deployments test0..test8.
func NewFixtureFetcher() *FileFetcher {
	sub, err := fs.Sub(fixtures, "fixtures")
	if err != nil {
		panic(fmt.Sprintf("manifest fixtures: %v", err))
	}
	return NewFileFetcher(sub)
}

// FetchManifest implements domain.ManifestFetcher.
func (f *FileFetcher) FetchManifest(ctx context.Context, baseURL string) (*domain.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := fileName(baseURL)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	return Parse(data)
}

// fileName maps a base URL to its manifest file.
func fileName(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid base url %q: no host", baseURL)
	}
	label, _, _ := strings.Cut(strings.ToLower(host), ".")
	if !fs.ValidPath(label) {
		return "", fmt.Errorf("invalid base url %q: unusable host label", baseURL)
	}
	return label + ".json", nil
}
