package statemachine

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"slices"

	"facette.io/natsort"
	"github.com/fereidani/httpdecompressor"
)

// DirLoader loads graph assets from a directory of a filesystem. Asset names
// are file names without the asset and compression extensions.
type DirLoader struct {
	fsys fs.FS
	root string
}

// NewDirLoader creates a loader over root in fsys. Use os.DirFS for disk
// directories and an embed.FS for bundled assets.
func NewDirLoader(fsys fs.FS, root string) *DirLoader {
	if root == "" {
		root = "."
	}

	return &DirLoader{fsys: fsys, root: root}
}

// Files returns the asset paths under the loader's root, naturally sorted
// (guard2 before guard10).
func (l *DirLoader) Files() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets in %q: %w", l.root, err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() || !IsAssetFile(entry.Name()) {
			continue
		}

		files = append(files, path.Join(l.root, entry.Name()))
	}

	natsort.Sort(files)

	return files, nil
}

// LoadByName reads and decodes the asset called name.
func (l *DirLoader) LoadByName(name string) ([]byte, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if AssetName(file) != name {
			continue
		}

		data, err := fs.ReadFile(l.fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read asset %q: %w", file, err)
		}

		return DecodeAsset(file, data)
	}

	return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, name)
}

// ListAvailable returns the asset names, naturally sorted and deduplicated.
func (l *DirLoader) ListAvailable() []string {
	files, err := l.Files()
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, AssetName(file))
	}

	natsort.Sort(names)

	return slices.Compact(names)
}

// HTTPLoader fetches graph assets from <base>/<name>.yaml. Responses may be
// compressed with any Content-Encoding the decompressor understands.
type HTTPLoader struct {
	base   *url.URL
	client *http.Client
	names  []string
}

// NewHTTPLoader creates a loader for baseURL. names is the catalogue reported
// by ListAvailable; a nil client uses NewAssetClient.
func NewHTTPLoader(baseURL string, client *http.Client, names ...string) (*HTTPLoader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid asset base URL %q: %w", baseURL, err)
	}

	if client == nil {
		client = NewAssetClient(context.Background())
	}

	names = slices.Clone(names)
	natsort.Sort(names)

	return &HTTPLoader{base: base, client: client, names: names}, nil
}

// LoadByName fetches the asset with a background context. The client's
// timeout bounds the request.
func (l *HTTPLoader) LoadByName(name string) ([]byte, error) {
	return l.Fetch(context.Background(), name)
}

// ListAvailable returns the configured catalogue.
func (l *HTTPLoader) ListAvailable() []string {
	return slices.Clone(l.names)
}

// Fetch downloads and decodes the asset called name.
func (l *HTTPLoader) Fetch(ctx context.Context, name string) ([]byte, error) {
	target := l.base.JoinPath(name + ".yaml")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/yaml, text/yaml, */*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")

	rsp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset %q: %w", name, err)
	}

	defer rsp.Body.Close() //nolint:errcheck

	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", ErrAssetFetch, target, rsp.Status)
	}

	body, err := httpdecompressor.Reader(rsp)
	if err != nil {
		return nil, fmt.Errorf("failed to decode asset %q: %w", name, err)
	}

	if body != rsp.Body {
		defer body.Close() //nolint:errcheck
	}

	data, err := readAsset(name, body)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %q: %w", name, err)
	}

	return normalizeText(data)
}
