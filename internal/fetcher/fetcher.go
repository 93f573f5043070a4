// Package fetcher reads and writes lead record files in CSV, XLSX and JSON,
// from local paths, ZIP archives or HTTP URLs.
package fetcher

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Localize returns a local path holding the records named by src. HTTP(S)
// sources are downloaded and ZIP archives extracted, both into dir.
func Localize(ctx context.Context, f Fetcher, src, dir string) (string, error) {
	local := src
	if isURL(src) {
		if f == nil {
			return "", eris.Errorf("fetcher: no downloader for %s", src)
		}
		u, err := url.Parse(src)
		if err != nil {
			return "", eris.Wrapf(err, "fetcher: parse url %s", src)
		}
		name := path.Base(u.Path)
		if name == "" || name == "/" || name == "." {
			name = "download"
		}
		local = filepath.Join(dir, name)
		if _, err := f.DownloadToFile(ctx, src, local); err != nil {
			return "", eris.Wrapf(err, "fetcher: download %s", src)
		}
	}

	if strings.EqualFold(filepath.Ext(local), ".zip") {
		return ExtractLeadFile(local, dir)
	}
	return local, nil
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
