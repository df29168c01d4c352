package adlibrary

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/ads"
)

var mimeToExt = []struct {
	mime, ext string
}{
	{"image/jpeg", "jpg"},
	{"image/png", "png"},
	{"image/gif", "gif"},
	{"video/mp4", "mp4"},
	{"video/webm", "webm"},
	{"video/ogg", "ogv"},
}

// ExtensionFor maps a Content-Type header to a file extension, "bin" when unknown.
func ExtensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	for _, m := range mimeToExt {
		if strings.Contains(ct, m.mime) {
			return m.ext
		}
	}
	return "bin"
}

// SanitizeFilename keeps letters, digits, spaces, underscores and dashes.
func SanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

// Downloader saves ad creatives to a folder.
type Downloader struct {
	fetcher *Fetcher
	dir     string
	log     utils.Logger
}

func NewDownloader(fetcher *Fetcher, dir string, log utils.Logger) *Downloader {
	return &Downloader{fetcher: fetcher, dir: dir, log: utils.OrNop(log)}
}

// Download fetches rawURL and stores it as <dir>/<base>.<ext>, with the
// extension taken from the response Content-Type.
func (d *Downloader) Download(ctx context.Context, rawURL, base string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", err
	}

	resp, err := d.fetcher.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("downloading %s: status code %d", rawURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ext := ExtensionFor(contentType)
	if ext == "bin" {
		d.log.Debugf("Unknown Content-Type %q for %s, defaulting to bin", contentType, rawURL)
	}

	path := filepath.Join(d.dir, SanitizeFilename(base)+"."+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	d.log.Infof("Saved media: %s (Content-Type: %s)", path, contentType)
	return path, nil
}

// DownloadAll saves the images and videos of ranked ads. Individual failures
// are logged and skipped. It returns the saved paths.
func (d *Downloader) DownloadAll(ctx context.Context, ranked []ads.RawAd) []string {
	var saved []string
	fetch := func(rank int, ad ads.RawAd, kind string, urls []string) {
		for j, u := range urls {
			base := fmt.Sprintf("ad_%d_%s_%s_%d", rank, ad.Advertiser, kind, j+1)
			path, err := d.Download(ctx, u, base)
			if err != nil {
				d.log.Warnf("Error downloading media from %s: %v", u, err)
				continue
			}
			saved = append(saved, path)
		}
	}
	for i, ad := range ranked {
		fetch(i+1, ad, "image", ad.ImageURLs)
		fetch(i+1, ad, "video", ad.VideoURLs)
	}
	return saved
}
