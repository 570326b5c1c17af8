package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const (
	// DefaultIconURL is a printf pattern taking the lower-case base asset.
	DefaultIconURL = "https://assets.coincap.io/assets/icons/%s@2x.png"
	iconSize       = 24
)

// IconDownloader handles downloading and caching base-asset icons
type IconDownloader struct {
	basePath   string
	urlPattern string
	client     *http.Client
}

// NewIconDownloader creates the cache directory and an HTTP client.
// An empty urlPattern uses DefaultIconURL.
func NewIconDownloader(basePath, urlPattern string) (*IconDownloader, error) {
	if basePath == "" {
		return nil, fmt.Errorf("icon directory is empty")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}
	if urlPattern == "" {
		urlPattern = DefaultIconURL
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 10
	transport.MaxConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath:   basePath,
		urlPattern: urlPattern,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon fetches the icon for asset unless it is already cached and
// returns the local path. Images are resized to 24x24.
func (d *IconDownloader) DownloadIcon(ctx context.Context, asset string) (string, error) {
	safe := strings.ToLower(sanitizeSymbol(asset))
	if safe == "" {
		return "", fmt.Errorf("invalid symbol: %q", asset)
	}

	filePath := d.GetIconPath(safe)
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(d.urlPattern, safe), nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Resize(srcImg, iconSize, iconSize, imaging.Lanczos)
	if err := imaging.Save(resized, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}
	return filePath, nil
}

// GetIconPath returns the local path for an asset's icon
func (d *IconDownloader) GetIconPath(asset string) string {
	return filepath.Join(d.basePath, strings.ToLower(sanitizeSymbol(asset))+".png")
}

func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
