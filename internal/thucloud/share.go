package thucloud

import (
	"context"
	"fmt"

	"github.com/handiism/thucloud-downloader/internal/model"
)

// Fetcher is the subset of the HTTP client used by this package.
type Fetcher interface {
	GetString(ctx context.Context, url string) (string, error)
	GetJSON(ctx context.Context, url string, v any) error
}

// Resolve turns a share link into a ShareContext by parsing the link and
// reading the title from the landing page.
//
// A link without a share identifier or a page without a title yields a
// *ConfigurationError. Network failures are returned wrapped as-is.
func Resolve(ctx context.Context, client Fetcher, rawURL string) (model.ShareContext, error) {
	id, base, err := ParseShareURL(rawURL)
	if err != nil {
		return model.ShareContext{}, err
	}

	share := model.ShareContext{ID: id, BaseURL: base}

	page, err := client.GetString(ctx, ShareURL(share))
	if err != nil {
		return model.ShareContext{}, fmt.Errorf("fetch share page: %w", err)
	}

	share.RootName, err = ParseRootName(page)
	if err != nil {
		return model.ShareContext{}, &ConfigurationError{URL: rawURL, Err: err}
	}

	return share, nil
}
