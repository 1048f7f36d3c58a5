package thucloud

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/handiism/thucloud-downloader/internal/model"
)

// Quote escapes s for use in a query value the way the share server's own
// web client does: "/" stays literal and spaces become %20.
func Quote(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	return strings.ReplaceAll(escaped, "%2F", "/")
}

// ListURL returns the listing endpoint for one directory of the share.
func ListURL(share model.ShareContext, dirPath string) string {
	return fmt.Sprintf("%s/api/v2.1/share-links/%s/dirents/?thumbnail_size=48&path=%s",
		share.BaseURL, url.PathEscape(share.ID), Quote(dirPath))
}

// DownloadURL returns the direct download URL for one file of the share.
func DownloadURL(share model.ShareContext, filePath string) string {
	return fmt.Sprintf("%s/d/%s/files/?p=%s&dl=1",
		share.BaseURL, url.PathEscape(share.ID), Quote(filePath))
}

// ShareURL returns the landing page URL of the share.
func ShareURL(share model.ShareContext) string {
	return fmt.Sprintf("%s/d/%s/", share.BaseURL, url.PathEscape(share.ID))
}
