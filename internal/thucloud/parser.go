package thucloud

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	ioutils "github.com/handiism/thucloud-downloader/internal/io"
)

var (
	shareIDPattern = regexp.MustCompile(`/d/([0-9A-Za-z]+)`)
	titlePattern   = regexp.MustCompile(`<meta property="og:title" content="(.*?)" />`)
)

// ParseShareURL extracts the share identifier and the server base URL from a
// share link such as "https://cloud.tsinghua.edu.cn/d/0123456789abcdef0123/".
//
// The base URL is the link's scheme and host, so shares hosted on other
// servers of the same kind resolve as well.
func ParseShareURL(rawURL string) (shareID, baseURL string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", &ConfigurationError{URL: rawURL, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", &ConfigurationError{URL: rawURL, Err: ErrShareIDNotFound}
	}

	m := shareIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", &ConfigurationError{URL: rawURL, Err: ErrShareIDNotFound}
	}

	return m[1], u.Scheme + "://" + u.Host, nil
}

// ParseRootName extracts the share title from the landing page HTML.
//
// The page declares it as:
//
//	<meta property="og:title" content="Lecture Notes" />
//
// The title is HTML-unescaped and sanitized into a single path component so
// it can serve as the local root directory name.
func ParseRootName(htmlContent string) (string, error) {
	m := titlePattern.FindStringSubmatch(htmlContent)
	if m == nil {
		return "", ErrTitleNotFound
	}

	name := ioutils.SanitizeFileName(html.UnescapeString(m[1]))
	if name == "" || name == "." || name == ".." {
		return "", ErrTitleNotFound
	}
	return name, nil
}
