package git

import (
	"path/filepath"
	"strings"
)

// AbsoluteURL resolves a relative local repository path against the current
// directory. URLs with a scheme and scp-style "host:path" addresses are
// returned unchanged.
func AbsoluteURL(url string) string {
	if url == "" || filepath.IsAbs(url) || strings.Contains(url, "://") {
		return url
	}
	if i := strings.Index(url, ":"); i > 0 && !strings.Contains(url[:i], "/") {
		return url
	}
	abs, err := filepath.Abs(url)
	if err != nil {
		return url
	}
	return abs
}
