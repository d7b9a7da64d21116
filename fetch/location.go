package fetch

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// IsURL reports whether loc is an http or https URL.
func IsURL(loc string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// localPath returns the filesystem path of loc, which is either a plain
// path or a file:// URL.
func localPath(loc string) string {
	if strings.HasPrefix(loc, "file://") {
		if u, err := url.Parse(loc); err == nil {
			return filepath.FromSlash(u.Path)
		}
	}
	return loc
}

// WithExt replaces the extension of the last path segment of loc. Query
// and fragment of URLs are kept.
func WithExt(loc, ext string) string {
	if IsURL(loc) || strings.HasPrefix(loc, "file://") {
		u, err := url.Parse(loc)
		if err == nil {
			u.Path = strings.TrimSuffix(u.Path, path.Ext(u.Path)) + ext
			return u.String()
		}
	}
	return strings.TrimSuffix(loc, filepath.Ext(loc)) + ext
}

// Basename returns the last path segment of loc.
func Basename(loc string) string {
	if IsURL(loc) {
		if u, err := url.Parse(loc); err == nil {
			if b := path.Base(u.Path); b != "/" && b != "." {
				return b
			}
			return u.Host
		}
	}
	return filepath.Base(localPath(loc))
}
