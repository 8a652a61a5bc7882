package storage

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/rs/xid"
)

const cacheControl = "public, max-age=2592000"

// ObjectKey turns a client-supplied name into a safe object key. With suffix
// set, a random token is inserted before the extension: "cat.png" becomes
// "cat-<token>.png".
func ObjectKey(name string, suffix bool) string {
	key := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if key == "" {
		key = "upload"
	}
	if !suffix {
		return key
	}
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "-" + xid.New().String() + ext
}

// keyFromURL returns the object key for rawURL when it lives under base.
func keyFromURL(base, rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(u.Scheme, b.Scheme) || !strings.EqualFold(u.Host, b.Host) {
		return "", false
	}
	prefix := strings.TrimRight(b.Path, "/") + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, prefix)
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", false
		}
	}
	return key, true
}

func joinURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

func downloadURL(publicURL string) string {
	return publicURL + "?download=1"
}

func inlineDisposition(key string) string {
	return fmt.Sprintf("inline; filename=%q", path.Base(key))
}
