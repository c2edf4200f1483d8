package mediaurl

import (
	"net/url"
	"strings"
)

const PathPrefix = "/uploads/"

// Image builds the public URL of a stored image, e.g.
// https://booth.example/uploads/clothing_images/<id>.
func Image(baseURL, area, imageID string) string {
	if imageID == "" {
		return ""
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return baseURL + PathPrefix + area + "/" + imageID
}

// ParseImage extracts area and image id from a URL built by Image. A bare
// path is accepted as well.
func ParseImage(raw string) (area, imageID string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}

	path := u.Path
	if path == "" {
		path = raw
	}

	if !strings.HasPrefix(path, PathPrefix) {
		return "", "", false
	}

	parts := strings.Split(strings.TrimPrefix(path, PathPrefix), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}
