package blob

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/dimitrije/medportal-api/internal/apperr"
)

// NormalizeTitle derives a course's folder name: whitespace removed, lowercased.
// "  Sesión  8 " becomes "sesión8".
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ObjectPath builds {normalizedCourseTitle}/{originalFileName}.
func ObjectPath(courseTitle, fileName string) (ObjectRef, error) {
	folder := NormalizeTitle(courseTitle)
	if folder == "" {
		return "", apperr.Validation("blob.path", "invalid_title", "course title is required")
	}
	if err := validateSegment(folder); err != nil {
		return "", err
	}
	if err := validateSegment(fileName); err != nil {
		return "", err
	}
	return ObjectRef(folder + "/" + fileName), nil
}

func validateSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, "/\\") || strings.ContainsRune(s, 0) {
		return apperr.Validation("blob.path", "invalid_file_name", "invalid file name "+strconv.Quote(s))
	}
	return nil
}

// split returns the folder and name segments of ref.
func (r ObjectRef) split() (string, string, bool) {
	folder, name, ok := strings.Cut(string(r), "/")
	if !ok || validateSegment(folder) != nil || validateSegment(name) != nil {
		return "", "", false
	}
	return folder, name, true
}

// ParseRef validates a {folder}/{name} reference received from a client.
func ParseRef(folder, name string) (ObjectRef, error) {
	if err := validateSegment(folder); err != nil {
		return "", err
	}
	if err := validateSegment(name); err != nil {
		return "", err
	}
	return ObjectRef(folder + "/" + name), nil
}

// urlFor renders the download URL for ref under baseURL.
func urlFor(baseURL string, ref ObjectRef) string {
	folder, name, _ := ref.split()
	return strings.TrimRight(baseURL, "/") + "/api/v1/files/" + url.PathEscape(folder) + "/" + url.PathEscape(name)
}

// refFromURL reverses urlFor. Only URLs under baseURL are accepted.
func refFromURL(baseURL, raw string) (ObjectRef, error) {
	prefix := strings.TrimRight(baseURL, "/") + "/api/v1/files/"
	rest, ok := strings.CutPrefix(raw, prefix)
	if !ok {
		return "", apperr.Validation("blob.url", "foreign_url", "attachment URL does not belong to this portal")
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	rawFolder, rawName, ok := strings.Cut(rest, "/")
	if !ok {
		return "", apperr.Validation("blob.url", "invalid_url", "malformed attachment URL")
	}
	folder, err := url.PathUnescape(rawFolder)
	if err != nil {
		return "", apperr.Validation("blob.url", "invalid_url", "malformed attachment URL")
	}
	name, err := url.PathUnescape(rawName)
	if err != nil {
		return "", apperr.Validation("blob.url", "invalid_url", "malformed attachment URL")
	}
	return ParseRef(folder, name)
}
