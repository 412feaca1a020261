package objectstore

import (
	"path/filepath"
	"strings"
)

// magicMatcher is one row of the content-type detection table: a byte
// signature a blob must start with (wildcarded positions use -1) to be
// classified as mime.
type magicMatcher struct {
	prefix []int // -1 marks a wildcard byte
	mime   string
}

var magicTable = []magicMatcher{
	{prefix: ints(0xFF, 0xD8, 0xFF), mime: "image/jpeg"},
	{prefix: ints(0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A), mime: "image/png"},
	{prefix: ints(0x47, 0x49, 0x46, 0x38, -1, 0x61), mime: "image/gif"},
	{prefix: ints(0x52, 0x49, 0x46, 0x46, -1, -1, -1, -1, 0x57, 0x45, 0x42, 0x50), mime: "image/webp"},
	{prefix: ints(0x42, 0x4D), mime: "image/bmp"},
}

func ints(bs...int) []int { return bs }

var extensionMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// DetectContentType infers the MIME type of an image blob, preferring the
// filename extension and falling back to the magic-byte table. An
// unrecognized signature returns image/jpeg with ok=false so the caller can
// log a warning without failing the upload.
func DetectContentType(filename string, data []byte) (mime string, ok bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if m, found := extensionMIME[ext]; found {
		return m, true
	}
	for _, matcher := range magicTable {
		if matchesMagic(data, matcher.prefix) {
			return matcher.mime, true
		}
	}
	return "image/jpeg", false
}

func matchesMagic(data []byte, prefix []int) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i, want := range prefix {
		if want == -1 {
			continue
		}
		if data[i] != byte(want) {
			return false
		}
	}
	return true
}

// ExtensionFor returns the filename extension (without the dot) that should
// be used for the image store key, preferring the detected MIME type's
// canonical extension over whatever the original filename carried.
func ExtensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	default:
		return "bin"
	}
}
