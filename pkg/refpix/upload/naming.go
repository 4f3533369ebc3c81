package upload

import (
	"path"
	"strconv"
	"strings"

	"github.com/ukaji3/refpix-go/pkg/refpix/models"
)

// SanitizeRef maps ref onto the characters [A-Za-z0-9._-], replacing anything
// else with '_'. Case is preserved. A REF with nothing usable left becomes
// "row<N>".
func SanitizeRef(ref string, row int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(ref) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	name := b.String()
	if strings.Trim(name, "._") == "" {
		return "row" + strconv.Itoa(row)
	}
	return name
}

// Extension picks the destination extension: the media entry's own when it
// agrees with the detected format, otherwise the format's canonical one.
// normalized reports whether the entry's extension was replaced.
func Extension(sourceEntry string, format models.ImageFormat) (ext string, normalized bool) {
	original := strings.ToLower(strings.TrimPrefix(path.Ext(sourceEntry), "."))
	if extensionMatches(original, format) {
		return original, false
	}
	return format.Extension(), true
}

func extensionMatches(ext string, format models.ImageFormat) bool {
	switch format {
	case models.FormatJPEG:
		return ext == "jpg" || ext == "jpeg"
	case models.FormatPNG:
		return ext == "png"
	case models.FormatGIF:
		return ext == "gif"
	default:
		return false
	}
}

// DestinationKey returns {basePath}/{ref}.{ext} with ref sanitised. The key is
// a pure function of its inputs, so re-running a file targets the same keys.
func DestinationKey(basePath, ref string, row int, ext string) string {
	name := SanitizeRef(ref, row)
	if ext != "" {
		name += "." + ext
	}
	if strings.Trim(basePath, "/") == "" {
		if strings.HasPrefix(basePath, "/") {
			return "/" + name
		}
		return name
	}
	return path.Join(basePath, name)
}
