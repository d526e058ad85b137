package receipt

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
)

// Characters allowed in stored file names: ASCII alphanumerics, CJK
// punctuation, kana, full-width forms and kanji.
var unsafeNameChars = regexp.MustCompile(`(?i)[^a-z0-9\x{3000}-\x{303f}\x{3040}-\x{309f}\x{30a0}-\x{30ff}\x{ff00}-\x{ff9f}\x{4e00}-\x{9faf}\x{3400}-\x{4dbf}]`)

var knownExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/heic":      ".heic",
	"image/heif":      ".heif",
	"application/pdf": ".pdf",
}

// storedFilename builds the descriptive name of a receipt image:
// <id>_<YYYYMMDD>_<company>_<amount>_<payment suffix>_<category><ext>
func storedFilename(id string, f Fields, ext string) string {
	datePart := "00000000"
	if f.Date != "" {
		datePart = strings.ReplaceAll(f.Date, "-", "")
	}
	return fmt.Sprintf("%s_%s_%s_%d_%s_%s%s",
		id,
		datePart,
		safeNamePart(f.CompanyName),
		f.TotalAmount,
		f.PaymentMethod.FileSuffix(),
		safeNamePart(f.Category),
		ext,
	)
}

func safeNamePart(s string) string {
	if s == "" {
		return "Unknown"
	}
	return unsafeNameChars.ReplaceAllString(s, "_")
}

// extensionFor picks a file extension from the content type, falling back
// to the uploaded file name
func extensionFor(filename, contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		if ext, ok := knownExtensions[mediaType]; ok {
			return ext
		}
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	return ".bin"
}

// contentTypeFor guesses a content type from an uploaded file name
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}
