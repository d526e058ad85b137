package scanning

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// defaultMaxDimension bounds the longest image side sent to OCR
const defaultMaxDimension = 1500

// imagePrep describes how an image is prepared before OCR
type imagePrep struct {
	maxDimension int
	// enhance applies grayscale, contrast and sharpening for OCR engines
	// that do better on high contrast input
	enhance bool
}

var defaultPrep = imagePrep{maxDimension: defaultMaxDimension}

// prepare decodes the upload, applies the preparation steps and returns PNG data
func (p imagePrep) prepare(imageData []byte, contentType string) ([]byte, error) {
	img, err := decodeImage(imageData, normalizeMimeType(contentType))
	if err != nil {
		return nil, err
	}
	return encodePNG(p.apply(img))
}

func (p imagePrep) apply(img image.Image) image.Image {
	if p.maxDimension > 0 {
		b := img.Bounds()
		if b.Dx() > p.maxDimension || b.Dy() > p.maxDimension {
			img = imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
		}
	}
	if p.enhance {
		img = imaging.Grayscale(img)
		img = imaging.AdjustContrast(img, 30)
		img = imaging.Sharpen(img, 1.0)
	}
	return img
}

// Rotate turns an image clockwise by degrees. A multiple of 360 returns the
// data unchanged; anything else is returned as PNG.
func Rotate(imageData []byte, contentType string, degrees int) ([]byte, string, error) {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	if degrees == 0 {
		return imageData, contentType, nil
	}

	img, err := decodeImage(imageData, normalizeMimeType(contentType))
	if err != nil {
		return nil, "", err
	}

	var rotated image.Image
	switch degrees {
	case 90:
		rotated = imaging.Rotate270(img)
	case 180:
		rotated = imaging.Rotate180(img)
	case 270:
		rotated = imaging.Rotate90(img)
	default:
		// imaging rotates counter-clockwise
		rotated = imaging.Rotate(img, float64(-degrees), color.White)
	}

	data, err := encodePNG(rotated)
	if err != nil {
		return nil, "", err
	}
	return data, "image/png", nil
}

// decodeImage decodes a PDF (first page), HEIC/HEIF or standard image
func decodeImage(imageData []byte, mimeType string) (image.Image, error) {
	switch {
	case mimeType == "application/pdf":
		img, err := pdfToImage(imageData)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		return img, nil
	case isHEICFormat(imageData) || isHEICMimeType(mimeType):
		// Go's standard image package doesn't support HEIC
		img, err := heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// pdfToImage renders the first page of a PDF; receipts are single page
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// normalizeMimeType lowercases and trims a content type, defaulting to JPEG
func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		return "image/jpeg"
	}
	return mimeType
}
