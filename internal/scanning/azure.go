package scanning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

// Azure implements the Recognizer interface using Azure Computer Vision OCR
type Azure struct {
	client computervision.BaseClient
	prep   imagePrep
}

// NewAzure creates a new Azure Recognizer for the given Cognitive Services endpoint
func NewAzure(endpoint, apiKey string) (*Azure, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("azure endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("azure api key is required")
	}

	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return &Azure{
		client: client,
		prep:   imagePrep{maxDimension: defaultMaxDimension, enhance: true},
	}, nil
}

// RecognizeText reads the printed Japanese text on a receipt
func (a *Azure) RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	finalImageData, err := a.prep.prepare(imageData, contentType)
	if err != nil {
		return "", err
	}

	result, err := a.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(finalImageData)),
		computervision.OcrLanguagesJa,
	)
	if err != nil {
		return "", fmt.Errorf("recognizing printed text: %w", err)
	}

	return ocrResultText(result), nil
}

// Close is a no-op; the autorest client holds no resources
func (a *Azure) Close() error {
	return nil
}

// ocrResultText flattens an OCR result into one text line per OCR line
func ocrResultText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}

	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			if text := joinWords(words); text != "" {
				lines = append(lines, text)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// joinWords joins OCR words, putting a space only between two ASCII words.
// Japanese text comes back one character per word and must not be spaced.
func joinWords(words []string) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 && b.Len() > 0 && w != "" {
			prev, _ := utf8.DecodeLastRuneInString(b.String())
			next, _ := utf8.DecodeRuneInString(w)
			if prev < utf8.RuneSelf && next < utf8.RuneSelf {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w)
	}
	return strings.TrimSpace(b.String())
}
