package scanning

import (
	"strings"
)

// transcribePrompt is the shared prompt used by the LLM recognizers. The
// extraction heuristics expect raw OCR output, so the model must not
// interpret or reformat anything.
const transcribePrompt = `You are an OCR engine. Transcribe every piece of text printed on this receipt exactly as it appears.

Rules:
- Output one printed line per output line, top to bottom, in the original order
- Keep the original language and characters (Japanese, full-width symbols, ¥, 円)
- Keep numbers, dates, times, phone numbers and registration numbers exactly as printed
- Do not translate, summarize, correct or reorder anything
- Do not add commentary, headings or markdown
- If the image has no readable text, output nothing`

// cleanTranscript strips wrapping an LLM may add around a transcription
func cleanTranscript(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	// Remove markdown code fences, with or without a language tag
	if strings.HasPrefix(text, "```") {
		if nl := strings.Index(text, "\n"); nl != -1 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}
