package chunker

import "strings"

// DefaultMaxChunkSize is the chunk bound used when none is configured
const DefaultMaxChunkSize = 1000

// sentenceEnders mark where a sentence can end. Each is punctuation
// followed by one whitespace character.
var sentenceEnders = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// Split divides text into ordered chunks of at most maxChunkSize
// characters. Boundaries fall at paragraph breaks where possible; a
// paragraph over the limit is split at sentence boundaries instead. A
// single sentence longer than the limit is emitted whole and alone
// rather than truncated. Empty and whitespace-only segments are
// dropped. maxChunkSize <= 0 falls back to DefaultMaxChunkSize.
//
// Split is deterministic and order-preserving: joining the chunks
// reproduces the input's significant content modulo boundary
// whitespace.
func Split(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	current := ""

	flush := func() {
		if trimmed := strings.TrimSpace(current); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current = ""
	}

	for _, paragraph := range splitParagraphs(text) {
		if len(paragraph) > maxChunkSize {
			// Paragraph alone exceeds the limit; fall back to sentences
			flush()
			for _, sentence := range splitSentences(paragraph) {
				switch {
				case len(sentence) > maxChunkSize:
					// Atomic oversize sentence: emit whole, on its own
					flush()
					chunks = append(chunks, sentence)
				case current == "":
					current = sentence
				case len(current)+1+len(sentence) <= maxChunkSize:
					current += " " + sentence
				default:
					flush()
					current = sentence
				}
			}
			flush()
			continue
		}

		switch {
		case current == "":
			current = paragraph
		case len(current)+2+len(paragraph) <= maxChunkSize:
			current += "\n\n" + paragraph
		default:
			flush()
			current = paragraph
		}
	}
	flush()

	return chunks
}

// splitParagraphs splits text at blank lines, dropping empty segments
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// splitSentences splits a paragraph at sentence boundaries, keeping
// the terminating punctuation with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	rest := text

	for {
		cut := -1
		for _, ender := range sentenceEnders {
			if idx := strings.Index(rest, ender); idx != -1 && (cut == -1 || idx < cut) {
				cut = idx
			}
		}
		if cut == -1 {
			break
		}
		if s := strings.TrimSpace(rest[:cut+1]); s != "" {
			sentences = append(sentences, s)
		}
		rest = rest[cut+2:]
	}

	if s := strings.TrimSpace(rest); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
