package aiengine

import (
	"fmt"
	"regexp"
	"strings"

	"techpost/internal/domain"
)

const (
	// codeBlockKeepThreshold is the longest fenced block passed through
	// unchanged. Longer blocks keep their first 8 and last 5 lines.
	codeBlockKeepThreshold = 15
	codeBlockHeadLines     = 8
	codeBlockTailLines     = 5

	evaluationPreviewRunes = 200
	proseLinePrefixRunes   = 50
	generationBodyCapRunes = 3000
)

var (
	codeBlockRe = regexp.MustCompile("(?s)```(\\w*)\n(.+?)```")
	imageRe     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	headingRe   = regexp.MustCompile(`^#+\s`)
	listItemRe  = regexp.MustCompile(`^[-*]\s`)
)

// CompressCodeBlocks elides the middle of long fenced code blocks so the
// prompt cost stays bounded regardless of article length. Blocks of up to
// 15 lines pass through unchanged.
func CompressCodeBlocks(markdown string) string {
	return codeBlockRe.ReplaceAllStringFunc(markdown, func(block string) string {
		sub := codeBlockRe.FindStringSubmatch(block)
		lang, code := sub[1], sub[2]

		lines := strings.Split(strings.TrimSpace(code), "\n")
		if len(lines) <= codeBlockKeepThreshold {
			return block
		}

		omitted := len(lines) - codeBlockHeadLines - codeBlockTailLines
		kept := make([]string, 0, codeBlockHeadLines+codeBlockTailLines+1)
		kept = append(kept, lines[:codeBlockHeadLines]...)
		kept = append(kept, fmt.Sprintf("// ... (%d lines omitted)", omitted))
		kept = append(kept, lines[len(lines)-codeBlockTailLines:]...)

		return "```" + lang + "\n" + strings.Join(kept, "\n") + "\n```"
	})
}

// CompressForEvaluation shrinks one article to a short labeled snippet for
// the batch evaluation prompt: compressed code, image placeholders, and a
// 200-character body preview plus the tag list.
func CompressForEvaluation(a domain.Article) string {
	compressed := CompressCodeBlocks(a.Body)
	compressed = imageRe.ReplaceAllString(compressed, "[image: $1]")

	preview := compressed
	ellipsis := ""
	if runes := []rune(compressed); len(runes) > evaluationPreviewRunes {
		preview = string(runes[:evaluationPreviewRunes])
		ellipsis = "..."
	}

	tags := strings.Join(a.TagNames(), ", ")
	return fmt.Sprintf("[%s] %s\nTags: %s\n\n%s%s", a.ID, a.Title, tags, preview, ellipsis)
}

// OptimizeForGeneration reduces the article body for the generation
// prompt. Headings, list lines, and code blocks are kept verbatim; prose
// lines are trimmed to a short prefix; the result is capped at 3000
// characters.
func OptimizeForGeneration(a domain.Article) string {
	optimized := CompressCodeBlocks(a.Body)
	optimized = imageRe.ReplaceAllString(optimized, "[image: $1]")

	var kept []string
	inCodeBlock := false
	for _, line := range strings.Split(optimized, "\n") {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			kept = append(kept, line)
			continue
		}

		switch {
		case inCodeBlock, headingRe.MatchString(line), listItemRe.MatchString(line):
			kept = append(kept, line)
		case strings.TrimSpace(line) != "":
			runes := []rune(line)
			if len(runes) > proseLinePrefixRunes {
				kept = append(kept, string(runes[:proseLinePrefixRunes])+"...")
			} else {
				kept = append(kept, line)
			}
		}
	}

	result := strings.Join(kept, "\n")
	if runes := []rune(result); len(runes) > generationBodyCapRunes {
		result = string(runes[:generationBodyCapRunes]) + "..."
	}
	return result
}
