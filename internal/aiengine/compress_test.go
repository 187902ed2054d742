package aiengine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techpost/internal/domain"
)

func fencedBlock(lang string, lines int) string {
	var b strings.Builder
	b.WriteString("```" + lang + "\n")
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	b.WriteString("```")
	return b.String()
}

func TestCompressCodeBlocksShortBlockUnchanged(t *testing.T) {
	t.Parallel()

	input := "intro\n" + fencedBlock("go", 15) + "\noutro"
	assert.Equal(t, input, CompressCodeBlocks(input))
}

func TestCompressCodeBlocksElidesMiddle(t *testing.T) {
	t.Parallel()

	out := CompressCodeBlocks(fencedBlock("go", 20))

	lines := strings.Split(out, "\n")
	// fence + 8 head + marker + 5 tail + fence
	require.Len(t, lines, 16)
	assert.Equal(t, "```go", lines[0])
	assert.Equal(t, "line 1", lines[1])
	assert.Equal(t, "line 8", lines[8])
	assert.Equal(t, "// ... (7 lines omitted)", lines[9])
	assert.Equal(t, "line 16", lines[10])
	assert.Equal(t, "line 20", lines[14])
	assert.Equal(t, "```", lines[15])
}

func TestCompressCodeBlocksHandlesMultipleBlocks(t *testing.T) {
	t.Parallel()

	input := fencedBlock("go", 30) + "\n\nprose\n\n" + fencedBlock("", 5)
	out := CompressCodeBlocks(input)

	assert.Contains(t, out, "// ... (17 lines omitted)")
	assert.Contains(t, out, fencedBlock("", 5), "the short block stays verbatim")
}

func TestCompressForEvaluation(t *testing.T) {
	t.Parallel()

	a := domain.Article{
		ID:    "abc123",
		Title: "Generics in practice",
		Tags:  []domain.Tag{{Name: "Go"}, {Name: "Generics"}},
		Body:  strings.Repeat("x", 300),
	}

	out := CompressForEvaluation(a)

	assert.True(t, strings.HasPrefix(out, "[abc123] Generics in practice\nTags: Go, Generics\n\n"))
	assert.True(t, strings.HasSuffix(out, "..."))
	body := out[strings.Index(out, "\n\n")+2:]
	assert.Len(t, []rune(body), 203, "200-character preview plus ellipsis")
}

func TestCompressForEvaluationReplacesImages(t *testing.T) {
	t.Parallel()

	a := domain.Article{
		ID:    "img",
		Title: "With figures",
		Body:  "see ![architecture diagram](https://img.example/x.png) here",
	}

	out := CompressForEvaluation(a)
	assert.Contains(t, out, "[image: architecture diagram]")
	assert.NotContains(t, out, "img.example")
}

func TestOptimizeForGeneration(t *testing.T) {
	t.Parallel()

	longProse := strings.Repeat("p", 120)
	a := domain.Article{
		Body: "# Heading\n" +
			longProse + "\n" +
			"- bullet item\n" +
			"short prose\n" +
			"\n" +
			"```go\ncode line\n```",
	}

	out := OptimizeForGeneration(a)
	lines := strings.Split(out, "\n")

	assert.Equal(t, "# Heading", lines[0])
	assert.Equal(t, strings.Repeat("p", 50)+"...", lines[1], "long prose keeps a 50-character prefix")
	assert.Equal(t, "- bullet item", lines[2])
	assert.Equal(t, "short prose", lines[3])
	assert.Equal(t, "```go", lines[4], "blank lines are dropped")
	assert.Equal(t, "code line", lines[5])
}

func TestOptimizeForGenerationCapsLength(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&b, "# heading %d\n", i)
	}
	a := domain.Article{Body: b.String()}

	out := OptimizeForGeneration(a)
	assert.LessOrEqual(t, len([]rune(out)), 3003)
	assert.True(t, strings.HasSuffix(out, "..."))
}
