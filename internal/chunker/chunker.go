package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/promptkb/pkg/types"
)

const (
	// MaxTokensPerChunk is the target maximum token count per chunk
	MaxTokensPerChunk = 500

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4
)

// ChunkStrategy defines how text is divided
type ChunkStrategy int

const (
	// StrategySection starts a new chunk at every markdown heading, then packs paragraphs
	StrategySection ChunkStrategy = iota
	// StrategyParagraph packs paragraphs and ignores headings
	StrategyParagraph
)

// StrategyFor picks the strategy for a file type (lowercase extension without the dot).
// Only prose formats treat '#' lines as headings.
func StrategyFor(fileType string) ChunkStrategy {
	switch fileType {
	case "md", "markdown", "mdx", "txt", "rst":
		return StrategySection
	default:
		return StrategyParagraph
	}
}

// Chunker splits extracted text into bounded chunks
type Chunker struct {
	maxTokens int
}

// Option configures a Chunker
type Option func(*Chunker)

// WithMaxTokens sets the target maximum tokens per chunk
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// New creates a new Chunker instance
func New(opts ...Option) *Chunker {
	c := &Chunker{maxTokens: MaxTokensPerChunk}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// block is a run of lines kept together
type block struct {
	text       string
	start, end int // 1-based line numbers
}

// ChunkText splits content using the section strategy
func (c *Chunker) ChunkText(content string) []*types.Chunk {
	return c.ChunkTextWithStrategy(content, StrategySection)
}

// ChunkTextWithStrategy splits content into chunks of at most maxTokens*TokensPerChar bytes.
// Paragraphs are never split unless a single paragraph exceeds the limit.
func (c *Chunker) ChunkTextWithStrategy(content string, strategy ChunkStrategy) []*types.Chunk {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	maxChars := c.maxTokens * TokensPerChar

	chunks := make([]*types.Chunk, 0)
	heading := ""
	var pending []block
	pendingLen := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		parts := make([]string, len(pending))
		for i, b := range pending {
			parts[i] = b.text
		}
		chunk := &types.Chunk{
			Index:     len(chunks),
			Heading:   heading,
			Content:   strings.Join(parts, "\n\n"),
			StartLine: pending[0].start,
			EndLine:   pending[len(pending)-1].end,
		}
		chunk.ComputeTokenCount()
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
		pending = nil
		pendingLen = 0
	}

	add := func(b block) {
		size := len(b.text)
		if pendingLen > 0 {
			size += 2
		}
		if pendingLen > 0 && pendingLen+size > maxChars {
			flush()
			size = len(b.text)
		}
		pending = append(pending, b)
		pendingLen += size
	}

	var para []string
	paraStart := 0
	endParagraph := func(endLine int) {
		if len(para) == 0 {
			return
		}
		whole := block{text: strings.Join(para, "\n"), start: paraStart, end: endLine}
		for _, b := range splitBlock(whole, maxChars) {
			add(b)
		}
		para = nil
	}

	for i, line := range lines {
		lineNo := i + 1

		if strategy == StrategySection {
			if h, ok := parseHeading(line); ok {
				endParagraph(lineNo - 1)
				flush()
				heading = h
				para = []string{line}
				paraStart = lineNo
				endParagraph(lineNo)
				continue
			}
		}

		if strings.TrimSpace(line) == "" {
			endParagraph(lineNo - 1)
			continue
		}
		if len(para) == 0 {
			paraStart = lineNo
		}
		para = append(para, line)
	}
	endParagraph(len(lines))
	flush()

	return chunks
}

// splitBlock breaks an oversized paragraph at line boundaries, and oversized lines at
// word or rune boundaries
func splitBlock(b block, maxChars int) []block {
	if len(b.text) <= maxChars {
		return []block{b}
	}

	var out []block
	var cur []string
	curLen, curStart := 0, b.start

	emit := func(end int) {
		if len(cur) > 0 {
			out = append(out, block{text: strings.Join(cur, "\n"), start: curStart, end: end})
		}
		cur = nil
		curLen = 0
	}

	for j, line := range strings.Split(b.text, "\n") {
		lineNo := b.start + j

		if len(line) > maxChars {
			emit(lineNo - 1)
			for _, piece := range splitLine(line, maxChars) {
				out = append(out, block{text: piece, start: lineNo, end: lineNo})
			}
			curStart = lineNo + 1
			continue
		}

		size := len(line)
		if curLen > 0 {
			size++
		}
		if curLen > 0 && curLen+size > maxChars {
			emit(lineNo - 1)
			curStart = lineNo
			size = len(line)
		}
		if len(cur) == 0 {
			curStart = lineNo
		}
		cur = append(cur, line)
		curLen += size
	}
	emit(b.end)

	return out
}

// splitLine cuts s into pieces of at most maxChars bytes, preferring the last space
// in the second half of each window
func splitLine(s string, maxChars int) []string {
	var pieces []string
	for len(s) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			_, size := utf8.DecodeRuneInString(s)
			cut = size
		}
		if idx := strings.LastIndexByte(s[:cut], ' '); idx > cut/2 {
			cut = idx + 1
		}
		if piece := strings.TrimSpace(s[:cut]); piece != "" {
			pieces = append(pieces, piece)
		}
		s = s[cut:]
	}
	if piece := strings.TrimSpace(s); piece != "" {
		pieces = append(pieces, piece)
	}
	return pieces
}

// parseHeading recognises ATX markdown headings ("# Title" through "###### Title")
func parseHeading(line string) (string, bool) {
	t := strings.TrimLeft(line, " ")
	if len(line)-len(t) > 3 {
		return "", false // Indented code
	}

	level := 0
	for level < len(t) && t[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return "", false
	}
	if level < len(t) && t[level] != ' ' && t[level] != '\t' {
		return "", false // "#tag"
	}

	text := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(t[level:]), "#"))
	if text == "" {
		return "", false
	}
	return text, true
}

// EstimateTokenCount estimates token count for text using chars/4 heuristic
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
