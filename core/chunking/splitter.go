// Package chunking splits transcripts into retrieval passages.
package chunking

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the target passage size in bytes.
	DefaultChunkSize = 4000

	// DefaultChunkOverlap is the amount of trailing context carried into
	// the next passage.
	DefaultChunkOverlap = 400
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Options configures the splitter.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		// The fallback must stay below ChunkSize or the accumulation
		// threshold goes negative.
		o.ChunkOverlap = DefaultChunkOverlap
		if o.ChunkOverlap >= o.ChunkSize {
			o.ChunkOverlap = o.ChunkSize / 10
		}
	}
	if o.Separator == "" {
		o.Separator = "\n\n"
	}
	return o
}

// Split breaks text into chunks along paragraph boundaries, keeping each
// chunk near the target size and prefixing every chunk after the first with
// the tail of its predecessor for context continuity. No text is dropped.
func Split(text string, opts Options) []string {
	opts = opts.withDefaults()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	paragraphs := paragraphBreak.Split(text, -1)

	var chunks []string
	var current strings.Builder
	for _, para := range paragraphs {
		if current.Len() > 0 && current.Len()+len(para) > opts.ChunkSize-opts.ChunkOverlap {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(opts.Separator)
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	// Carry trailing context from each chunk into the next.
	final := make([]string, len(chunks))
	for i, chunk := range chunks {
		if i > 0 {
			prev := chunks[i-1]
			overlap := prev
			if len(prev) > opts.ChunkOverlap {
				overlap = prev[len(prev)-opts.ChunkOverlap:]
			}
			chunk = overlap + opts.Separator + chunk
		}
		final[i] = chunk
	}
	return final
}
