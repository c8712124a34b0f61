// Package document extracts plain text from uploaded documents.
package document

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
)

// extractor converts raw file bytes into text.
type extractor func(data []byte) (string, error)

// Parser dispatches on file extension to a format-specific extractor.
// Content problems are reported as bracketed markers rather than errors.
type Parser struct {
	supported  map[string]struct{}
	extractors map[string]extractor
	kinds      map[string]string
}

// NewParser creates a parser for the default set of document types.
func NewParser() *Parser {
	p := &Parser{
		supported:  make(map[string]struct{}),
		extractors: make(map[string]extractor),
		kinds:      make(map[string]string),
	}
	for _, ext := range []string{".txt", ".md", ".csv", ".json", ".xml", ".html", ".htm", ".pdf", ".docx", ".doc", ".rtf"} {
		p.supported[ext] = struct{}{}
	}
	p.register(".pdf", "PDF", extractPDF)
	p.register(".csv", "CSV", extractCSV)
	p.register(".docx", "DOCX", extractDOCX)
	p.register(".json", "JSON", extractJSON)
	return p
}

func (p *Parser) register(ext, kind string, fn extractor) {
	p.extractors[ext] = fn
	p.kinds[ext] = kind
}

// ParseFile returns the text content of the named file.
func (p *Parser) ParseFile(filename string, data []byte) string {
	ext := Extension(filename)
	if !p.IsSupported(filename) {
		return fmt.Sprintf("[Unsupported file type: %s]", ext)
	}

	fn, ok := p.extractors[ext]
	if !ok {
		text, err := extractText(data)
		if err != nil {
			log.Printf("ERROR: text parsing failed for %s: %v", filename, err)
			return fmt.Sprintf("[Text parsing failed: %v]", err)
		}
		return text
	}

	text, err := fn(data)
	if err != nil {
		kind := p.kinds[ext]
		log.Printf("ERROR: %s parsing failed for %s: %v", kind, filename, err)
		return fmt.Sprintf("[%s parsing failed: %v]", kind, err)
	}
	return text
}

// ParseContent cleans text that arrived inline with a request:
// lines are trimmed and blank lines dropped.
func (p *Parser) ParseContent(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}

// IsSupported reports whether filename has a parseable extension.
func (p *Parser) IsSupported(filename string) bool {
	_, ok := p.supported[Extension(filename)]
	return ok
}

// SupportedExtensions lists the accepted extensions in sorted order.
func (p *Parser) SupportedExtensions() []string {
	out := make([]string, 0, len(p.supported))
	for ext := range p.supported {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// SizeMB returns the size of data in megabytes.
func SizeMB(data []byte) float64 {
	return float64(len(data)) / (1024 * 1024)
}

// Extension returns the lowercased extension of filename, including the dot.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
