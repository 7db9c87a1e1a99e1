package normalize

import (
	"fmt"
	"strings"

	"github.com/crosscore/cloud-ocr-summarizer/internal/annotation"
)

// Normalize converts a raw annotation tree into a stable Record.
//
// Responses without a text annotation are skipped entirely; emitted
// pages are numbered densely from 1. Blocks are confidence-filtered
// before assembly, and everything else flows through untouched: page
// text and confidence are source-supplied, never recomputed. The same
// tree and options always produce the same record.
func Normalize(tree *annotation.Tree, opts Options) (*Record, error) {
	if tree == nil || tree.Responses == nil {
		return nil, fmt.Errorf("%w: missing responses list", annotation.ErrInvalidShape)
	}
	switch opts.Mode {
	case ModeSimple, ModeDetailed:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, opts.Mode)
	}

	rec := &Record{Pages: make([]Page, 0)}
	for _, resp := range tree.Responses {
		ann := resp.FullTextAnnotation
		if ann == nil {
			continue
		}
		for _, raw := range ann.Pages {
			rec.Pages = append(rec.Pages, buildPage(raw, ann.Text, len(rec.Pages)+1, opts))
		}
	}

	rec.Metadata = buildMetadata(rec.Pages, opts.FallbackLanguage)
	return rec, nil
}

func buildPage(raw annotation.Page, text string, number int, opts Options) Page {
	page := Page{
		PageNumber:        number,
		Text:              text,
		Confidence:        raw.Confidence,
		DetectedLanguages: buildLanguages(raw.Property),
		Blocks:            make([]Block, 0, len(raw.Blocks)),
	}
	if opts.Mode == ModeDetailed {
		page.Width = raw.Width
		page.Height = raw.Height
	}
	for _, rawBlock := range raw.Blocks {
		if !keep(rawBlock.Confidence, opts.MinConfidence) {
			continue
		}
		page.Blocks = append(page.Blocks, buildBlock(rawBlock, opts))
	}
	return page
}

func buildLanguages(p *annotation.TextProperty) []Language {
	detected := p.Languages()
	out := make([]Language, 0, len(detected))
	for _, l := range detected {
		out = append(out, Language{Code: l.LanguageCode, Confidence: l.Confidence})
	}
	return out
}

func buildBlock(raw annotation.Block, opts Options) Block {
	block := Block{
		Text:      blockText(raw),
		BlockType: blockType(raw.BlockType),
	}
	if opts.IncludeConfidence {
		c := raw.Confidence
		block.Confidence = &c
	}
	if opts.Mode != ModeDetailed {
		return block
	}
	if opts.IncludeBoundingBoxes {
		block.BoundingBox = FormatPoly(raw.BoundingBox)
	}
	if opts.IncludeWordLevel {
		block.Paragraphs = buildParagraphs(raw.Paragraphs, opts)
	}
	return block
}

// blockText renders a block as its paragraph texts joined by newlines,
// preserving paragraph boundaries in the flat form.
func blockText(raw annotation.Block) string {
	parts := make([]string, 0, len(raw.Paragraphs))
	for _, p := range raw.Paragraphs {
		parts = append(parts, paragraphText(p))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func paragraphText(raw annotation.Paragraph) string {
	words := make([]string, 0, len(raw.Words))
	for _, w := range raw.Words {
		words = append(words, w.Assemble())
	}
	return strings.Join(words, " ")
}

// knownBlockTypes is the engine's block type enumeration. Raw codes
// outside this set (and absent ones) normalize to UNKNOWN.
var knownBlockTypes = map[string]struct{}{
	"UNKNOWN": {},
	"TEXT":    {},
	"TABLE":   {},
	"PICTURE": {},
	"RULER":   {},
	"BARCODE": {},
}

func blockType(raw string) string {
	if _, ok := knownBlockTypes[raw]; ok {
		return raw
	}
	return "UNKNOWN"
}

func buildParagraphs(raw []annotation.Paragraph, opts Options) []Paragraph {
	paragraphs := make([]Paragraph, 0, len(raw))
	for _, rp := range raw {
		p := Paragraph{Text: paragraphText(rp)}
		if opts.IncludeConfidence {
			c := rp.Confidence
			p.Confidence = &c
		}
		p.Words = buildWords(rp.Words, opts)
		paragraphs = append(paragraphs, p)
	}
	return paragraphs
}

func buildWords(raw []annotation.Word, opts Options) []Word {
	words := make([]Word, 0, len(raw))
	for _, rw := range raw {
		w := Word{Text: rw.Assemble()}
		if opts.IncludeConfidence {
			c := rw.Confidence
			w.Confidence = &c
		}
		if opts.IncludeBoundingBoxes {
			w.BoundingBox = FormatPoly(rw.BoundingBox)
		}
		w.Symbols = buildSymbols(rw.Symbols)
		words = append(words, w)
	}
	return words
}

func buildSymbols(raw []annotation.Symbol) []Symbol {
	symbols := make([]Symbol, 0, len(raw))
	for _, rs := range raw {
		symbols = append(symbols, Symbol{Text: rs.Text})
	}
	return symbols
}

func buildMetadata(pages []Page, fallback string) Metadata {
	md := Metadata{TotalPages: len(pages), PrimaryLanguage: fallback}
	if len(pages) == 0 {
		return md
	}
	md.PrimaryLanguage = primaryLanguage(pages[0].DetectedLanguages, fallback)
	var sum float64
	for _, p := range pages {
		sum += p.Confidence
	}
	md.AverageConfidence = sum / float64(len(pages))
	return md
}
