package annotation

import "strings"

// Tree is the raw annotation document returned by the vision engine.
// Field names mirror the engine's JSON casing; everything below the
// responses list is optional and decodes to zero values when absent.
type Tree struct {
	Responses []Response `json:"responses"`
}

// Response holds the annotation for one input shard (typically one page
// batch). A response without a FullTextAnnotation carries no OCR data.
type Response struct {
	FullTextAnnotation *TextAnnotation `json:"fullTextAnnotation,omitempty"`
	Context            *InputContext   `json:"context,omitempty"`
	Error              *Status         `json:"error,omitempty"`
}

// InputContext identifies the source input a response belongs to.
type InputContext struct {
	URI        string `json:"uri,omitempty"`
	PageNumber int    `json:"pageNumber,omitempty"`
}

// Status is the engine's error payload for a failed response.
type Status struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// TextAnnotation is the full OCR result for a response: the page tree
// plus the engine's own concatenated text rendering.
type TextAnnotation struct {
	Pages []Page `json:"pages"`
	Text  string `json:"text"`
}

// Page is one physical page with its detected layout hierarchy.
type Page struct {
	Property   *TextProperty `json:"property,omitempty"`
	Width      float64       `json:"width,omitempty"`
	Height     float64       `json:"height,omitempty"`
	Blocks     []Block       `json:"blocks,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
}

// Block is a layout unit on a page (text block, table, picture, ...).
type Block struct {
	Property    *TextProperty `json:"property,omitempty"`
	BoundingBox *BoundingPoly `json:"boundingBox,omitempty"`
	Paragraphs  []Paragraph   `json:"paragraphs,omitempty"`
	BlockType   string        `json:"blockType,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"`
}

// Paragraph groups the words of one logical paragraph inside a block.
type Paragraph struct {
	Property    *TextProperty `json:"property,omitempty"`
	BoundingBox *BoundingPoly `json:"boundingBox,omitempty"`
	Words       []Word        `json:"words,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"`
}

// Word is a sequence of symbols with optional geometry.
type Word struct {
	Property    *TextProperty `json:"property,omitempty"`
	BoundingBox *BoundingPoly `json:"boundingBox,omitempty"`
	Symbols     []Symbol      `json:"symbols,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"`
}

// Symbol is a single recognized character or glyph.
type Symbol struct {
	Property    *TextProperty `json:"property,omitempty"`
	BoundingBox *BoundingPoly `json:"boundingBox,omitempty"`
	Text        string        `json:"text"`
	Confidence  float64       `json:"confidence,omitempty"`
}

// BoundingPoly is the engine's polygon for a layout element.
type BoundingPoly struct {
	Vertices           []Vertex `json:"vertices,omitempty"`
	NormalizedVertices []Vertex `json:"normalizedVertices,omitempty"`
}

// Vertex is one polygon corner. Absent coordinates decode to 0.
type Vertex struct {
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
}

// TextProperty carries detection metadata attached to any tree level.
type TextProperty struct {
	DetectedLanguages []DetectedLanguage `json:"detectedLanguages,omitempty"`
	DetectedBreak     *DetectedBreak     `json:"detectedBreak,omitempty"`
}

// DetectedLanguage is a language guess with its confidence.
type DetectedLanguage struct {
	LanguageCode string  `json:"languageCode"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// DetectedBreak marks whitespace/line breaks detected after a symbol.
type DetectedBreak struct {
	Type     string `json:"type,omitempty"`
	IsPrefix bool   `json:"isPrefix,omitempty"`
}

// Assemble concatenates the word's symbol texts in order.
func (w Word) Assemble() string {
	var sb strings.Builder
	for _, s := range w.Symbols {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Languages returns the detected languages attached to the property,
// or nil when the property is absent.
func (p *TextProperty) Languages() []DetectedLanguage {
	if p == nil {
		return nil
	}
	return p.DetectedLanguages
}
