package normalize

// Record is the stable, normalized form of one annotated document.
// Downstream consumers (statistics, summaries, persisted results) read
// this shape; raw engine casing never leaks past the normalizer.
type Record struct {
	Pages    []Page   `json:"pages"`
	Metadata Metadata `json:"metadata"`
}

// Metadata aggregates document-level facts derived from the pages.
type Metadata struct {
	TotalPages        int     `json:"total_pages"`
	PrimaryLanguage   string  `json:"primary_language"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Page is one emitted page. Width and Height are populated in detailed
// mode only; Confidence is always present, even when zero.
type Page struct {
	PageNumber        int        `json:"page_number"`
	Text              string     `json:"text"`
	Confidence        float64    `json:"confidence"`
	DetectedLanguages []Language `json:"detected_languages"`
	Width             float64    `json:"width,omitempty"`
	Height            float64    `json:"height,omitempty"`
	Blocks            []Block    `json:"blocks"`
}

// Language is a detected language candidate with its confidence.
type Language struct {
	Code       string  `json:"language_code"`
	Confidence float64 `json:"confidence"`
}

// Block is a layout block that survived confidence filtering.
// Confidence is a pointer so the field disappears entirely when
// confidence reporting is disabled. Paragraphs are populated only in
// detailed mode with word-level output enabled.
type Block struct {
	Text        string       `json:"text"`
	Confidence  *float64     `json:"confidence,omitempty"`
	BlockType   string       `json:"block_type"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
	Paragraphs  []Paragraph  `json:"paragraphs,omitempty"`
}

// Paragraph is one paragraph of a block in the detailed breakdown.
type Paragraph struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	Words      []Word   `json:"words,omitempty"`
}

// Word is one word of a paragraph in the detailed breakdown.
type Word struct {
	Text        string       `json:"text"`
	Confidence  *float64     `json:"confidence,omitempty"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
	Symbols     []Symbol     `json:"symbols,omitempty"`
}

// Symbol is a single glyph. Only its text survives normalization.
type Symbol struct {
	Text string `json:"text"`
}

// BoundingBox is normalized geometry. Vertices is never nil so the
// field serializes as an empty list rather than null.
type BoundingBox struct {
	Vertices []Vertex `json:"vertices"`
}

// Vertex is one corner of a bounding box.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
