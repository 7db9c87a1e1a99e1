package normalize

import "github.com/crosscore/cloud-ocr-summarizer/internal/annotation"

// FormatPoly converts raw polygon geometry into the normalized
// bounding box form. A nil polygon yields nil so callers can omit the
// field; a present polygon always yields a non-nil vertex list, even
// when empty. Vertex order is preserved.
func FormatPoly(p *annotation.BoundingPoly) *BoundingBox {
	if p == nil {
		return nil
	}
	vertices := make([]Vertex, 0, len(p.Vertices))
	for _, v := range p.Vertices {
		vertices = append(vertices, Vertex{X: v.X, Y: v.Y})
	}
	return &BoundingBox{Vertices: vertices}
}
