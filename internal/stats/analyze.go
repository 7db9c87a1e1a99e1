package stats

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Report pairs the generic token total with typed structure counts.
type Report struct {
	TotalTokens int            `json:"total_tokens"`
	Structure   StructureStats `json:"structure_stats"`
}

// StructureStats summarizes the page hierarchy of an annotation
// document. Languages is sorted and never nil.
type StructureStats struct {
	Pages             int      `json:"pages"`
	Blocks            int      `json:"blocks"`
	Paragraphs        int      `json:"paragraphs"`
	Words             int      `json:"words"`
	AverageConfidence float64  `json:"average_confidence"`
	Languages         []string `json:"languages"`
}

// Analyze counts tokens over the whole value and collects structure
// statistics from its page hierarchy. Pages are found under a
// top-level responses list (responses[].pages[]); a document with a
// top-level pages list is treated as a single response, which lets
// statistics run over normalized records directly. Any other shape
// yields zero structure counts but still a token total.
func (e *Engine) Analyze(v any) *Report {
	report := &Report{
		TotalTokens: e.CountTokens(v),
		Structure:   StructureStats{Languages: []string{}},
	}

	root, ok := v.(map[string]any)
	if !ok {
		return report
	}

	var confidences []float64
	languages := make(map[string]struct{})

	if responses, ok := root["responses"].([]any); ok {
		for _, r := range responses {
			resp, ok := r.(map[string]any)
			if !ok {
				continue
			}
			e.collectPages(resp, &report.Structure, &confidences, languages)
		}
	} else {
		e.collectPages(root, &report.Structure, &confidences, languages)
	}

	if len(confidences) > 0 {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		report.Structure.AverageConfidence = sum / float64(len(confidences))
	}
	for code := range languages {
		report.Structure.Languages = append(report.Structure.Languages, code)
	}
	sort.Strings(report.Structure.Languages)

	return report
}

func (e *Engine) collectPages(container map[string]any, s *StructureStats, confidences *[]float64, languages map[string]struct{}) {
	pages, ok := container["pages"].([]any)
	if !ok {
		return
	}
	for _, p := range pages {
		page, ok := p.(map[string]any)
		if !ok {
			continue
		}
		s.Pages++

		if c, ok := page["confidence"].(float64); ok {
			*confidences = append(*confidences, c)
		}
		if langs, ok := page["detected_languages"].([]any); ok {
			for _, l := range langs {
				lang, ok := l.(map[string]any)
				if !ok {
					continue
				}
				if code, ok := lang["language_code"].(string); ok && code != "" {
					languages[code] = struct{}{}
				}
			}
		}

		blocks, ok := page["blocks"].([]any)
		if !ok {
			continue
		}
		for _, b := range blocks {
			block, ok := b.(map[string]any)
			if !ok {
				continue
			}
			s.Blocks++

			paragraphs, ok := block["paragraphs"].([]any)
			if !ok {
				continue
			}
			for _, pr := range paragraphs {
				para, ok := pr.(map[string]any)
				if !ok {
					continue
				}
				s.Paragraphs++

				words, ok := para["words"].([]any)
				if !ok {
					continue
				}
				for _, w := range words {
					if _, ok := w.(map[string]any); ok {
						s.Words++
					}
				}
			}
		}
	}
}

// AnalyzeJSON decodes raw JSON and analyzes it.
func (e *Engine) AnalyzeJSON(data []byte) (*Report, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse document for analysis: %w", err)
	}
	return e.Analyze(v), nil
}

// Analyze runs a default engine over the value.
func Analyze(v any) *Report {
	var e Engine
	return e.Analyze(v)
}

// AnalyzeJSON runs a default engine over raw JSON.
func AnalyzeJSON(data []byte) (*Report, error) {
	var e Engine
	return e.AnalyzeJSON(data)
}
