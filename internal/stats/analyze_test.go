package stats

import (
	"reflect"
	"testing"
)

const responsesDoc = `{
  "responses": [
    {
      "pages": [
        {
          "confidence": 0.9,
          "detected_languages": [
            {"language_code": "ja", "confidence": 0.8},
            {"language_code": "en", "confidence": 0.2}
          ],
          "blocks": [
            {
              "text": "first block",
              "paragraphs": [
                {"text": "p", "words": [{"text": "a"}, {"text": "b"}]}
              ]
            },
            {"text": "second block"}
          ]
        },
        {
          "confidence": 0.7,
          "detected_languages": [{"language_code": "en", "confidence": 0.9}],
          "blocks": []
        }
      ]
    }
  ]
}`

const recordDoc = `{
  "pages": [
    {
      "page_number": 1,
      "text": "Hello",
      "confidence": 0.95,
      "detected_languages": [{"language_code": "en", "confidence": 0.95}],
      "blocks": [
        {"text": "Hello", "block_type": "TEXT", "confidence": 0.92}
      ]
    }
  ],
  "metadata": {"total_pages": 1, "primary_language": "en", "average_confidence": 0.95}
}`

func TestAnalyze(t *testing.T) {
	t.Run("responses shape", func(t *testing.T) {
		report, err := quietEngine().AnalyzeJSON([]byte(responsesDoc))
		if err != nil {
			t.Fatalf("AnalyzeJSON() error = %v", err)
		}

		s := report.Structure
		if s.Pages != 2 {
			t.Errorf("pages = %d, want 2", s.Pages)
		}
		if s.Blocks != 2 {
			t.Errorf("blocks = %d, want 2", s.Blocks)
		}
		if s.Paragraphs != 1 {
			t.Errorf("paragraphs = %d, want 1", s.Paragraphs)
		}
		if s.Words != 2 {
			t.Errorf("words = %d, want 2", s.Words)
		}
		if s.AverageConfidence != 0.8 {
			t.Errorf("average_confidence = %v, want 0.8", s.AverageConfidence)
		}
		if !reflect.DeepEqual(s.Languages, []string{"en", "ja"}) {
			t.Errorf("languages = %v, want [en ja]", s.Languages)
		}
		if report.TotalTokens == 0 {
			t.Error("expected a non-zero token total")
		}
	})

	t.Run("normalized record shape", func(t *testing.T) {
		report, err := quietEngine().AnalyzeJSON([]byte(recordDoc))
		if err != nil {
			t.Fatalf("AnalyzeJSON() error = %v", err)
		}

		s := report.Structure
		if s.Pages != 1 {
			t.Errorf("pages = %d, want 1", s.Pages)
		}
		if s.Blocks != 1 {
			t.Errorf("blocks = %d, want 1", s.Blocks)
		}
		if s.AverageConfidence != 0.95 {
			t.Errorf("average_confidence = %v, want 0.95", s.AverageConfidence)
		}
		if !reflect.DeepEqual(s.Languages, []string{"en"}) {
			t.Errorf("languages = %v, want [en]", s.Languages)
		}
	})

	t.Run("non-object input", func(t *testing.T) {
		report := quietEngine().Analyze([]any{"one two", "three"})
		if report.TotalTokens != 3 {
			t.Errorf("total_tokens = %d, want 3", report.TotalTokens)
		}
		if report.Structure.Pages != 0 || report.Structure.Blocks != 0 {
			t.Errorf("expected zero structure counts, got %+v", report.Structure)
		}
		if report.Structure.Languages == nil {
			t.Error("languages must not be nil")
		}
	})

	t.Run("empty document", func(t *testing.T) {
		report, err := quietEngine().AnalyzeJSON([]byte(`{}`))
		if err != nil {
			t.Fatalf("AnalyzeJSON() error = %v", err)
		}
		if report.Structure.Pages != 0 {
			t.Errorf("pages = %d, want 0", report.Structure.Pages)
		}
		if report.Structure.AverageConfidence != 0 {
			t.Errorf("average_confidence = %v, want 0", report.Structure.AverageConfidence)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := quietEngine().AnalyzeJSON([]byte(`{`)); err == nil {
			t.Fatal("expected a parse error")
		}
	})
}
