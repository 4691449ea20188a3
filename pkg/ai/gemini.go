package ai

import (
	"context"
	"strings"

	"miinplanner-backend/pkg/gemini"

	"google.golang.org/genai"
)

// geminiGenerator adapts the GenAI client to Generator
type geminiGenerator struct {
	svc *gemini.GeminiService
}

func (g *geminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return g.svc.GenerateJSON(ctx, req.Prompt, toGenaiSchema(req.Schema), req.Temperature)
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}
