package enhancer

import (
	"context"
	"strings"
)

// TemplateGenerator builds specs from keyword rules without calling a model.
// It is used when no Gemini key is configured.
type TemplateGenerator struct{}

type keywordRule struct {
	keywords []string
	apply    func(*PromptSpec)
}

var templateRules = []keywordRule{
	{[]string{"beach", "ocean", "sea"}, func(s *PromptSpec) {
		s.Setting = "sunlit shoreline with soft rolling waves"
		s.Lighting = "golden hour backlight with warm rim light"
	}},
	{[]string{"city", "street", "urban", "night"}, func(s *PromptSpec) {
		s.Setting = "rain-slick city street at night"
		s.Lighting = "neon signage with practical street lamps"
		s.ColorGrade = "teal and orange"
	}},
	{[]string{"studio", "backdrop"}, func(s *PromptSpec) {
		s.Setting = "seamless paper backdrop in a photo studio"
		s.Lighting = "large octabox key light with subtle fill"
	}},
	{[]string{"fashion", "runway", "editorial"}, func(s *PromptSpec) {
		s.Style = "high fashion editorial"
		s.Wardrobe = "tailored designer outfit"
	}},
	{[]string{"celebrity", "red carpet"}, func(s *PromptSpec) {
		s.Setting = "red carpet premiere with press wall"
		s.Style = "paparazzi candid"
	}},
	{[]string{"close", "portrait", "headshot"}, func(s *PromptSpec) {
		s.Camera = Camera{Shot: "close-up", Lens: "85mm f/1.4", Angle: "eye level"}
	}},
	{[]string{"wide", "landscape", "full body"}, func(s *PromptSpec) {
		s.Camera = Camera{Shot: "wide full body", Lens: "35mm f/2", Angle: "slightly low"}
	}},
	{[]string{"moody", "dark", "dramatic"}, func(s *PromptSpec) {
		s.Mood = "brooding and dramatic"
		s.ColorGrade = "desaturated with deep shadows"
	}},
}

// Generate implements Generator.
func (TemplateGenerator) Generate(_ context.Context, req Request) (*PromptSpec, error) {
	var spec *PromptSpec
	if req.IsRefine {
		if prev, err := ParseXML(req.PreviousPrompt); err == nil && prev.Subject != "" {
			spec = prev
		} else {
			spec = baseSpec(req.PreviousPrompt)
		}
		applyRules(spec, req.Prompt)
		spec.Subject = strings.TrimSpace(spec.Subject + ", " + strings.TrimSpace(req.Prompt))
	} else {
		spec = baseSpec(req.Prompt)
		applyRules(spec, req.Prompt)
	}

	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func baseSpec(subject string) *PromptSpec {
	return &PromptSpec{
		Subject:     subject,
		Setting:     "natural environment that complements the subject",
		Wardrobe:    "contemporary styling suited to the scene",
		Lighting:    "soft directional key light",
		Camera:      Camera{Shot: "medium shot", Lens: "50mm f/1.8", Angle: "eye level"},
		Style:       "cinematic photorealism",
		Mood:        "confident and natural",
		ColorGrade:  "filmic with gentle contrast",
		Negative:    []string{"blurry", "extra fingers", "distorted face", "watermark", "text"},
		AspectRatio: "4:5",
	}
}

func applyRules(spec *PromptSpec, text string) {
	lower := strings.ToLower(text)
	for _, rule := range templateRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				rule.apply(spec)
				break
			}
		}
	}
}
