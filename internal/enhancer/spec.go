// Package enhancer turns short image ideas into structured photography prompts.
package enhancer

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySpec is returned when a generated spec has no subject.
var ErrEmptySpec = errors.New("generated prompt has no subject")

// PromptSpec is the structured prompt. The XML and JSON renderings are two
// encodings of the same value.
type PromptSpec struct {
	XMLName     xml.Name `xml:"prompt" json:"-"`
	Subject     string   `xml:"subject" json:"subject"`
	Setting     string   `xml:"setting" json:"setting"`
	Wardrobe    string   `xml:"wardrobe" json:"wardrobe"`
	Lighting    string   `xml:"lighting" json:"lighting"`
	Camera      Camera   `xml:"camera" json:"camera"`
	Style       string   `xml:"style" json:"style"`
	Mood        string   `xml:"mood" json:"mood"`
	ColorGrade  string   `xml:"color_grade" json:"color_grade"`
	Negative    []string `xml:"negative>item" json:"negative"`
	AspectRatio string   `xml:"aspect_ratio" json:"aspect_ratio"`
}

// Camera describes framing and optics.
type Camera struct {
	Shot  string `xml:"shot" json:"shot"`
	Lens  string `xml:"lens" json:"lens"`
	Angle string `xml:"angle" json:"angle"`
}

// Normalize cleans every field and drops empty negative terms. Runes XML
// cannot carry are removed so both renderings hold the same text.
func (s *PromptSpec) Normalize() {
	s.Subject = cleanText(s.Subject)
	s.Setting = cleanText(s.Setting)
	s.Wardrobe = cleanText(s.Wardrobe)
	s.Lighting = cleanText(s.Lighting)
	s.Camera.Shot = cleanText(s.Camera.Shot)
	s.Camera.Lens = cleanText(s.Camera.Lens)
	s.Camera.Angle = cleanText(s.Camera.Angle)
	s.Style = cleanText(s.Style)
	s.Mood = cleanText(s.Mood)
	s.ColorGrade = cleanText(s.ColorGrade)
	s.AspectRatio = cleanText(s.AspectRatio)

	negative := make([]string, 0, len(s.Negative))
	for _, n := range s.Negative {
		if n = cleanText(n); n != "" {
			negative = append(negative, n)
		}
	}
	s.Negative = negative
}

// cleanText folds line endings to \n, drops runes outside the XML 1.0 Char
// production and trims surrounding space. Invalid UTF-8 becomes U+FFFD.
func cleanText(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "\n")
	v = strings.Map(func(r rune) rune {
		switch {
		case r == '\r':
			return '\n'
		case r == '\t' || r == '\n':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, v)
	return strings.TrimSpace(v)
}

// Validate reports whether the prompt has enough content to render.
func (s *PromptSpec) Validate() error {
	if s.Subject == "" {
		return ErrEmptySpec
	}
	return nil
}

// Rendered holds both encodings of one spec.
type Rendered struct {
	XML  string
	JSON string
}

// Render normalizes s and encodes it as indented XML and JSON.
func Render(s *PromptSpec) (*Rendered, error) {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	x, err := xml.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode xml: %w", err)
	}
	j, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return &Rendered{XML: string(x), JSON: string(j)}, nil
}

// ParseXML decodes a rendered XML prompt.
func ParseXML(data string) (*PromptSpec, error) {
	var s PromptSpec
	if err := xml.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to decode xml prompt: %w", err)
	}
	s.Normalize()
	return &s, nil
}

// ParseJSON decodes a rendered JSON prompt.
func ParseJSON(data string) (*PromptSpec, error) {
	var s PromptSpec
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to decode json prompt: %w", err)
	}
	s.Normalize()
	return &s, nil
}
