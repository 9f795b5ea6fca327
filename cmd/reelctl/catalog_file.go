package main

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/reelprompt/reelprompt/internal/middleware"
	"github.com/reelprompt/reelprompt/internal/model"
)

// catalogFile is the YAML seed format.
type catalogFile struct {
	Prompts []*model.Prompt `yaml:"prompts"`
}

// parseCatalogFile decodes and validates a seed file. Every entry is priced
// at the standard prompt price.
func parseCatalogFile(r io.Reader) ([]*model.Prompt, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty catalog file")
		}
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if len(file.Prompts) == 0 {
		return nil, errors.New("no prompts listed")
	}

	seen := make(map[string]bool)
	for i, p := range file.Prompts {
		if p == nil {
			return nil, fmt.Errorf("entry %d is empty", i+1)
		}
		if p.Title == "" {
			return nil, fmt.Errorf("entry %d: title is required", i+1)
		}
		if err := middleware.ValidatePromptID(p.ID); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		if p.ID != "" {
			if seen[p.ID] {
				return nil, fmt.Errorf("entry %d: duplicate id %q", i+1, p.ID)
			}
			seen[p.ID] = true
		}
		if err := middleware.ValidateAssetURL(p.AssetURL); err != nil {
			return nil, fmt.Errorf("entry %d: asset_url: %w", i+1, err)
		}
		for _, u := range p.Thumbnails() {
			if err := middleware.ValidateAssetURL(u); err != nil {
				return nil, fmt.Errorf("entry %d: thumbnail: %w", i+1, err)
			}
		}
		p.Price = model.PromptPrice
	}
	return file.Prompts, nil
}
