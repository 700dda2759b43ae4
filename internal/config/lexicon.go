package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type intentLexiconFile struct {
	PersonalMarkers []string `yaml:"personal_markers"`
}

// LoadIntentLexicon reads the optional YAML lexicon overriding the
// built-in personal marker set. An empty path means no override.
func LoadIntentLexicon(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intent lexicon: %w", err)
	}

	var file intentLexiconFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse intent lexicon: %w", err)
	}
	if len(file.PersonalMarkers) == 0 {
		return nil, fmt.Errorf("intent lexicon %s has no personal_markers", path)
	}
	return file.PersonalMarkers, nil
}
