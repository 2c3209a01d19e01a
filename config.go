package mixfs

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadConfig decodes a YAML configuration and validates it. Unknown keys
// are rejected so that a misspelt option does not silently fall back to a
// default.
//
//	search_paths: [/opt/game, /opt/game/cd1]
//	game: redalert
//	games:
//	  redalert:
//	    required: [redalert.mix]
//	    optional: [expand2.mix]
//	case_fold: true
func LoadConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
