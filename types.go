package mixfs

import (
	"fmt"
	"log/slog"
	"strings"
)

// DefaultArchiveExtension is the extension Add looks for when a config does
// not list any.
const DefaultArchiveExtension = ".mix"

// GameProfile names the archives a game variant needs
type GameProfile struct {
	// Required archives must load or Mount fails
	Required []string `yaml:"required"`

	// Optional archives are loaded when present
	Optional []string `yaml:"optional"`
}

// Config contains configuration for the virtual filesystem
type Config struct {
	// SearchPaths are added in order by Mount; earlier paths take priority
	SearchPaths []string `yaml:"search_paths"`

	// Game selects an entry of Games for Mount
	Game string `yaml:"game"`

	// Games maps a game variant to its archive set
	Games map[string]GameProfile `yaml:"games"`

	// ArchiveExtensions lists the file extensions Add treats as MIX
	// containers, compared case-insensitively. Defaults to ".mix".
	ArchiveExtensions []string `yaml:"archive_extensions"`

	// CaseFold makes directory roots retry lower- and upper-case spellings
	// of a name when opening for reading
	CaseFold bool `yaml:"case_fold"`

	// Logger receives root and archive events. Nil discards them.
	Logger *slog.Logger `yaml:"-"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}

	for i, p := range c.SearchPaths {
		if p == "" {
			return NewValidationError(fmt.Sprintf("search_paths[%d]", i), p, "search path cannot be empty")
		}
	}

	for _, ext := range c.ArchiveExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return NewValidationError("archive_extensions", ext, "extension must start with a dot")
		}
	}

	if c.Game != "" {
		if _, ok := c.Games[c.Game]; !ok {
			return NewValidationError("game", c.Game, "no profile for selected game")
		}
	}

	for game, p := range c.Games {
		for _, name := range append(append([]string(nil), p.Required...), p.Optional...) {
			if name == "" {
				return NewValidationError("games."+game, name, "archive name cannot be empty")
			}
		}
	}

	return nil
}

// extensions returns the configured archive extensions in lower case
func (c *Config) extensions() []string {
	if len(c.ArchiveExtensions) == 0 {
		return []string{DefaultArchiveExtension}
	}
	out := make([]string, len(c.ArchiveExtensions))
	for i, ext := range c.ArchiveExtensions {
		out[i] = strings.ToLower(ext)
	}
	return out
}

// logger returns the configured logger or one that discards everything
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// profile returns the selected game profile, if any
func (c *Config) profile() (GameProfile, bool) {
	if c.Game == "" {
		return GameProfile{}, false
	}
	p, ok := c.Games[c.Game]
	return p, ok
}
