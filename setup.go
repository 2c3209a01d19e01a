package mixfs

import "fmt"

// Mount populates v from cfg: every search path is added in order, then the
// archives of the selected game profile are loaded. Search paths that cannot
// be added are logged and skipped. A required archive that fails to load
// aborts Mount; an optional one is logged and skipped. Archives that Add
// already picked up are not loaded twice.
func Mount(v *VFS, cfg *Config) error {
	if v == nil {
		return fmt.Errorf("vfs cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, p := range cfg.SearchPaths {
		if err := v.Add(p); err != nil {
			v.logger.Warn("search path skipped", "path", p, "error", err)
		}
	}

	profile, ok := cfg.profile()
	if !ok {
		return nil
	}

	for _, name := range profile.Required {
		if v.findArchive(name) != nil {
			continue
		}
		if _, err := v.LoadArchive(name); err != nil {
			return fmt.Errorf("required archive %s: %w", name, err)
		}
	}

	for _, name := range profile.Optional {
		if v.findArchive(name) != nil {
			continue
		}
		if _, err := v.LoadArchive(name); err != nil {
			if IsNotFound(err) {
				v.logger.Info("optional archive missing", "name", name)
			} else {
				v.logger.Warn("optional archive skipped", "name", name, "error", err)
			}
		}
	}
	return nil
}
