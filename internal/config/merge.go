package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyBackend = "backend"
	keyLogging = "logging"
	keyOutput  = "output"
	keyDrafts  = "drafts"
	keyGrids   = "grids"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyBackend: true,
	keyLogging: true,
	keyOutput:  true,
	keyDrafts:  true,
	keyGrids:   true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. Keys present in the overlay replace entire sections
// in the target, except grids, which replace per grid name. Keys absent in
// the overlay are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		// Re-marshal the single section so we can unmarshal it onto the
		// strongly-typed target field.
		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection unmarshals raw YAML bytes into the correct field of target
// based on the given key name. Each section is unmarshalled into a fresh
// zero-value so stale values from the target never leak into the result.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyBackend:
		var v BackendConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Backend = v
		return nil
	case keyLogging:
		var v LoggingConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
		return nil
	case keyOutput:
		var v OutputConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Output = v
		return nil
	case keyDrafts:
		var v DraftsConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Drafts = v
		return nil
	case keyGrids:
		var v map[string]GridConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		if target.Grids == nil {
			target.Grids = make(map[string]GridConfig, len(v))
		}
		for name, g := range v {
			target.Grids[name] = g
		}
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}
