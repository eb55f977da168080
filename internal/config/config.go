package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/mesgrid/internal/batch"
	"github.com/rshade/mesgrid/internal/grid"
)

// Environment variables recognised by New.
const (
	EnvHome      = "MESGRID_HOME"
	EnvConfig    = "MESGRID_CONFIG"
	EnvEndpoint  = "MESGRID_ENDPOINT"
	EnvLogLevel  = "MESGRID_LOG_LEVEL"
	EnvLogFormat = "MESGRID_LOG_FORMAT"
)

// Output formats accepted by output.default_format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ID source names accepted by grids.<name>.id_source.
const (
	IDSourceULID    = "ulid"
	IDSourceCounter = "counter"
)

// Config is the complete mesgrid configuration.
type Config struct {
	Backend BackendConfig         `json:"backend" yaml:"backend"`
	Logging LoggingConfig         `json:"logging" yaml:"logging"`
	Output  OutputConfig          `json:"output" yaml:"output"`
	Drafts  DraftsConfig          `json:"drafts" yaml:"drafts"`
	Grids   map[string]GridConfig `json:"grids" yaml:"grids"`
}

// BackendConfig describes the GraphQL endpoint edits are submitted to.
type BackendConfig struct {
	Endpoint    string            `json:"endpoint" yaml:"endpoint"`
	Timeout     time.Duration     `json:"timeout" yaml:"timeout"`
	MaxRetries  int               `json:"max_retries" yaml:"max_retries"`
	BatchSize   int               `json:"batch_size" yaml:"batch_size"`
	Concurrency int               `json:"concurrency" yaml:"concurrency"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// OutputConfig controls how commands render results.
type OutputConfig struct {
	DefaultFormat string `json:"default_format" yaml:"default_format"`
	Precision     int    `json:"precision" yaml:"precision"`
}

// DraftsConfig locates the draft store.
type DraftsConfig struct {
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// GridConfig describes one editable grid and its backend mutations.
type GridConfig struct {
	SaveMutation    string            `json:"save_mutation" yaml:"save_mutation"`
	DeleteMutation  string            `json:"delete_mutation" yaml:"delete_mutation"`
	Defaults        map[string]any    `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	UIOnlyFields    []string          `json:"ui_only_fields,omitempty" yaml:"ui_only_fields,omitempty"`
	FieldTypes      map[string]string `json:"field_types,omitempty" yaml:"field_types,omitempty"`
	StripIDOnCreate bool              `json:"strip_id_on_create,omitempty" yaml:"strip_id_on_create,omitempty"`
	IDSource        string            `json:"id_source,omitempty" yaml:"id_source,omitempty"`
}

// Factory returns the row factory for this grid. Counter ids continue after
// the highest temporary id already present in existing.
func (g GridConfig) Factory(existing []grid.Row) *grid.Factory {
	var ids grid.IDSource
	if g.IDSource == IDSourceCounter {
		ids = grid.NewCounterSource(grid.MaxCounter(existing))
	}
	return grid.NewFactory(ids, grid.DefaultsConstructor(g.Defaults))
}

// CreateMapper returns the mapper applied to Pending-New rows on save.
func (g GridConfig) CreateMapper() grid.FieldMapper {
	return grid.FieldMapper{Drop: g.UIOnlyFields, Types: g.FieldTypes, StripID: g.StripIDOnCreate}
}

// UpdateMapper returns the mapper applied to Pending-Updated rows on save.
func (g GridConfig) UpdateMapper() grid.FieldMapper {
	return grid.FieldMapper{Drop: g.UIOnlyFields, Types: g.FieldTypes}
}

// Default returns the built-in configuration covering the standard MES grids.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Endpoint:    "http://localhost:4000/graphql",
			Timeout:     30 * time.Second,
			MaxRetries:  3,
			BatchSize:   batch.DefaultBatchSize,
			Concurrency: 2,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Output:  OutputConfig{DefaultFormat: FormatTable, Precision: 1},
		Grids: map[string]GridConfig{
			"bom": {
				SaveMutation:   "saveBomItems",
				DeleteMutation: "deleteBomItems",
				Defaults:       map[string]any{"itemCode": "", "qty": 0, "unit": "EA"},
				UIOnlyFields:   []string{"isNew"},
				FieldTypes:     map[string]string{"qty": grid.TypeFloat},
			},
			"production_orders": {
				SaveMutation:   "saveProductionOrders",
				DeleteMutation: "deleteProductionOrders",
				Defaults:       map[string]any{"orderNo": "", "planQty": 0, "status": "PLANNED"},
				FieldTypes:     map[string]string{"planQty": grid.TypeInt},
			},
			"production_results": {
				SaveMutation:   "saveProductionResults",
				DeleteMutation: "deleteProductionResults",
				Defaults:       map[string]any{"orderNo": "", "goodQty": 0, "defectQty": 0},
				FieldTypes:     map[string]string{"goodQty": grid.TypeInt, "defectQty": grid.TypeInt},
			},
			"defects": {
				SaveMutation:   "saveDefects",
				DeleteMutation: "deleteDefects",
				Defaults:       map[string]any{"defectCode": "", "qty": 0},
				FieldTypes:     map[string]string{"qty": grid.TypeInt},
			},
			"inventory_moves": {
				SaveMutation:   "saveInventoryMoves",
				DeleteMutation: "deleteInventoryMoves",
				Defaults:       map[string]any{"itemCode": "", "fromLoc": "", "toLoc": "", "qty": 0},
				FieldTypes:     map[string]string{"qty": grid.TypeFloat},
			},
			"kpi": {
				SaveMutation:   "saveKpiSettings",
				DeleteMutation: "deleteKpiSettings",
				Defaults:       map[string]any{"kpiCode": "", "target": 0},
				FieldTypes:     map[string]string{"target": grid.TypeFloat},
			},
		},
	}
}

// Dir returns the mesgrid state directory, $MESGRID_HOME or ~/.mesgrid.
func Dir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".mesgrid"), nil
}

// Path returns the config file path, $MESGRID_CONFIG or <Dir>/config.yaml.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// New loads the built-in defaults, overlays the config file when present,
// then an optional overlay file, then environment overrides.
func New(overlayPath string) (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if mergeErr := ShallowMergeYAML(cfg, path); mergeErr != nil {
			return nil, mergeErr
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("checking config file %s: %w", path, statErr)
	}

	if overlayPath != "" {
		if mergeErr := ShallowMergeYAML(cfg, overlayPath); mergeErr != nil {
			return nil, mergeErr
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Backend.Endpoint = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Backend.Endpoint == "" {
		return errors.New("backend.endpoint is required")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must be >= 0, got %s", c.Backend.Timeout)
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend.max_retries must be >= 0, got %d", c.Backend.MaxRetries)
	}
	if c.Backend.BatchSize < batch.MinBatchSize || c.Backend.BatchSize > batch.MaxBatchSize {
		return fmt.Errorf("backend.batch_size must be between %d and %d, got %d",
			batch.MinBatchSize, batch.MaxBatchSize, c.Backend.BatchSize)
	}
	if c.Backend.Concurrency < 1 {
		return fmt.Errorf("backend.concurrency must be >= 1, got %d", c.Backend.Concurrency)
	}

	switch c.Output.DefaultFormat {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("output.default_format must be table, json or yaml, got %q", c.Output.DefaultFormat)
	}

	for _, name := range c.GridNames() {
		if err := c.Grids[name].validate(); err != nil {
			return fmt.Errorf("grids.%s: %w", name, err)
		}
	}
	return nil
}

func (g GridConfig) validate() error {
	if g.SaveMutation == "" {
		return errors.New("save_mutation is required")
	}
	if g.DeleteMutation == "" {
		return errors.New("delete_mutation is required")
	}
	switch g.IDSource {
	case "", IDSourceULID, IDSourceCounter:
	default:
		return fmt.Errorf("id_source must be ulid or counter, got %q", g.IDSource)
	}

	valid := []string{grid.TypeInt, grid.TypeFloat, grid.TypeString, grid.TypeBool}
	fields := slices.Sorted(maps.Keys(g.FieldTypes))
	for _, f := range fields {
		if !slices.Contains(valid, g.FieldTypes[f]) {
			return fmt.Errorf("field_types.%s: unknown type %q", f, g.FieldTypes[f])
		}
	}
	return nil
}

// Grid returns the named grid configuration.
func (c *Config) Grid(name string) (GridConfig, error) {
	g, ok := c.Grids[name]
	if !ok {
		return GridConfig{}, fmt.Errorf("unknown grid %q (known: %v)", name, c.GridNames())
	}
	return g, nil
}

// GridNames returns the configured grid names in sorted order.
func (c *Config) GridNames() []string {
	names := make([]string, 0, len(c.Grids))
	for name := range c.Grids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DraftsPath returns the draft store file, drafts.file or <Dir>/drafts.json.
func (c *Config) DraftsPath() (string, error) {
	if c.Drafts.File != "" {
		return c.Drafts.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "drafts.json"), nil
}

// Save writes the configuration as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o750); mkErr != nil {
		return fmt.Errorf("creating config directory: %w", mkErr)
	}
	if writeErr := os.WriteFile(path, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing config file %s: %w", path, writeErr)
	}
	return nil
}

// global is the configuration loaded for the running command.
var (
	global   *Config      //nolint:gochecknoglobals // Set once per CLI invocation
	globalMu sync.RWMutex //nolint:gochecknoglobals // Guards global
)

// SetGlobalConfig stores the configuration for the running command.
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = cfg
}

// GetGlobalConfig returns the configuration for the running command, or the
// defaults when none was loaded.
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if global == nil {
		return Default()
	}
	return global
}
