package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
	"github.com/wricardo/mcp-training/tacticsgrid/game/service"
)

var (
	ErrConfigNotFound  = service.ErrConfigNotFound
	ErrInvalidConfigID = errors.New("invalid config id")
	ErrInvalidConfig   = engine.ErrInvalidConfig
)

// DefaultConfigID is the scenario used when a session does not name one
const DefaultConfigID = service.DefaultConfigID

// extensions are tried in order when resolving a scenario id to a file
var extensions = []string{".yaml", ".yml", ".json"}

// Manager handles scenario loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.BattleConfig
	configs       map[string]*engine.BattleConfig
	mu            sync.RWMutex
	log           zerolog.Logger
}

// ValidationResult is the outcome of checking one scenario file
type ValidationResult struct {
	Filename string `json:"filename"`
	ConfigID string `json:"config_id"`
	Err      error  `json:"-"`
}

// NewManager creates a manager for the scenarios in configDir
func NewManager(configDir string, log zerolog.Logger) (*Manager, error) {
	info, err := os.Stat(configDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.BattleConfig),
		log:       log.With().Str("component", "config").Logger(),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a scenario by id. The id is the file name without its
// extension; an extension may be given.
func (m *Manager) LoadConfig(id string) (*engine.BattleConfig, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	if config, ok := m.configs[id]; ok {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, ok := m.configs[id]; ok {
		return config, nil
	}

	path, ok := m.resolve(id)
	if !ok {
		if id == DefaultConfigID && m.defaultConfig != nil {
			return m.defaultConfig, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}

	config, err := engine.LoadBattleConfig(path)
	if err != nil {
		return nil, fmt.Errorf("config '%s': %w", id, err)
	}

	m.configs[id] = config
	return config, nil
}

// ListConfigs describes every valid scenario in the directory, sorted by id.
// Invalid files are skipped and logged.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	files, err := m.scenarioFiles()
	if err != nil {
		return nil, err
	}

	configs := make([]*service.ConfigInfo, 0, len(files))
	for _, filename := range files {
		id := stripExtension(filename)
		config, err := m.LoadConfig(filename)
		if err != nil {
			m.log.Warn().Err(err).Str("file", filename).Msg("skipping invalid scenario")
			continue
		}
		configs = append(configs, describe(filename, id, config))
	}

	if _, ok := m.resolve(DefaultConfigID); !ok {
		builtin := describe("", DefaultConfigID, m.GetDefault())
		configs = append([]*service.ConfigInfo{builtin}, configs...)
	}

	return configs, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *engine.BattleConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default scenario by id
func (m *Manager) SetDefault(id string) error {
	config, err := m.LoadConfig(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached scenarios so the next load reads from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.BattleConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// SaveConfig validates config and writes it as id. A .yaml or .yml suffix on
// id selects YAML; JSON is used otherwise.
func (m *Manager) SaveConfig(id string, config *engine.BattleConfig) error {
	if err := engine.ValidateBattleConfig(config); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(id))
	base, err := normalizeID(id)
	if err != nil {
		return err
	}

	var data []byte
	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		ext = ".json"
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// One file per id
	for _, other := range extensions {
		if other != ext {
			_ = os.Remove(filepath.Join(m.configDir, base+other))
		}
	}

	if err := os.WriteFile(filepath.Join(m.configDir, base+ext), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.configs[base] = config
	m.log.Info().Str("config", base).Str("format", strings.TrimPrefix(ext, ".")).Msg("scenario saved")
	return nil
}

// ValidateAll parses every scenario file and reports each result
func (m *Manager) ValidateAll() ([]ValidationResult, error) {
	files, err := m.scenarioFiles()
	if err != nil {
		return nil, err
	}

	results := make([]ValidationResult, 0, len(files))
	for _, filename := range files {
		_, err := engine.LoadBattleConfig(filepath.Join(m.configDir, filename))
		results = append(results, ValidationResult{
			Filename: filename,
			ConfigID: stripExtension(filename),
			Err:      err,
		})
	}
	return results, nil
}

// Count returns the number of cached scenarios
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// loadDefaultConfig prefers a "default" scenario file, then the first valid
// scenario, then the built-in skirmish.
func (m *Manager) loadDefaultConfig() error {
	if path, ok := m.resolve(DefaultConfigID); ok {
		config, err := engine.LoadBattleConfig(path)
		if err == nil {
			m.setDefault(config)
			return nil
		}
		m.log.Warn().Err(err).Str("file", path).Msg("default scenario is invalid")
	}

	files, err := m.scenarioFiles()
	if err != nil {
		return err
	}
	for _, filename := range files {
		config, err := engine.LoadBattleConfig(filepath.Join(m.configDir, filename))
		if err == nil {
			m.setDefault(config)
			return nil
		}
	}

	m.setDefault(engine.DefaultBattleConfig())
	return nil
}

func (m *Manager) setDefault(config *engine.BattleConfig) {
	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

// resolve finds the file for id, trying each known extension
func (m *Manager) resolve(id string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, id+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// scenarioFiles lists scenario file names in the directory, sorted
func (m *Manager) scenarioFiles() ([]string, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !hasScenarioExtension(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func describe(filename, id string, config *engine.BattleConfig) *service.ConfigInfo {
	allies, enemies := config.UnitCount()
	return &service.ConfigInfo{
		Filename:    filename,
		ConfigID:    id,
		Name:        config.Name,
		Description: config.Description,
		Width:       config.Width,
		Height:      config.Height,
		Allies:      allies,
		Enemies:     enemies,
	}
}

func normalizeID(id string) (string, error) {
	id = stripExtension(strings.TrimSpace(id))
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidConfigID, id)
	}
	return id, nil
}

func hasScenarioExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}

func stripExtension(name string) string {
	if hasScenarioExtension(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
