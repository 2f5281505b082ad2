package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultFile    = "config.json"
	DefaultEnvFile = ".env"
)

// Environment overrides, applied after the settings file
const (
	envOutputFile    = "INVOICE_OUTPUT_FILE"
	envSnapshotFile  = "INVOICE_SNAPSHOT_FILE"
	envBrowser       = "INVOICE_BROWSER"
	envCDPEndpoint   = "INVOICE_CDP_ENDPOINT"
	envStartURL      = "INVOICE_START_URL"
	envHeadless      = "INVOICE_HEADLESS"
	envRowCount      = "INVOICE_ROW_COUNT"
	envMaxIterations = "INVOICE_MAX_ITERATIONS"
)

type fileStore struct {
	path    string
	envFile string
	logger  logrus.FieldLogger
}

// NewFileStore - creates settings storage backed by a JSON file and an optional .env file
func NewFileStore(path, envFile string, logger logrus.FieldLogger) interfaces.SettingsStore {
	if path == "" {
		path = DefaultFile
	}
	return &fileStore{
		path:    path,
		envFile: envFile,
		logger:  logger,
	}
}

// Load - reads settings; any problem falls back to defaults and is only logged
func (s *fileStore) Load() entities.Settings {
	settings := entities.DefaultSettings()

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		s.logger.WithField("path", s.path).Debug("Settings file not found, using defaults")
	case err != nil:
		s.logger.WithError(err).WithField("path", s.path).Warn("Failed to read settings, using defaults")
	default:
		if err := json.Unmarshal(data, &settings); err != nil {
			s.logger.WithError(err).WithField("path", s.path).Warn("Malformed settings file, using defaults")
			settings = entities.DefaultSettings()
		}
	}

	s.applyEnv(&settings)
	normalize(&settings)
	return settings
}

// Save - writes settings to the JSON file
func (s *fileStore) Save(settings entities.Settings) error {
	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.WithField("path", s.path).Info("Configuration saved")
	return nil
}

// applyEnv overlays the .env file and then the process environment
func (s *fileStore) applyEnv(settings *entities.Settings) {
	values := map[string]string{}
	if s.envFile != "" {
		if fileValues, err := godotenv.Read(s.envFile); err == nil {
			values = fileValues
		} else if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", s.envFile).Warn("Failed to read env file")
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}

	if v, ok := lookup(envOutputFile); ok && v != "" {
		settings.OutputFile = v
	}
	if v, ok := lookup(envSnapshotFile); ok {
		settings.SnapshotFile = v
	}
	if v, ok := lookup(envBrowser); ok && v != "" {
		settings.Browser = entities.BrowserKind(strings.ToLower(v))
	}
	if v, ok := lookup(envCDPEndpoint); ok {
		settings.CDPEndpoint = v
	}
	if v, ok := lookup(envStartURL); ok {
		settings.StartURL = v
	}
	if v, ok := lookup(envHeadless); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.Headless = b
		} else {
			s.logger.WithField(envHeadless, v).Warn("Ignoring invalid boolean")
		}
	}
	if v, ok := lookup(envRowCount); ok {
		if n, err := strconv.Atoi(v); err == nil {
			settings.RowCount = n
		} else {
			s.logger.WithField(envRowCount, v).Warn("Ignoring invalid integer")
		}
	}
	if v, ok := lookup(envMaxIterations); ok {
		if n, err := strconv.Atoi(v); err == nil {
			settings.MaxIterations = n
		} else {
			s.logger.WithField(envMaxIterations, v).Warn("Ignoring invalid integer")
		}
	}
}

func normalize(settings *entities.Settings) {
	defaults := entities.DefaultSettings()
	if settings.RowCount <= 0 {
		settings.RowCount = defaults.RowCount
	}
	if settings.VerticalSpacing < 0 {
		settings.VerticalSpacing = -settings.VerticalSpacing
	}
	if settings.OutputFile == "" {
		settings.OutputFile = defaults.OutputFile
	}
	if settings.RetryDelaysMs == nil {
		settings.RetryDelaysMs = defaults.RetryDelaysMs
	}
	if settings.MaxIterations < 0 {
		settings.MaxIterations = 0
	}
	switch settings.Browser {
	case entities.BrowserPlaywright, entities.BrowserSelenium:
	default:
		settings.Browser = defaults.Browser
	}
}
