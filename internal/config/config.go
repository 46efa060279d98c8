// =============================================================================
// pain.001 File Generator - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the per-profile
// configurations that drive batch processing.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults
//   2. Main config file (config.yaml)
//   3. An optional .env file in the working directory
//   4. PAIN001_* environment variables
//
// PROFILES:
//   Each YAML file in configs_dir describes one family of input files: how to
//   match them, which message version to produce, how to parse them and which
//   transformations and column contract apply.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vinaygupta2050/painFileGenerator/internal/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAIN001_"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by the process command.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives generated XML when no output path is given.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives successfully processed input files.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every generated file.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// TemplatesDir holds <version>.xml.tmpl files that replace the built-in templates.
	// Empty means built-in templates only.
	TemplatesDir string `yaml:"templates_dir"`

	// SchemasDir holds <version>.xsd files used by the process command.
	// Default: "./schemas"
	SchemasDir string `yaml:"schemas_dir"`

	// ConfigsDir holds the profile configurations.
	// Default: "./configs"
	ConfigsDir string `yaml:"configs_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile receives a copy of the log output. Empty disables it.
	// Default: "./logs/pain001.log"
	LogFile string `yaml:"log_file"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// CONVERSION SETTINGS
	// =========================================================================

	// DefaultVersion is used by profiles that do not name a version.
	// Default: "pain.001.001.03"
	DefaultVersion string `yaml:"default_version"`

	// CountPolicy is "strict" or "clamp" (see aggregate.CountPolicy).
	// Default: "strict"
	CountPolicy string `yaml:"count_policy"`

	// XSDValidator is an optional external validator command with {schema}
	// and {file} placeholders, e.g. "xmllint --noout --schema {schema} {file}".
	XSDValidator string `yaml:"xsd_validator"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files converted at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps processing other files after a failure.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// MetricsFile receives a Prometheus text-format snapshot after processing.
	// Empty disables it.
	MetricsFile string `yaml:"metrics_file"`

	// =========================================================================
	// COLLABORATORS
	// =========================================================================

	// Database configures the tabular-store record source.
	Database DatabaseConfig `yaml:"database"`

	// Storage configures optional artifact publishing.
	Storage StorageConfig `yaml:"storage"`
}

// ShouldContinueOnError reports the effective continue_on_error setting.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// DatabaseConfig configures the tabular-store record source.
type DatabaseConfig struct {
	// Driver is "sqlite3" or "pgx". Empty lets the loader pick from the path.
	Driver string `yaml:"driver"`

	// DSN is used when --data names no file, e.g. a PostgreSQL URL.
	DSN string `yaml:"dsn"`

	// Table holds the rows. Default: "pain001"
	Table string `yaml:"table"`
}

// StorageConfig configures publishing artifacts to S3-compatible storage.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`

	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix"`
}

// Enabled reports whether publishing is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// =============================================================================
// PROFILE CONFIGURATION STRUCTURE
// =============================================================================

// Profile holds the configuration for one family of input files.
type Profile struct {
	// ProfileName is the human-readable name used in logs.
	ProfileName string `yaml:"profile_name"`

	// ProfileCode is a short code; it keys the profile map.
	ProfileCode string `yaml:"profile_code"`

	// FileMatchingPatterns are glob patterns matched against input file names.
	// Examples: "payroll_*.csv", "*_suppliers.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Version is the message version to produce. Empty uses default_version.
	Version string `yaml:"version"`

	// SchemaFile overrides <schemas_dir>/<version>.xsd.
	SchemaFile string `yaml:"schema_file,omitempty"`

	// TemplateFile renders with an explicit template instead of the version's.
	TemplateFile string `yaml:"template_file,omitempty"`

	// CountPolicy overrides the main count_policy.
	CountPolicy string `yaml:"count_policy,omitempty"`

	// Table overrides the database table for SQLite inputs.
	Table string `yaml:"table,omitempty"`

	// CSVSettings contains settings for parsing CSV input.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// TransformationRules are applied to every record before validation.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`

	// StaticFields fill or override columns before validation.
	StaticFields []StaticField `yaml:"static_fields"`

	// Contract replaces the default column contract when non-empty.
	Contract []validation.ColumnRule `yaml:"contract"`

	// ContractFile is an XLSX contract sheet; it wins over Contract.
	ContractFile string `yaml:"contract_file,omitempty"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter separates fields: ",", ";", "|" or "\t".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of column-header rows; multi-row headers are merged.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-based row where records begin.
	// Default: header_rows + 1
	DataStartRow int `yaml:"data_start_row"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines the transformations applied to one column.
type TransformationRule struct {
	// Field is the column name.
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the transformation, e.g. "trim", "uppercase", "replace",
	// "regex_replace", "pad_zeros_to_length", "format_number", "format_date",
	// "lookup", "if_empty_use_default", "if_empty_use_field", "remove_spaces".
	Type string `yaml:"type"`

	// Value is the parameter of the transformation.
	Value string `yaml:"value"`

	// Find is the substring or pattern for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values for "lookup".
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// STATIC FIELD STRUCTURE
// =============================================================================

// StaticField defines a column with a constant value.
type StaticField struct {
	// Column is the column name.
	Column string `yaml:"column"`

	// Value is the constant value.
	Value string `yaml:"value"`

	// Rows is "header" (row 0 only) or "all".
	// Default: "header"
	Rows string `yaml:"rows,omitempty"`

	// Overwrite replaces non-empty values; otherwise only blanks are filled.
	Overwrite bool `yaml:"overwrite,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration holding only the built-in defaults.
func Default() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file and applies
// .env and environment overrides.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//   - required: When false, a missing file yields the defaults.
//
// RETURNS:
//   - The configuration.
//   - An error if the file cannot be read or parsed, or a directory cannot be created.
func LoadMainConfig(configPath string, required bool) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnvOverrides(&config)

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.SchemasDir == "" {
		config.SchemasDir = "./schemas"
	}
	if config.ConfigsDir == "" {
		config.ConfigsDir = "./configs"
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/pain001.log"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.DefaultVersion == "" {
		config.DefaultVersion = "pain.001.001.03"
	}
	if config.CountPolicy == "" {
		config.CountPolicy = "strict"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Database.Table == "" {
		config.Database.Table = "pain001"
	}
}

// applyEnvOverrides copies PAIN001_* variables over file values.
func applyEnvOverrides(config *MainConfig) {
	config.InputDir = getEnv("INPUT_DIR", config.InputDir)
	config.OutputDir = getEnv("OUTPUT_DIR", config.OutputDir)
	config.InputArchiveDir = getEnv("INPUT_ARCHIVE_DIR", config.InputArchiveDir)
	config.OutputArchiveDir = getEnv("OUTPUT_ARCHIVE_DIR", config.OutputArchiveDir)
	config.TemplatesDir = getEnv("TEMPLATES_DIR", config.TemplatesDir)
	config.SchemasDir = getEnv("SCHEMAS_DIR", config.SchemasDir)
	config.ConfigsDir = getEnv("CONFIGS_DIR", config.ConfigsDir)
	config.LogFile = getEnv("LOG_FILE", config.LogFile)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getEnv("LOG_FORMAT", config.LogFormat)
	config.DefaultVersion = getEnv("DEFAULT_VERSION", config.DefaultVersion)
	config.CountPolicy = getEnv("COUNT_POLICY", config.CountPolicy)
	config.XSDValidator = getEnv("XSD_VALIDATOR", config.XSDValidator)
	config.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", config.MaxConcurrency)
	config.MetricsFile = getEnv("METRICS_FILE", config.MetricsFile)

	if v, ok := lookupEnvBool("CONTINUE_ON_ERROR"); ok {
		config.ContinueOnError = &v
	}

	config.Database.Driver = getEnv("DB_DRIVER", config.Database.Driver)
	config.Database.DSN = getEnv("DB_DSN", config.Database.DSN)
	config.Database.Table = getEnv("DB_TABLE", config.Database.Table)

	config.Storage.Endpoint = getEnv("S3_ENDPOINT", config.Storage.Endpoint)
	config.Storage.AccessKey = getEnv("S3_ACCESS_KEY", config.Storage.AccessKey)
	config.Storage.SecretKey = getEnv("S3_SECRET_KEY", config.Storage.SecretKey)
	config.Storage.Bucket = getEnv("S3_BUCKET", config.Storage.Bucket)
	config.Storage.Prefix = getEnv("S3_PREFIX", config.Storage.Prefix)
	config.Storage.UseSSL = getEnvBool("S3_USE_SSL", config.Storage.UseSSL)
}

// validateMainConfig creates the working directories.
func validateMainConfig(config *MainConfig) error {
	if config.LogFormat != "text" && config.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", config.LogFormat)
	}

	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.ConfigsDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := lookupEnvBool(key); ok {
		return v
	}
	return def
}

func lookupEnvBool(key string) (bool, bool) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadProfiles loads all profile configurations from a directory.
//
// PARAMETERS:
//   - configsDir: The directory containing profile files (*.yaml, *.yml).
//
// RETURNS:
//   - The profiles keyed by profile code (or file name when no code is set).
//   - An error if any file cannot be parsed.
func LoadProfiles(configsDir string) (map[string]*Profile, error) {
	profiles := make(map[string]*Profile)

	files, err := filepath.Glob(filepath.Join(configsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(configsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		profile, err := LoadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := profile.ProfileCode
		if key == "" {
			key = filepath.Base(file)
		}

		profiles[key] = profile
	}

	return profiles, nil
}

// LoadProfile loads a single profile file.
func LoadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applyProfileDefaults(&profile)

	return &profile, nil
}

// applyProfileDefaults sets default values for a profile.
func applyProfileDefaults(profile *Profile) {
	if profile.CSVSettings.Delimiter == "" {
		profile.CSVSettings.Delimiter = ","
	}
	if profile.CSVSettings.HeaderRows == 0 {
		profile.CSVSettings.HeaderRows = 1
	}
	if profile.CSVSettings.DataStartRow == 0 {
		profile.CSVSettings.DataStartRow = profile.CSVSettings.HeaderRows + 1
	}

	for i := range profile.StaticFields {
		if profile.StaticFields[i].Rows == "" {
			profile.StaticFields[i].Rows = "header"
		}
	}

	for i := range profile.Contract {
		rule := &profile.Contract[i]
		rule.Type = validation.NormalizeType(string(rule.Type))
		rule.Scope = validation.NormalizeScope(string(rule.Scope))
	}
}

// DefaultProfile is used when no profile matches a file.
func DefaultProfile(version string) *Profile {
	profile := &Profile{ProfileName: "default", ProfileCode: "default", Version: version}
	applyProfileDefaults(profile)
	return profile
}

// MatchProfile returns the first profile (in key order) whose patterns match fileName.
func MatchProfile(fileName string, profiles map[string]*Profile) (*Profile, bool) {
	keys := make([]string, 0, len(profiles))
	for k := range profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, pattern := range profiles[key].FileMatchingPatterns {
			if matched, _ := filepath.Match(strings.TrimSpace(pattern), fileName); matched {
				return profiles[key], true
			}
		}
	}
	return nil, false
}
