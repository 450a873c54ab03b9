// Package config provides Viper-based configuration loading for the skirmish engine.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// PersistenceConfig toggles the snapshot store.
type PersistenceConfig struct {
	// Enabled turns on the PostgreSQL snapshot repository.
	Enabled bool `mapstructure:"enabled"`
	// Slot is the save slot written by the console driver.
	Slot int `mapstructure:"slot"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ContentConfig names the directories holding YAML and Lua content.
type ContentConfig struct {
	SkillsDir     string `mapstructure:"skills_dir"`
	EnemiesDir    string `mapstructure:"enemies_dir"`
	AIDir         string `mapstructure:"ai_dir"`
	ClassesDir    string `mapstructure:"classes_dir"`
	MapsDir       string `mapstructure:"maps_dir"`
	EncountersDir string `mapstructure:"encounters_dir"`
	ScriptsDir    string `mapstructure:"scripts_dir"`
	// Encounter is the ID of the encounter the console driver starts.
	Encounter string `mapstructure:"encounter"`
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit caps the VM instructions per hook call. 0 disables the cap.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// CombatConfig holds the rule constants of an encounter.
type CombatConfig struct {
	TypoPenaltyAP     int           `mapstructure:"typo_penalty_ap"`
	SuccessRegenAP    int           `mapstructure:"success_regen_ap"`
	TurnStartRegenAP  int           `mapstructure:"turn_start_regen_ap"`
	MoveCostAP        int           `mapstructure:"move_cost_ap"`
	BaseAttackScore   int           `mapstructure:"base_attack_score"`
	ComboBonusPerStep int           `mapstructure:"combo_bonus_per_step"`
	MaxSpeedBonus     int           `mapstructure:"max_speed_bonus"`
	EnemyActionDelay  time.Duration `mapstructure:"enemy_action_delay"`
	// ActivationRange limits which enemies act in the enemy phase. 0 means unlimited.
	ActivationRange int    `mapstructure:"activation_range"`
	BlockWord       string `mapstructure:"block_word"`
	DodgeWord       string `mapstructure:"dodge_word"`
	TerminatorWord  string `mapstructure:"terminator_word"`
	// DistanceMetric is "axial" (exact) or "pixel" (world-space approximation).
	DistanceMetric string  `mapstructure:"distance_metric"`
	CellWidth      float64 `mapstructure:"cell_width"`
	CellHeight     float64 `mapstructure:"cell_height"`
	// AnimationDelay is how long the console presenter holds a move or attack request.
	AnimationDelay time.Duration `mapstructure:"animation_delay"`
}

// Config is the top-level application configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Content     ContentConfig     `mapstructure:"content"`
	Scripting   ScriptingConfig   `mapstructure:"scripting"`
	Combat      CombatConfig      `mapstructure:"combat"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Persistence.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	dirs := []struct{ key, val string }{
		{"content.skills_dir", c.SkillsDir},
		{"content.enemies_dir", c.EnemiesDir},
		{"content.ai_dir", c.AIDir},
		{"content.classes_dir", c.ClassesDir},
		{"content.maps_dir", c.MapsDir},
		{"content.encounters_dir", c.EncountersDir},
	}
	for _, d := range dirs {
		if d.val == "" {
			errs = append(errs, d.key+" must not be empty")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	nonNegative := []struct {
		key string
		val int
	}{
		{"combat.typo_penalty_ap", c.TypoPenaltyAP},
		{"combat.success_regen_ap", c.SuccessRegenAP},
		{"combat.turn_start_regen_ap", c.TurnStartRegenAP},
		{"combat.move_cost_ap", c.MoveCostAP},
		{"combat.base_attack_score", c.BaseAttackScore},
		{"combat.combo_bonus_per_step", c.ComboBonusPerStep},
		{"combat.max_speed_bonus", c.MaxSpeedBonus},
		{"combat.activation_range", c.ActivationRange},
	}
	for _, n := range nonNegative {
		if n.val < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0, got %d", n.key, n.val))
		}
	}
	if c.EnemyActionDelay < 0 {
		errs = append(errs, "combat.enemy_action_delay must not be negative")
	}
	if c.AnimationDelay < 0 {
		errs = append(errs, "combat.animation_delay must not be negative")
	}
	words := map[string]string{
		"combat.block_word":      c.BlockWord,
		"combat.dodge_word":      c.DodgeWord,
		"combat.terminator_word": c.TerminatorWord,
	}
	seen := make(map[string]string, len(words))
	for _, key := range []string{"combat.block_word", "combat.dodge_word", "combat.terminator_word"} {
		w := strings.ToLower(strings.TrimSpace(words[key]))
		if w == "" {
			errs = append(errs, key+" must not be empty")
			continue
		}
		if other, ok := seen[w]; ok {
			errs = append(errs, fmt.Sprintf("%s duplicates %s (%q)", key, other, w))
			continue
		}
		seen[w] = key
	}
	validMetrics := map[string]bool{"axial": true, "pixel": true}
	if !validMetrics[c.DistanceMetric] {
		errs = append(errs, fmt.Sprintf("combat.distance_metric must be one of [axial, pixel], got %q", c.DistanceMetric))
	}
	if c.CellWidth <= 0 || c.CellHeight <= 0 {
		errs = append(errs, "combat.cell_width and combat.cell_height must be > 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with KEYSTRIKE_ prefix
	v.SetEnvPrefix("KEYSTRIKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance populated only with default values.
//
// Postcondition: LoadFromViper(Defaults()) yields a valid Config.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "keystrike")
	v.SetDefault("database.password", "keystrike")
	v.SetDefault("database.name", "keystrike")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("persistence.enabled", false)
	v.SetDefault("persistence.slot", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("content.skills_dir", "content/skills")
	v.SetDefault("content.enemies_dir", "content/enemies")
	v.SetDefault("content.ai_dir", "content/ai")
	v.SetDefault("content.classes_dir", "content/classes")
	v.SetDefault("content.maps_dir", "content/maps")
	v.SetDefault("content.encounters_dir", "content/encounters")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.encounter", "training_grounds")

	v.SetDefault("scripting.instruction_limit", 100000)

	v.SetDefault("combat.typo_penalty_ap", 2)
	v.SetDefault("combat.success_regen_ap", 3)
	v.SetDefault("combat.turn_start_regen_ap", 2)
	v.SetDefault("combat.move_cost_ap", 1)
	v.SetDefault("combat.base_attack_score", 100)
	v.SetDefault("combat.combo_bonus_per_step", 10)
	v.SetDefault("combat.max_speed_bonus", 100)
	v.SetDefault("combat.enemy_action_delay", "500ms")
	v.SetDefault("combat.activation_range", 0)
	v.SetDefault("combat.block_word", "parry")
	v.SetDefault("combat.dodge_word", "dodge")
	v.SetDefault("combat.terminator_word", "end")
	v.SetDefault("combat.distance_metric", "axial")
	v.SetDefault("combat.cell_width", 32.0)
	v.SetDefault("combat.cell_height", 28.0)
	v.SetDefault("combat.animation_delay", "150ms")
}
