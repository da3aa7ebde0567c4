package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	MySQL      MySQLConfig      `yaml:"mysql"`
	Redis      RedisConfig      `yaml:"redis"`
	Queue      QueueConfig      `yaml:"queue"`
	Logger     LoggerConfig     `yaml:"logger"`
	K8s        K8sConfig        `yaml:"k8s"`
	Model      ModelConfig      `yaml:"model"`
	Deployment DeploymentConfig `yaml:"deployment"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // bearer token for mutating deployment APIs (empty disables auth)
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QueueConfig scoring queue configuration
type QueueConfig struct {
	Concurrency int `yaml:"concurrency"`  // scoring worker concurrency
	MaxRetry    int `yaml:"max_retry"`    // maximum retry count per scoring task
	TaskTimeout int `yaml:"task_timeout"` // scoring task timeout (seconds)
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// K8sConfig K8s configuration
type K8sConfig struct {
	Enabled   bool   `yaml:"enabled"`   // whether deployment management is enabled
	Namespace string `yaml:"namespace"` // namespace releases are applied to
}

// ModelConfig prediction model configuration
type ModelConfig struct {
	DatasetPath  string  `yaml:"dataset_path"`  // training CSV path
	TestFraction float64 `yaml:"test_fraction"` // holdout fraction for evaluation
	Trees        int     `yaml:"trees"`         // forest size
	MaxDepth     int     `yaml:"max_depth"`     // per-tree depth limit (0 = unlimited)
	MinLeaf      int     `yaml:"min_leaf"`      // minimum samples per leaf
	Seed         int64   `yaml:"seed"`          // rng seed for split/bootstrap
	CacheTTL     int     `yaml:"cache_ttl"`     // prediction cache TTL (seconds)
	SnapshotPath string  `yaml:"snapshot_path"` // optional trained-model snapshot (empty disables)
}

// DeploymentConfig default release parameters for the scoring workload
type DeploymentConfig struct {
	Name           string `yaml:"name"`            // deployment and app-label name
	Image          string `yaml:"image"`           // container image reference
	Replicas       int32  `yaml:"replicas"`        // desired replica count
	Port           int32  `yaml:"port"`            // container port (must match server.port)
	CPURequest     string `yaml:"cpu_request"`     // e.g. "250m"
	CPULimit       string `yaml:"cpu_limit"`       // e.g. "500m"
	MemoryRequest  string `yaml:"memory_request"`  // e.g. "256Mi"
	MemoryLimit    string `yaml:"memory_limit"`    // e.g. "512Mi"
	PullPolicy     string `yaml:"pull_policy"`     // Always, IfNotPresent, Never
	StatusInterval int    `yaml:"status_interval"` // release status sync interval (seconds)
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Mode: "release",
		},
		MySQL: MySQLConfig{
			Host:     "127.0.0.1",
			Port:     3306,
			User:     "loanpilot",
			Database: "loanpilot",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Queue: QueueConfig{
			Concurrency: 10,
			MaxRetry:    3,
			TaskTimeout: 60,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Output: "console",
		},
		K8s: K8sConfig{
			Enabled:   true,
			Namespace: "default",
		},
		Model: ModelConfig{
			DatasetPath:  "datasets/train.csv",
			TestFraction: 0.2,
			Trees:        100,
			MinLeaf:      2,
			Seed:         42,
			CacheTTL:     3600,
		},
		Deployment: DeploymentConfig{
			Name:           "loan-prediction-app",
			Image:          "loan-prediction-app:latest",
			Replicas:       2,
			Port:           8080,
			CPURequest:     "250m",
			CPULimit:       "500m",
			MemoryRequest:  "256Mi",
			MemoryLimit:    "512Mi",
			PullPolicy:     "Always",
			StatusInterval: 30,
		},
	}
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		// No config file: run on defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", configPath, err)
		}
	}

	validateAndApplyDefaults(cfg)
	GlobalConfig = cfg
	return nil
}

// validateAndApplyDefaults replaces out-of-range values with defaults so a
// partially filled config file cannot leave the process unrunnable.
func validateAndApplyDefaults(cfg *Config) {
	def := Default()

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = def.Queue.Concurrency
	}
	if cfg.Queue.MaxRetry < 0 {
		cfg.Queue.MaxRetry = def.Queue.MaxRetry
	}
	if cfg.Queue.TaskTimeout <= 0 {
		cfg.Queue.TaskTimeout = def.Queue.TaskTimeout
	}
	if cfg.Model.TestFraction <= 0 || cfg.Model.TestFraction >= 1 {
		cfg.Model.TestFraction = def.Model.TestFraction
	}
	if cfg.Model.Trees <= 0 {
		cfg.Model.Trees = def.Model.Trees
	}
	if cfg.Model.MinLeaf <= 0 {
		cfg.Model.MinLeaf = def.Model.MinLeaf
	}
	if cfg.Model.CacheTTL <= 0 {
		cfg.Model.CacheTTL = def.Model.CacheTTL
	}
	if cfg.Model.DatasetPath == "" {
		cfg.Model.DatasetPath = def.Model.DatasetPath
	}
	if cfg.Deployment.Name == "" {
		cfg.Deployment.Name = def.Deployment.Name
	}
	if cfg.Deployment.Replicas <= 0 {
		cfg.Deployment.Replicas = def.Deployment.Replicas
	}
	if cfg.Deployment.Port <= 0 {
		cfg.Deployment.Port = def.Deployment.Port
	}
	if cfg.Deployment.PullPolicy == "" {
		cfg.Deployment.PullPolicy = def.Deployment.PullPolicy
	}
	if cfg.Deployment.StatusInterval <= 0 {
		cfg.Deployment.StatusInterval = def.Deployment.StatusInterval
	}
}
