package config

import (
	"fmt"
	"strings"
	"time"

	"assessment-service/internal/attempt"
	"assessment-service/internal/models"
	"assessment-service/internal/selection"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port      string
	Store     StoreConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Consul    ConsulConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Selection SelectionConfig
	Attempt   AttemptConfig
}

type StoreConfig struct {
	// Driver is one of mongo, sqlite or memory.
	Driver     string
	MongoURI   string
	MongoDB    string
	SQLitePath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// SetCacheTTL is how long assembled question sets stay cached. Zero disables the cache.
	SetCacheTTL time.Duration
}

type RabbitMQConfig struct {
	URI      string
	Exchange string
}

type ConsulConfig struct {
	Address        string
	ServiceName    string
	ServiceID      string
	ServiceAddress string
}

type LogConfig struct {
	Level string
	File  string
}

type HTTPConfig struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type SelectionConfig struct {
	DefaultQuestions int
	MaxQuestions     int
	Tolerance        float64
	WeightEasy       int
	WeightMedium     int
	WeightHard       int
}

type AttemptConfig struct {
	DefaultTimeLimit time.Duration
	CASRetries       int
	SweepInterval    time.Duration
	SweepBatch       int
	SweepWorkers     int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "6670")
	v.SetDefault("store_driver", "mongo")
	v.SetDefault("mongo_db", "assessment_service")
	v.SetDefault("sqlite_path", "assessment.db")
	v.SetDefault("redis_db", 0)
	v.SetDefault("question_set_cache_ttl", "10m")
	v.SetDefault("rabbitmq_exchange", "assessment.events")
	v.SetDefault("service_name", "assessment-service")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("rate_limit_rps", 20.0)
	v.SetDefault("rate_limit_burst", 40)

	v.SetDefault("selection_default_questions", 10)
	v.SetDefault("selection_max_questions", 200)
	v.SetDefault("selection_tolerance", 1.0)
	v.SetDefault("points_weight_easy", 1)
	v.SetDefault("points_weight_medium", 2)
	v.SetDefault("points_weight_hard", 3)

	v.SetDefault("attempt_default_time_limit", "0s")
	v.SetDefault("attempt_cas_retries", 5)
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("sweep_batch", 100)
	v.SetDefault("sweep_workers", 4)
}

// Load reads .env when present, then the environment and the optional YAML
// file named by CONFIG_FILE. Environment values win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port: v.GetString("port"),
		Store: StoreConfig{
			Driver:     strings.ToLower(v.GetString("store_driver")),
			MongoURI:   v.GetString("mongo_uri"),
			MongoDB:    v.GetString("mongo_db"),
			SQLitePath: v.GetString("sqlite_path"),
		},
		Redis: RedisConfig{
			Addr:        v.GetString("redis_addr"),
			Password:    v.GetString("redis_pwd"),
			DB:          v.GetInt("redis_db"),
			SetCacheTTL: v.GetDuration("question_set_cache_ttl"),
		},
		RabbitMQ: RabbitMQConfig{
			URI:      v.GetString("rabbitmq_uri"),
			Exchange: v.GetString("rabbitmq_exchange"),
		},
		Consul: ConsulConfig{
			Address:        v.GetString("consul_address"),
			ServiceName:    v.GetString("service_name"),
			ServiceID:      v.GetString("service_id"),
			ServiceAddress: v.GetString("service_address"),
		},
		Log: LogConfig{
			Level: v.GetString("log_level"),
			File:  v.GetString("log_file"),
		},
		HTTP: HTTPConfig{
			CORSOrigins:    splitList(v.GetString("cors_origins")),
			RateLimitRPS:   v.GetFloat64("rate_limit_rps"),
			RateLimitBurst: v.GetInt("rate_limit_burst"),
		},
		Selection: SelectionConfig{
			DefaultQuestions: v.GetInt("selection_default_questions"),
			MaxQuestions:     v.GetInt("selection_max_questions"),
			Tolerance:        v.GetFloat64("selection_tolerance"),
			WeightEasy:       v.GetInt("points_weight_easy"),
			WeightMedium:     v.GetInt("points_weight_medium"),
			WeightHard:       v.GetInt("points_weight_hard"),
		},
		Attempt: AttemptConfig{
			DefaultTimeLimit: v.GetDuration("attempt_default_time_limit"),
			CASRetries:       v.GetInt("attempt_cas_retries"),
			SweepInterval:    v.GetDuration("sweep_interval"),
			SweepBatch:       v.GetInt("sweep_batch"),
			SweepWorkers:     v.GetInt("sweep_workers"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "mongo":
		if c.Store.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	s := c.Selection
	if s.WeightEasy < 1 || s.WeightMedium < 1 || s.WeightHard < 1 {
		return fmt.Errorf("points weights must be at least 1, got easy=%d medium=%d hard=%d",
			s.WeightEasy, s.WeightMedium, s.WeightHard)
	}
	if s.MaxQuestions < 1 || s.DefaultQuestions < 1 || s.DefaultQuestions > s.MaxQuestions {
		return fmt.Errorf("selection question limits are inconsistent: default=%d max=%d",
			s.DefaultQuestions, s.MaxQuestions)
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("SELECTION_TOLERANCE must not be negative")
	}

	if c.Attempt.CASRetries < 1 {
		return fmt.Errorf("ATTEMPT_CAS_RETRIES must be at least 1")
	}
	if c.Attempt.DefaultTimeLimit < 0 {
		return fmt.Errorf("ATTEMPT_DEFAULT_TIME_LIMIT must not be negative")
	}
	return nil
}

// SelectorConfig converts the selection tunables for the selector.
func (c *Config) SelectorConfig() selection.Config {
	return selection.Config{
		DefaultQuestions: c.Selection.DefaultQuestions,
		MaxQuestions:     c.Selection.MaxQuestions,
		Tolerance:        c.Selection.Tolerance,
		Weights: map[models.Difficulty]int{
			models.DifficultyEasy:   c.Selection.WeightEasy,
			models.DifficultyMedium: c.Selection.WeightMedium,
			models.DifficultyHard:   c.Selection.WeightHard,
		},
	}
}

func (c *Config) TrackerConfig() attempt.Config {
	return attempt.Config{
		CASRetries:       c.Attempt.CASRetries,
		DefaultTimeLimit: c.Attempt.DefaultTimeLimit,
	}
}

func (c *Config) SweeperConfig() attempt.SweeperConfig {
	return attempt.SweeperConfig{
		Interval: c.Attempt.SweepInterval,
		Batch:    c.Attempt.SweepBatch,
		Workers:  c.Attempt.SweepWorkers,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
