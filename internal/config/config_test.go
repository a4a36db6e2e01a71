package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"assessment-service/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "6670" {
		t.Errorf("Expected default port 6670, got %s", cfg.Port)
	}
	sel := cfg.SelectorConfig()
	if sel.Tolerance != 1 || sel.MaxQuestions != 200 {
		t.Errorf("Unexpected selection defaults %+v", sel)
	}
	if sel.Weights[models.DifficultyHard] != 3 {
		t.Errorf("Expected hard weight 3, got %d", sel.Weights[models.DifficultyHard])
	}
	if cfg.Redis.SetCacheTTL != 10*time.Minute {
		t.Errorf("Expected 10m cache TTL, got %v", cfg.Redis.SetCacheTTL)
	}
	if cfg.TrackerConfig().CASRetries != 5 {
		t.Errorf("Expected 5 CAS retries, got %d", cfg.TrackerConfig().CASRetries)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("POINTS_WEIGHT_HARD", "5")
	t.Setenv("ATTEMPT_DEFAULT_TIME_LIMIT", "45m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Selection.WeightHard != 5 {
		t.Errorf("Expected hard weight 5, got %d", cfg.Selection.WeightHard)
	}
	if cfg.Attempt.DefaultTimeLimit != 45*time.Minute {
		t.Errorf("Expected 45m, got %v", cfg.Attempt.DefaultTimeLimit)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	content := "store_driver: memory\nselection_max_questions: 50\npoints_weight_medium: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("POINTS_WEIGHT_MEDIUM", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Selection.MaxQuestions != 50 {
		t.Errorf("Expected max 50 from the file, got %d", cfg.Selection.MaxQuestions)
	}
	if cfg.Selection.WeightMedium != 6 {
		t.Errorf("Expected the environment to win, got %d", cfg.Selection.WeightMedium)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"zero weight", map[string]string{"STORE_DRIVER": "memory", "POINTS_WEIGHT_EASY": "0"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "cassandra"}},
		{"mongo without uri", map[string]string{"STORE_DRIVER": "mongo", "MONGO_URI": ""}},
		{"default above max", map[string]string{"STORE_DRIVER": "memory", "SELECTION_DEFAULT_QUESTIONS": "300"}},
		{"no retries", map[string]string{"STORE_DRIVER": "memory", "ATTEMPT_CAS_RETRIES": "0"}},
		{"negative tolerance", map[string]string{"STORE_DRIVER": "memory", "SELECTION_TOLERANCE": "-1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Errorf("Expected a validation error")
			}
		})
	}
}
