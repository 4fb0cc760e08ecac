package config

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v, want nil", err)
	}

	if cfg.Retrieval.FinalTopK != DefaultFinalTopK {
		t.Errorf("FinalTopK = %d, want %d", cfg.Retrieval.FinalTopK, DefaultFinalTopK)
	}
	if cfg.Retrieval.DenseWeight != DefaultDenseWeight {
		t.Errorf("DenseWeight = %v, want %v", cfg.Retrieval.DenseWeight, DefaultDenseWeight)
	}
	if len(cfg.JudgeAffirmatives) == 0 {
		t.Error("JudgeAffirmatives is empty, want default token set")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Temperature = 3.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero final top-k",
			mutate:  func(c *Config) { c.Retrieval.FinalTopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "final exceeds candidate pool",
			mutate:  func(c *Config) { c.Retrieval.FinalTopK = 50; c.Retrieval.DenseTopK = 10; c.Retrieval.SparseTopK = 10 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "both weights zero",
			mutate:  func(c *Config) { c.Retrieval.DenseWeight = 0; c.Retrieval.SparseWeight = 0 },
			wantErr: ErrInvalidWeights,
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Retrieval.DenseWeight = -0.1 },
			wantErr: ErrInvalidWeights,
		},
		{
			name:    "zero agent iterations",
			mutate:  func(c *Config) { c.Agent.MaxIterations = 0 },
			wantErr: ErrInvalidIterations,
		},
		{
			name:    "overlap not below chunk size",
			mutate:  func(c *Config) { c.Ingest.ChunkOverlap = c.Ingest.ChunkSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "postgres enabled without host",
			mutate:  func(c *Config) { c.Postgres.Enabled = true; c.Postgres.Host = "" },
			wantErr: ErrInvalidPostgres,
		},
		{
			name:    "postgres bad sslmode",
			mutate:  func(c *Config) { c.Postgres.Enabled = true; c.Postgres.SSLMode = "yolo" },
			wantErr: ErrInvalidPostgres,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want errors.Is(%v)", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresConnectionString(t *testing.T) {
	p := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "ragent",
		Password: "p4ss word's",
		DBName:   "ragent",
		SSLMode:  "require",
	}

	dsn := p.ConnectionString()
	for _, want := range []string{"host=db.internal", "port=5433", "sslmode=require", `password='p4ss word\'s'`} {
		if !strings.Contains(dsn, want) {
			t.Errorf("ConnectionString() = %q, missing %q", dsn, want)
		}
	}
}

func TestPostgresURL(t *testing.T) {
	p := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "u",
		Password: "p@ss/wd",
		DBName:   "ragent",
		SSLMode:  "disable",
	}

	u := p.URL()
	if !strings.HasPrefix(u, "postgres://") {
		t.Errorf("URL() = %q, want postgres:// scheme", u)
	}
	if strings.Contains(u, "p@ss/wd") {
		t.Errorf("URL() = %q, credentials not escaped", u)
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Tools.TavilyAPIKey = "tvly-super-secret"
	cfg.Postgres.Enabled = true
	cfg.Postgres.Password = "hunter2"

	s := cfg.String()
	if strings.Contains(s, "tvly-super-secret") || strings.Contains(s, "hunter2") {
		t.Errorf("String() leaks secrets: %s", s)
	}
	if !strings.Contains(s, cfg.ModelName) {
		t.Errorf("String() = %q, missing model name", s)
	}
	if !strings.Contains(s, "Tavily:(set)") {
		t.Errorf("String() = %q, want masked Tavily marker", s)
	}

	cfg.Tools.TavilyAPIKey = ""
	if !strings.Contains(cfg.String(), "Tavily:(unset)") {
		t.Errorf("String() = %q, want unset Tavily marker", cfg.String())
	}
}
