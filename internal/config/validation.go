package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidTopK indicates a retrieval top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidWeights indicates the fusion weights are invalid.
	ErrInvalidWeights = errors.New("invalid fusion weights")

	// ErrInvalidIterations indicates the agent iteration budget is out of range.
	ErrInvalidIterations = errors.New("invalid iteration budget")

	// ErrInvalidChunking indicates the chunk size/overlap pair is unusable.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidPostgres indicates the PostgreSQL settings are incomplete.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

// Bounds for validated values.
const (
	MaxTopK          = 100
	MaxAgentIters    = 25
	MaxChunkSize     = 100_000
	MinChunkSize     = 50
	maxTemperature   = 2.0
	maxFusionWeight  = 1.0
	weightEpsilon    = 1e-9
	minPostgresPort  = 1
	maxPostgresPort  = 65535
	defaultAffirmLen = 1
)

// Validate checks all configuration values and returns the first violation.
// Sentinel errors are wrapped so callers can branch with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > maxTemperature {
		return fmt.Errorf("%w: %v not in [0, %v]", ErrInvalidTemperature, c.Temperature, maxTemperature)
	}
	if len(c.JudgeAffirmatives) < defaultAffirmLen {
		return fmt.Errorf("%w: judge affirmative token set must not be empty", ErrConfigNil)
	}

	if err := c.Retrieval.validate(); err != nil {
		return err
	}

	if c.Agent.MaxIterations < 1 || c.Agent.MaxIterations > MaxAgentIters {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidIterations, c.Agent.MaxIterations, MaxAgentIters)
	}

	if err := c.Ingest.validate(); err != nil {
		return err
	}

	if c.Postgres.Enabled {
		if err := c.Postgres.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (r RetrievalConfig) validate() error {
	for name, k := range map[string]int{
		"dense_top_k":  r.DenseTopK,
		"sparse_top_k": r.SparseTopK,
		"final_top_k":  r.FinalTopK,
	} {
		if k < 1 || k > MaxTopK {
			return fmt.Errorf("%w: %s=%d not in [1, %d]", ErrInvalidTopK, name, k, MaxTopK)
		}
	}
	if r.FinalTopK > r.DenseTopK+r.SparseTopK {
		return fmt.Errorf("%w: final_top_k=%d exceeds candidate pool %d",
			ErrInvalidTopK, r.FinalTopK, r.DenseTopK+r.SparseTopK)
	}
	if r.DenseWeight < 0 || r.DenseWeight > maxFusionWeight ||
		r.SparseWeight < 0 || r.SparseWeight > maxFusionWeight {
		return fmt.Errorf("%w: weights must be in [0, 1]", ErrInvalidWeights)
	}
	if r.DenseWeight+r.SparseWeight < weightEpsilon {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidWeights)
	}
	return nil
}

func (i IngestConfig) validate() error {
	if i.ChunkSize < MinChunkSize || i.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk_size=%d not in [%d, %d]",
			ErrInvalidChunking, i.ChunkSize, MinChunkSize, MaxChunkSize)
	}
	if i.ChunkOverlap < 0 || i.ChunkOverlap >= i.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap=%d must be in [0, chunk_size)", ErrInvalidChunking, i.ChunkOverlap)
	}
	return nil
}

func (p PostgresConfig) validate() error {
	if p.Host == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgres)
	}
	if p.Port < minPostgresPort || p.Port > maxPostgresPort {
		return fmt.Errorf("%w: port=%d not in [%d, %d]", ErrInvalidPostgres, p.Port, minPostgresPort, maxPostgresPort)
	}
	if p.User == "" || p.DBName == "" {
		return fmt.Errorf("%w: user and dbname are required", ErrInvalidPostgres)
	}
	switch p.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: unsupported sslmode %q", ErrInvalidPostgres, p.SSLMode)
	}
	return nil
}
