package config

import (
	"github.com/adelakul/retail-pulse/internal/core"
	"github.com/adelakul/retail-pulse/internal/store"
)

// ServiceOptions converts the pipeline and ingest settings for core.NewService.
// The config must have passed Validate.
func (c *Config) ServiceOptions() core.Options {
	policy, _ := core.ParsePolicy(c.Pipeline.UnresolvedPolicy)
	return core.Options{
		Policy:        policy,
		BatchSize:     c.Pipeline.BatchSize,
		DateLayouts:   c.Pipeline.DateFormats,
		LowConfidence: c.Pipeline.LowConfidence,
		MinScore:      c.Pipeline.MinScore,
		FailedRowsDir: c.Pipeline.FailedRowsDir,
		Read: core.ReadOptions{
			Encoding: c.Pipeline.InputEncoding,
			MaxBytes: c.Pipeline.MaxFileSize,
		},
		MaxConcurrent: c.Ingest.MaxConcurrent,
		MaxWait:       c.Ingest.MaxWaitTime,
		Timeout:       c.Ingest.Timeout,
	}
}

// StoreConfig converts the database settings for store.Open.
// The config must have passed Validate.
func (c *Config) StoreConfig() store.Config {
	driver, _ := store.ParseDriver(c.Database.Driver)
	return store.Config{
		Driver:          driver,
		URL:             c.Database.URL,
		Table:           c.Database.Table,
		MaxConns:        c.Database.MaxConns,
		MinConns:        c.Database.MinConns,
		MaxConnLifetime: c.Database.MaxConnLifetime,
		MaxConnIdleTime: c.Database.MaxConnIdleTime,
	}
}
