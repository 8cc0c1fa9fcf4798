package preflight

import (
	"context"

	"amreingest/internal/config"
	"amreingest/internal/pipeline"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// CheckDirectories verifies the data and log directories.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, client pipeline.Client) []Result {
	if cfg == nil {
		return nil
	}

	results := CheckDirectories(cfg)
	if client == nil {
		return results
	}
	results = append(results, CheckPipeline(ctx, client, cfg.Reingest.Pipeline))
	results = append(results, CheckProcessingConfig(ctx, client, cfg.Reingest.ProcessingConfig))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
