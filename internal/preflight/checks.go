package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"amreingest/internal/pipeline"
)

const remoteCheckTimeout = 15 * time.Second

// CheckPipeline verifies the Storage Service is reachable and knows the
// target pipeline.
func CheckPipeline(ctx context.Context, client pipeline.Client, pipelineID string) Result {
	const name = "Storage Service pipeline"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	pipelines, err := client.Pipelines(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("list pipelines failed (%v)", err)}
	}
	for _, p := range pipelines {
		if p.UUID == pipelineID {
			detail := pipelineID
			if p.Description != "" {
				detail = fmt.Sprintf("%s (%s)", pipelineID, p.Description)
			}
			return Result{Name: name, Passed: true, Detail: detail}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s not registered (%d pipelines known)", pipelineID, len(pipelines))}
}

// CheckProcessingConfig verifies the dashboard is reachable and has the named
// processing configuration.
func CheckProcessingConfig(ctx context.Context, client pipeline.Client, configName string) Result {
	const name = "Processing configuration"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	exists, err := client.ProcessingConfigExists(checkCtx, configName)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("lookup failed (%v)", err)}
	}
	if !exists {
		return Result{Name: name, Detail: fmt.Sprintf("%q does not exist", configName)}
	}
	return Result{Name: name, Passed: true, Detail: configName}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
