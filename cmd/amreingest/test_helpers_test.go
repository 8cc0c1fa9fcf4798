package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"amreingest/internal/config"
	"amreingest/internal/pipeline"
	"amreingest/internal/testsupport"
)

const (
	pkgA = "00000000-0000-4000-8000-00000000000a"
	pkgB = "00000000-0000-4000-8000-00000000000b"
	pkgC = "00000000-0000-4000-8000-00000000000c"
)

type cliTestEnv struct {
	cfg        *config.Config
	fake       *testsupport.FakePipeline
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		fake:       testsupport.NewFakePipeline(),
		configPath: configPath,
		baseDir:    base,
	}
}

func (e *cliTestEnv) clients(*config.Config, *slog.Logger) pipeline.Client {
	return e.fake
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := buildRootCommand(env.clients)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substring string) {
	t.Helper()
	if !strings.Contains(output, substring) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", substring, output)
	}
}

func requireNotContains(t *testing.T, output, substring string) {
	t.Helper()
	if strings.Contains(output, substring) {
		t.Fatalf("expected output not to contain %q\noutput:\n%s", substring, output)
	}
}
