// =============================================================================
// Schema Converter – JSON‑Schema tree → TypeScript declaration tree
// Shells out to an external compiler for each schema file:
//   • npx json-schema-to-typescript (installed per project via npm)
// =============================================================================

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/xid"
)

// =============================================================================
// helpers – repo root discovery & env merging
// =============================================================================

// repoRoot walks upward from start until it finds a .git directory or go.mod file.
func repoRoot(start string) (string, error) {
	dir := filepath.Clean(start)
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("repo root not found from %s", start)
		}
		dir = parent
	}
}

// mergeEnv constructs the compiler env according to precedence.
// 1. OS env                       (highest)
// 2. repo .env                    (only if key is still unset)
// 3. schema dir .env              (override)
func mergeEnv(repoEnv, schemaEnv map[string]string) map[string]string {
	out := map[string]string{}

	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}

	for k, v := range repoEnv {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}

	for k, v := range schemaEnv {
		out[k] = v
	}

	return out
}

// mapToEnv converts map[string]string → []string{"k=v"} for exec.Cmd.Env.
func mapToEnv(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// runCmd is a small wrapper to exec.CommandContext that proxies stdio.
func runCmd(ctx context.Context, dir string, env map[string]string, name string, args ...string) error {
	slog.Info("runCmd executing", "dir", dir, "cmd", name, "args", args)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = mapToEnv(env)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err != nil {
		slog.Error("runCmd failed", "dir", dir, "cmd", name, "args", args, "err", err)
	} else {
		slog.Info("runCmd succeeded", "dir", dir, "cmd", name, "args", args)
	}
	return err
}

// =============================================================================
// Compiler
// =============================================================================

// Compiler turns one JSON Schema file into one declaration file.
type Compiler interface {
	Name() string
	// Ext is the extension given to generated files, including the dot.
	Ext() string
	Compile(ctx context.Context, src, dst string) error
}

type tsCompiler struct {
	env map[string]string
}

// NewTypeScriptCompiler returns the json-schema-to-typescript compiler. env is
// the full environment of the child process; nil inherits ours.
func NewTypeScriptCompiler(env map[string]string) Compiler {
	return tsCompiler{env: env}
}

func (tsCompiler) Name() string { return "json-schema-to-typescript" }
func (tsCompiler) Ext() string  { return ".d.ts" }

func (c tsCompiler) Compile(ctx context.Context, src, dst string) error {
	dir := filepath.Dir(src)
	return runCmd(ctx, dir, c.env, "npx", "json-schema-to-typescript", src, "-o", dst, "--cwd", dir, "--bannerComment", "")
}

// CompilerEnv layers the repository and schema directory .env files over the
// OS environment for the compiler process.
func CompilerEnv(sourceDir string) map[string]string {
	var repoEnv map[string]string
	if root, err := repoRoot(sourceDir); err == nil {
		repoEnv, _ = godotenv.Read(filepath.Join(root, ".env"))
	}
	schemaEnv, _ := godotenv.Read(filepath.Join(sourceDir, ".env"))
	env := mergeEnv(repoEnv, schemaEnv)
	slog.Info("Compiler environment merged", "repoEnvCount", len(repoEnv), "schemaEnvCount", len(schemaEnv), "totalEnvCount", len(env))
	return env
}

// =============================================================================
// Converter
// =============================================================================

// ConverterConfig controls a conversion run.
type ConverterConfig struct {
	SourceDir string
	OutputDir string
	// DryRun logs and reports every action without touching the filesystem
	// or running the compiler.
	DryRun   bool
	Compiler Compiler // defaults to NewTypeScriptCompiler(CompilerEnv(SourceDir))
}

// ConvertedFile pairs a schema with its generated declaration file.
type ConvertedFile struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ConversionReport describes what a run did, or would have done in dry-run
// mode.
type ConversionReport struct {
	RunID       string          `json:"run_id"`
	Compiler    string          `json:"compiler"`
	DryRun      bool            `json:"dry_run"`
	DirsCreated []string        `json:"dirs_created"`
	Files       []ConvertedFile `json:"files"`
}

// Converter mirrors a directory of JSON Schema files into a directory of
// generated declarations.
type Converter struct {
	cfg ConverterConfig
}

// NewConverter creates a converter.
func NewConverter(cfg ConverterConfig) *Converter {
	return &Converter{cfg: cfg}
}

// Run walks the source tree. It stops at the first failure; files converted
// before the failure stay in the report.
func (c *Converter) Run(ctx context.Context) (*ConversionReport, error) {
	if c.cfg.SourceDir == "" || c.cfg.OutputDir == "" {
		return nil, errors.New("source and output directories are required")
	}
	src, err := filepath.Abs(c.cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve source dir: %w", err)
	}
	out, err := filepath.Abs(c.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", src)
	}

	compiler := c.cfg.Compiler
	if compiler == nil {
		compiler = NewTypeScriptCompiler(CompilerEnv(src))
	}

	report := &ConversionReport{
		RunID:       xid.New().String(),
		Compiler:    compiler.Name(),
		DryRun:      c.cfg.DryRun,
		DirsCreated: []string{},
		Files:       []ConvertedFile{},
	}
	log := slog.With("run_id", report.RunID, "dry_run", c.cfg.DryRun)
	log.Info("Conversion started", "src", src, "out", out, "compiler", compiler.Name())

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() && path == out {
			log.Info("Skipping output directory inside source tree", "dir", path)
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(out, rel)

		if d.IsDir() {
			return c.ensureDir(log, report, target)
		}
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			log.Debug("Skipping non-schema file", "path", path)
			return nil
		}

		dst := strings.TrimSuffix(target, filepath.Ext(target)) + compiler.Ext()
		if c.cfg.DryRun {
			log.Info("Would compile schema", "src", path, "dst", dst)
			report.Files = append(report.Files, ConvertedFile{Source: path, Target: dst})
			return nil
		}

		log.Info("Compiling schema", "src", path, "dst", dst)
		if err := compiler.Compile(ctx, path, dst); err != nil {
			return fmt.Errorf("compile %s: %w", path, err)
		}
		report.Files = append(report.Files, ConvertedFile{Source: path, Target: dst})
		return nil
	})
	if err != nil {
		log.Error("Conversion failed", "files", len(report.Files), "err", err)
		return report, err
	}

	log.Info("Conversion finished", "files", len(report.Files), "dirs_created", len(report.DirsCreated))
	return report, nil
}

func (c *Converter) ensureDir(log *slog.Logger, report *ConversionReport, dir string) error {
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("output path %s exists and is not a directory", dir)
		}
		return nil
	}

	if c.cfg.DryRun {
		log.Info("Would create directory", "path", dir)
		report.DirsCreated = append(report.DirsCreated, dir)
		return nil
	}

	log.Info("Creating directory", "path", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	report.DirsCreated = append(report.DirsCreated, dir)
	return nil
}
