package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/calloway/papergraph/internal/classifier"
	"github.com/calloway/papergraph/internal/config"
	"github.com/calloway/papergraph/internal/detect"
	"github.com/calloway/papergraph/internal/semantic"
	"github.com/calloway/papergraph/internal/storage"
)

// mustFindRepository walks up to the repository root or exits.
func mustFindRepository() string {
	cwd, exitCode := getRepoRoot()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.FindRepository(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v\n\nRun 'pg init' to create a repository here.", err)
	}
	return root
}

// mustOpenDatabase opens the repository database or exits.
func mustOpenDatabase(root string) *storage.DB {
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustLoadSemanticIndex loads the semantic index or exits with guidance.
func mustLoadSemanticIndex(root string) *semantic.Index {
	idx, err := semantic.LoadIndex(config.IndexPath(root))
	if err != nil {
		exitWithError(ExitIndexNotFound, "loading semantic index: %v\n\nBuild it with 'pg index build'.", err)
	}
	return idx
}

// mustLoadDetectionConfig loads detection.yml merged over defaults or exits.
func mustLoadDetectionConfig(root string) config.DetectionConfig {
	cfg, err := config.LoadDetectionConfig(root)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}

// newRunLogger builds the stderr logger used for detection and audit runs.
func newRunLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verboseLogging {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// mustBuildClassifier constructs the Gemini classifier from config or exits
// when no API key can be resolved.
func mustBuildClassifier(repoCfg *config.Config) *classifier.GeminiClient {
	globalCfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	key := config.ResolveGeminiKey(globalCfg)
	if key == "" {
		exitWithError(ExitNoAPIKey, "no classifier API key found\n\nSet GEMINI_API_KEY (environment or .env) or gemini_api_key in %s.", config.GlobalConfigPath())
	}

	opts := []classifier.GeminiOption{classifier.WithAPIKey(key)}
	if repoCfg != nil && repoCfg.DefaultModel != "" {
		opts = append(opts, classifier.WithModel(repoCfg.DefaultModel))
	}
	return classifier.NewGeminiClient(opts...)
}

// buildEngine wires a detection engine from the repository's policy.
func buildEngine(root string, log *zap.Logger, detCfg config.DetectionConfig, scalarThreshold float64) (*detect.Engine, *storage.DB) {
	var repoCfg *config.Config
	if cfg, err := config.Load(root); err == nil {
		repoCfg = cfg
	}

	db := mustOpenDatabase(root)
	pc := mustBuildClassifier(repoCfg)
	limiter := detect.NewRateLimiter(detCfg.MaxCallsPerMinute, log)

	thresholds := detect.Thresholds{
		Default: detCfg.DefaultThreshold,
		PerType: detCfg.Thresholds,
	}
	if scalarThreshold > 0 {
		thresholds = detect.Scalar(scalarThreshold)
	}

	eng := detect.NewEngine(pc, db, limiter,
		detect.WithThresholds(thresholds),
		detect.WithWorkers(detCfg.Workers),
		detect.WithLogger(log))
	return eng, db
}
