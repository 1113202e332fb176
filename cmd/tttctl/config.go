package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/bartoszstec/tic-tac-toe/internal/storage"
	"github.com/bartoszstec/tic-tac-toe/internal/train"
	"github.com/bartoszstec/tic-tac-toe/pkg/tictactoe"
)

const (
	envFile         = ".env"
	envModelsDir    = "TTT_MODELS_DIR"
	envDBPath       = "TTT_DB_PATH"
	envArtifactsDir = "TTT_ARTIFACTS_DIR"
	envSeed         = "TTT_SEED"
)

// loadEnv reads path into the environment when it exists. Variables already
// set in the process win.
func loadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithStack(err)
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		klog.Warningf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

// clientFlags are shared by every command that opens a client.
type clientFlags struct {
	store        *string
	modelsDir    *string
	dbPath       *string
	artifactsDir *string
	seed         *uint64
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		store:        fs.String("store", storage.DefaultStoreKind(), "store backend: file|memory|sqlite"),
		modelsDir:    fs.String("models-dir", envOr(envModelsDir, "models"), "directory of the file store"),
		dbPath:       fs.String("db-path", envOr(envDBPath, "tictactoe.db"), "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", envOr(envArtifactsDir, "runs"), "run artifacts directory"),
		seed:         fs.Uint64("move-seed", envUint(envSeed, 0), "seed for move selection (0 = time based)"),
	}
}

func (f clientFlags) open() (*tictactoe.Client, error) {
	return tictactoe.New(tictactoe.Options{
		StoreKind:    *f.store,
		ModelsDir:    *f.modelsDir,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		Seed:         *f.seed,
	})
}

// loadTrainConfig decodes a JSON training config over the defaults. Unknown
// keys are rejected so typos do not silently fall back to defaults.
func loadTrainConfig(path string) (train.Config, error) {
	cfg := train.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "load config")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, nil
}

// overrideFromFlags applies only the flags the user set explicitly, so a
// config file value survives unless it is overridden on the command line.
func overrideFromFlags(cfg *train.Config, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			cfg.RunID = v.(string)
		case "episodes":
			cfg.Episodes = v.(int)
		case "alpha":
			cfg.LearningRate = v.(float64)
		case "gamma":
			cfg.Discount = v.(float64)
		case "epsilon-max":
			cfg.EpsilonMax = v.(float64)
		case "epsilon-min":
			cfg.EpsilonMin = v.(float64)
		case "decay":
			cfg.DecayRate = v.(float64)
		case "checkpoints":
			cfg.CheckpointCount = v.(int)
		case "eval-games":
			cfg.EvalGames = v.(int)
		case "seed":
			cfg.Seed = v.(uint64)
		case "eval-seed":
			cfg.EvalSeed = v.(uint64)
		case "attack-step":
			cfg.Rewards.Attack.Step = v.(float64)
		case "defence-step":
			cfg.Rewards.Defence.Step = v.(float64)
		default:
			return errors.Errorf("unhandled flag override: %s", name)
		}
	}
	return cfg.Validate()
}
