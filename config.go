package dispatch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corvana/dispatch/types"
)

// ScoringConfig controls capability matching and diversity adjustment.
type ScoringConfig struct {
	// DiversityWeight is the per-assignment penalty factor (0.0-1.0).
	// Each assignment a worker already received this cycle reduces its
	// adjusted score by DiversityWeight, up to PenaltyCap. For example,
	// 0.7 means one prior assignment costs 70% of the base score.
	DiversityWeight float64 `yaml:"diversityWeight"`

	// PenaltyCap bounds the total diversity penalty (0.0-1.0, exclusive).
	// With the default 0.9, a heavily assigned worker still competes with
	// 10% of its base score, so a pool of weak matches never starves.
	PenaltyCap float64 `yaml:"penaltyCap"`
}

// LifecycleConfig controls worker promotion and retirement.
type LifecycleConfig struct {
	// RetirementThreshold retires workers whose fitness falls below it.
	RetirementThreshold float64 `yaml:"retirementThreshold"`

	// PromotionThreshold promotes workers whose fitness reaches it.
	PromotionThreshold float64 `yaml:"promotionThreshold"`

	// GracePeriod protects newly created workers from retirement.
	// Recommended: 48h, long enough for a worker to land its first work.
	GracePeriod time.Duration `yaml:"gracePeriod"`

	// FitnessWeights blends the fitness components. Zero value uses the
	// standard 30/25/25/20 blend plus a 0.10 creativity term.
	FitnessWeights types.FitnessWeights `yaml:"fitnessWeights"`

	// ResolutionTarget is the resolved-issue count at which the
	// resolution component of fitness saturates.
	ResolutionTarget int `yaml:"resolutionTarget"`

	// ReviewTarget is the review count at which the review component of
	// fitness saturates.
	ReviewTarget int `yaml:"reviewTarget"`
}

// RetryConfig controls the retry budget for transient tracker failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per tracker operation.
	// Recommended: 3 (backoff 5s, 10s between attempts).
	MaxAttempts int `yaml:"maxAttempts"`

	// Backoff is the base of the linear backoff schedule: attempt n
	// sleeps n*Backoff plus up to 10% jitter.
	Backoff time.Duration `yaml:"backoff"`
}

// TelemetryConfig controls the evaluation-cycle activity snapshot.
type TelemetryConfig struct {
	// Window is how far back the broad activity query reaches.
	// Recommended: 168h (one week of history per cycle).
	Window time.Duration `yaml:"window"`

	// FilterLabels restricts the broad query to items carrying all of
	// these labels (e.g. the mission label).
	FilterLabels []string `yaml:"filterLabels"`
}

// KVBucketConfig configures NATS JetStream KV bucket names for
// deployments using the KV-backed locker and registry.
type KVBucketConfig struct {
	// LockBucket is the bucket name for assignment claim markers.
	LockBucket string `yaml:"lockBucket"`

	// RegistryBucket is the bucket name for the worker registry.
	RegistryBucket string `yaml:"registryBucket"`
}

// RegistryConfig configures the file-backed worker registry used when no
// KV store is available.
type RegistryConfig struct {
	// Path is the registry file location.
	Path string `yaml:"path"`
}

// Config is the configuration for the Coordinator and Evaluator.
//
// All duration fields accept standard Go duration strings like "30s", "5m", "48h".
type Config struct {
	// LockLabel is the tracker label used as the assignment claim marker.
	// Presence of this label is the single source of truth that an item
	// is claimed; it is never silently removed.
	LockLabel string `yaml:"lockLabel"`

	// InvocationTimeout is the hard wall-clock budget for one coordination
	// invocation. An invocation exceeding it aborts without producing a
	// partial external write.
	// Recommended: 5-10 minutes.
	InvocationTimeout time.Duration `yaml:"invocationTimeout"`

	// LedgerCap bounds the deduplication ledger; oldest fingerprints are
	// evicted first once the cap is reached.
	LedgerCap int `yaml:"ledgerCap"`

	// ItemFilter selects the items eligible for assignment.
	ItemFilter types.ItemFilter `yaml:"itemFilter"`

	// DefaultCapabilities maps worker IDs to capability sets used
	// when a worker is missing from the registry. An empty map means
	// unknown workers are skipped instead of synthesized.
	DefaultCapabilities map[string][]types.Capability `yaml:"defaultCapabilities"`

	// Scoring controls capability matching and diversity adjustment.
	Scoring ScoringConfig `yaml:"scoring"`

	// Lifecycle controls promotion and retirement.
	Lifecycle LifecycleConfig `yaml:"lifecycle"`

	// Retry controls the transient-failure retry budget.
	Retry RetryConfig `yaml:"retry"`

	// Telemetry controls the evaluation-cycle activity snapshot.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// KVBuckets controls NATS JetStream KV bucket names.
	KVBuckets KVBucketConfig `yaml:"kvBuckets"`

	// Registry controls the file-backed registry.
	Registry RegistryConfig `yaml:"registry"`
}

// DefaultConfig returns a Config with production defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		LockLabel:         "dispatch/claimed",
		InvocationTimeout: 5 * time.Minute,
		LedgerCap:         100,
		ItemFilter: types.ItemFilter{
			State:      "open",
			Unassigned: true,
		},
		Scoring: ScoringConfig{
			DiversityWeight: 0.7,
			PenaltyCap:      0.9,
		},
		Lifecycle: LifecycleConfig{
			RetirementThreshold: 0.30,
			PromotionThreshold:  0.65,
			GracePeriod:         48 * time.Hour,
			FitnessWeights:      types.DefaultFitnessWeights(),
			ResolutionTarget:    10,
			ReviewTarget:        10,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff:     5 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Window: 7 * 24 * time.Hour,
		},
		KVBuckets: KVBucketConfig{
			LockBucket:     "dispatch-locks",
			RegistryBucket: "dispatch-registry",
		},
		Registry: RegistryConfig{
			Path: "workers.json",
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.LockLabel == "" {
		cfg.LockLabel = defaults.LockLabel
	}
	if cfg.InvocationTimeout == 0 {
		cfg.InvocationTimeout = defaults.InvocationTimeout
	}
	if cfg.LedgerCap == 0 {
		cfg.LedgerCap = defaults.LedgerCap
	}
	if cfg.Scoring.DiversityWeight == 0 {
		cfg.Scoring.DiversityWeight = defaults.Scoring.DiversityWeight
	}
	if cfg.Scoring.PenaltyCap == 0 {
		cfg.Scoring.PenaltyCap = defaults.Scoring.PenaltyCap
	}
	if cfg.Lifecycle.RetirementThreshold == 0 {
		cfg.Lifecycle.RetirementThreshold = defaults.Lifecycle.RetirementThreshold
	}
	if cfg.Lifecycle.PromotionThreshold == 0 {
		cfg.Lifecycle.PromotionThreshold = defaults.Lifecycle.PromotionThreshold
	}
	if cfg.Lifecycle.GracePeriod == 0 {
		cfg.Lifecycle.GracePeriod = defaults.Lifecycle.GracePeriod
	}
	if cfg.Lifecycle.FitnessWeights == (types.FitnessWeights{}) {
		cfg.Lifecycle.FitnessWeights = defaults.Lifecycle.FitnessWeights
	}
	if cfg.Lifecycle.ResolutionTarget == 0 {
		cfg.Lifecycle.ResolutionTarget = defaults.Lifecycle.ResolutionTarget
	}
	if cfg.Lifecycle.ReviewTarget == 0 {
		cfg.Lifecycle.ReviewTarget = defaults.Lifecycle.ReviewTarget
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if cfg.Retry.Backoff == 0 {
		cfg.Retry.Backoff = defaults.Retry.Backoff
	}
	if cfg.Telemetry.Window == 0 {
		cfg.Telemetry.Window = defaults.Telemetry.Window
	}
	if cfg.KVBuckets.LockBucket == "" {
		cfg.KVBuckets.LockBucket = defaults.KVBuckets.LockBucket
	}
	if cfg.KVBuckets.RegistryBucket == "" {
		cfg.KVBuckets.RegistryBucket = defaults.KVBuckets.RegistryBucket
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = defaults.Registry.Path
	}
	// Note: an empty ItemFilter is valid (every open item is eligible),
	// so no default is applied beyond what DefaultConfig documents.
}

// Validate checks configuration constraints and returns an error for
// invalid values.
//
// Hard Validation Rules:
//   - DiversityWeight in [0, 1) (a full-weight penalty would zero every score)
//   - PenaltyCap in (0, 1) (a cap of 1 would let one worker be starved forever)
//   - RetirementThreshold in (0, 1) and below PromotionThreshold
//   - PromotionThreshold in (0, 1]
//   - GracePeriod >= 0
//   - MaxAttempts >= 1 and Backoff > 0
//   - LedgerCap > 0
//   - InvocationTimeout > 0
//   - LockLabel non-empty
//   - Telemetry.Window > 0
//
// Returns:
//   - error: Validation error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	// Rule 1: DiversityWeight range
	if cfg.Scoring.DiversityWeight < 0 || cfg.Scoring.DiversityWeight >= 1 {
		return fmt.Errorf("%w: DiversityWeight (%v) must be in [0, 1)",
			ErrInvalidConfig, cfg.Scoring.DiversityWeight)
	}

	// Rule 2: PenaltyCap range
	if cfg.Scoring.PenaltyCap <= 0 || cfg.Scoring.PenaltyCap >= 1 {
		return fmt.Errorf("%w: PenaltyCap (%v) must be in (0, 1)",
			ErrInvalidConfig, cfg.Scoring.PenaltyCap)
	}

	// Rule 3: threshold ordering
	if cfg.Lifecycle.RetirementThreshold <= 0 || cfg.Lifecycle.RetirementThreshold >= 1 {
		return fmt.Errorf("%w: RetirementThreshold (%v) must be in (0, 1)",
			ErrInvalidConfig, cfg.Lifecycle.RetirementThreshold)
	}
	if cfg.Lifecycle.PromotionThreshold <= 0 || cfg.Lifecycle.PromotionThreshold > 1 {
		return fmt.Errorf("%w: PromotionThreshold (%v) must be in (0, 1]",
			ErrInvalidConfig, cfg.Lifecycle.PromotionThreshold)
	}
	if cfg.Lifecycle.RetirementThreshold >= cfg.Lifecycle.PromotionThreshold {
		return fmt.Errorf("%w: RetirementThreshold (%v) must be below PromotionThreshold (%v)",
			ErrInvalidConfig, cfg.Lifecycle.RetirementThreshold, cfg.Lifecycle.PromotionThreshold)
	}

	// Rule 4: GracePeriod sanity
	if cfg.Lifecycle.GracePeriod < 0 {
		return fmt.Errorf("%w: GracePeriod must be >= 0, got %v",
			ErrInvalidConfig, cfg.Lifecycle.GracePeriod)
	}

	// Rule 5: retry budget
	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: MaxAttempts must be >= 1, got %d",
			ErrInvalidConfig, cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.Backoff <= 0 {
		return fmt.Errorf("%w: Backoff must be > 0, got %v",
			ErrInvalidConfig, cfg.Retry.Backoff)
	}

	// Rule 6: ledger bound
	if cfg.LedgerCap <= 0 {
		return fmt.Errorf("%w: LedgerCap must be > 0, got %d",
			ErrInvalidConfig, cfg.LedgerCap)
	}

	// Rule 7: wall-clock budget
	if cfg.InvocationTimeout <= 0 {
		return fmt.Errorf("%w: InvocationTimeout must be > 0, got %v",
			ErrInvalidConfig, cfg.InvocationTimeout)
	}

	// Rule 8: lock marker
	if cfg.LockLabel == "" {
		return fmt.Errorf("%w: LockLabel must not be empty", ErrInvalidConfig)
	}

	// Rule 9: telemetry window
	if cfg.Telemetry.Window <= 0 {
		return fmt.Errorf("%w: Telemetry.Window must be > 0, got %v",
			ErrInvalidConfig, cfg.Telemetry.Window)
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for
// non-recommended values.
//
// This is called after Validate() in NewCoordinator() and NewEvaluator()
// to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger types.Logger) {
	// Warn if the invocation budget cannot absorb a full retry schedule.
	worst := time.Duration(cfg.Retry.MaxAttempts) * cfg.Retry.Backoff
	if cfg.InvocationTimeout < 2*worst {
		logger.Warn(
			"InvocationTimeout is tight relative to the retry budget",
			"invocationTimeout", cfg.InvocationTimeout,
			"worstCaseBackoff", worst,
			"recommended", 2*worst,
		)
	}

	// Warn if the ledger is too small to cover a typical backlog.
	if cfg.LedgerCap < 50 {
		logger.Warn(
			"LedgerCap is very small, duplicate work may be re-queued",
			"ledgerCap", cfg.LedgerCap,
			"recommended", "100 or higher",
		)
	}

	// Warn if new workers can be retired before producing anything.
	if cfg.Lifecycle.GracePeriod < 24*time.Hour {
		logger.Warn(
			"GracePeriod is short, new workers may retire before their first results",
			"gracePeriod", cfg.Lifecycle.GracePeriod,
			"recommended", "48h",
		)
	}
}

// LoadConfig reads a YAML configuration file, applies defaults, and
// validates the result.
//
// Parameters:
//   - path: YAML file location
//
// Returns:
//   - Config: Parsed configuration with defaults applied
//   - error: Read, parse, or validation error
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are 10-100x faster than production defaults to enable
// rapid iteration without sacrificing coverage. Use DefaultConfig() for
// production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := dispatch.TestConfig()
//	cfg.LockLabel = "test/claimed"
//	coord, err := dispatch.NewCoordinator(trackerClient, registry, cfg)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.InvocationTimeout = 10 * time.Second  // 30x faster
	cfg.Retry.Backoff = 10 * time.Millisecond // 500x faster
	cfg.Lifecycle.GracePeriod = 1 * time.Hour // 48x faster
	cfg.Telemetry.Window = 24 * time.Hour     // shorter history
	cfg.Registry.Path = ""                    // callers pass a temp path

	return cfg
}
