package cashflow

import (
	"fmt"
	"os"
	"sync"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// Timing rule kinds. Each rule names the period it anchors to, except
// monthly_throughout which covers every month up to and including sale.
const (
	TimingAtPeriodStart     = "at_period_start"
	TimingAtPeriodEnd       = "at_period_end"
	TimingSpreadEven        = "spread_even"
	TimingMonthlyThroughout = "monthly_throughout"
)

// TimingRule declares when a cost category lands.
type TimingRule struct {
	Timing string `yaml:"timing" validate:"required,oneof=at_period_start at_period_end spread_even monthly_throughout"`
	Period string `yaml:"period" validate:"required_unless=Timing monthly_throughout,omitempty,oneof=servicing_transfer foreclosure reo_renovation reo_marketing"`
}

// PeriodMonths holds default period durations in months.
type PeriodMonths struct {
	ServicingTransfer int `yaml:"servicing_transfer" default:"2" validate:"min=0,max=24"`
	Foreclosure       int `yaml:"foreclosure" default:"12" validate:"min=0,max=60"`
	REORenovation     int `yaml:"reo_renovation" default:"3" validate:"min=0,max=24"`
	REOMarketing      int `yaml:"reo_marketing" default:"4" validate:"min=0,max=24"`
}

// PathOverrides lets a disposition path shorten or stretch its periods
// (e.g. the abbreviated short-sale foreclosure). Nil means use the default.
type PathOverrides struct {
	ServicingTransfer *int `yaml:"servicing_transfer" validate:"omitempty,min=0,max=24"`
	Foreclosure       *int `yaml:"foreclosure" validate:"omitempty,min=0,max=60"`
	REORenovation     *int `yaml:"reo_renovation" validate:"omitempty,min=0,max=24"`
	REOMarketing      *int `yaml:"reo_marketing" validate:"omitempty,min=0,max=24"`
}

// TimingPolicy is the declarative timing configuration for the cash-flow
// engine, loaded from configs/timing_policy.yaml.
type TimingPolicy struct {
	Periods PeriodMonths `yaml:"periods"`

	// Judicial-state foreclosure overrides, months by 2-letter state code.
	StateForeclosureMonths map[string]int `yaml:"state_foreclosure_months" validate:"dive,min=0,max=120"`

	// Per-path period overrides, keyed by lowercase path name.
	Paths map[string]PathOverrides `yaml:"paths"`

	// Cost category timing rules.
	Rules map[string]TimingRule `yaml:"rules" validate:"dive"`

	// Fraction of total debt used as proceeds when no valuation exists.
	NoValuationHaircut float64 `yaml:"no_valuation_haircut" default:"0.70" validate:"min=0,max=1"`
}

// Haircut returns the no-valuation proceeds fraction as a decimal.
func (p *TimingPolicy) Haircut() decimal.Decimal {
	return decimal.NewFromFloat(p.NoValuationHaircut)
}

// DefaultRules are applied for any category the file leaves unspecified.
func defaultRules() map[string]TimingRule {
	return map[string]TimingRule{
		model.CostLegalFees:    {Timing: TimingSpreadEven, Period: "foreclosure"},
		model.CostTrashout:     {Timing: TimingAtPeriodStart, Period: "reo_renovation"},
		model.CostRenovation:   {Timing: TimingSpreadEven, Period: "reo_renovation"},
		model.CostServicingFee: {Timing: TimingMonthlyThroughout},
		model.CostMarketing:    {Timing: TimingSpreadEven, Period: "reo_marketing"},
	}
}

var validate = validator.New()

// LoadPolicy reads, defaults and validates a timing policy file.
func LoadPolicy(path string) (*TimingPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timing policy: %w", err)
	}
	return parsePolicy(data)
}

func parsePolicy(data []byte) (*TimingPolicy, error) {
	var p TimingPolicy
	if err := defaults.Set(&p); err != nil {
		return nil, fmt.Errorf("default timing policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse timing policy: %w", err)
	}

	for cat, rule := range defaultRules() {
		if _, ok := p.Rules[cat]; !ok {
			if p.Rules == nil {
				p.Rules = make(map[string]TimingRule)
			}
			p.Rules[cat] = rule
		}
	}

	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid timing policy: %w", err)
	}
	return &p, nil
}

// PolicyProvider serves the current policy snapshot and hot-reloads it when
// the file changes. The engine must read through Current(), never the file.
type PolicyProvider struct {
	logger *zap.Logger
	path   string

	mu     sync.RWMutex
	policy *TimingPolicy
}

// NewPolicyProvider loads the initial policy; a broken file at startup is
// fatal, a broken file later keeps the prior snapshot.
func NewPolicyProvider(logger *zap.Logger, path string) (*PolicyProvider, error) {
	p, err := LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	return &PolicyProvider{logger: logger, path: path, policy: p}, nil
}

// Current returns the active policy snapshot.
func (pp *PolicyProvider) Current() *TimingPolicy {
	pp.mu.RLock()
	defer pp.mu.RUnlock()
	return pp.policy
}

// Reload re-reads the file; on error the old policy stays active.
func (pp *PolicyProvider) Reload() error {
	p, err := LoadPolicy(pp.path)
	if err != nil {
		pp.logger.Error("cashflow.policy_reload_failed", zap.Error(err))
		return err
	}
	pp.mu.Lock()
	pp.policy = p
	pp.mu.Unlock()
	pp.logger.Info("cashflow.policy_reloaded", zap.String("path", pp.path))
	return nil
}

// Watch hot-reloads the policy on file writes until ctx is done. It runs in
// its own goroutine; editor rename-and-replace saves are handled by
// re-adding the watch path.
func (pp *PolicyProvider) Watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	if err := watcher.Add(pp.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("policy watch %s: %w", pp.path, err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if ev.Op&fsnotify.Rename != 0 {
					_ = watcher.Add(pp.path)
				}
				_ = pp.Reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				pp.logger.Warn("cashflow.policy_watch_error", zap.Error(err))
			}
		}
	}()

	return nil
}
