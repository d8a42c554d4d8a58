package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
)

// PolicyConfig is the decoded booking policy file.
type PolicyConfig struct {
	PaymentTimeout time.Duration `mapstructure:"payment_timeout"`
	Currency       string        `mapstructure:"currency"`
	TaxBasisPoints int64         `mapstructure:"tax_basis_points"`
	Location       string        `mapstructure:"location"`
	Retry          RetryConfig   `mapstructure:"retry"`
	RefundTiers    []TierConfig  `mapstructure:"refund_tiers"`
	Sweep          SweepConfig   `mapstructure:"sweep"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type TierConfig struct {
	MinNotice time.Duration `mapstructure:"min_notice"`
	Percent   int           `mapstructure:"percent"`
}

// SweepConfig drives the expiry worker.
type SweepConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// LoadPolicy reads the policy from path (YAML) when it is non-empty, then
// applies BOOKING_* environment overrides on top of the defaults, e.g.
// BOOKING_PAYMENT_TIMEOUT=10m or BOOKING_RETRY_MAX_ATTEMPTS=5.
func LoadPolicy(path string) (PolicyConfig, error) {
	v := viper.New()
	v.SetDefault("payment_timeout", "15m")
	v.SetDefault("currency", "USD")
	v.SetDefault("tax_basis_points", 1000)
	v.SetDefault("location", "UTC")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "20ms")
	v.SetDefault("refund_tiers", []map[string]any{
		{"min_notice": "168h", "percent": 100},
		{"min_notice": "48h", "percent": 50},
	})
	v.SetDefault("sweep.interval", "30s")
	v.SetDefault("sweep.batch_size", 100)

	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return PolicyConfig{}, fmt.Errorf("read policy %s: %w", path, err)
		}
	}

	var pc PolicyConfig
	if err := v.Unmarshal(&pc); err != nil {
		return PolicyConfig{}, fmt.Errorf("decode policy: %w", err)
	}
	if err := pc.validate(); err != nil {
		return PolicyConfig{}, err
	}
	return pc, nil
}

func (pc PolicyConfig) validate() error {
	var errs []error
	if pc.PaymentTimeout <= 0 {
		errs = append(errs, errors.New("payment_timeout must be positive"))
	}
	if len(pc.Currency) != 3 {
		errs = append(errs, fmt.Errorf("currency %q is not an ISO 4217 code", pc.Currency))
	}
	if pc.TaxBasisPoints < 0 || pc.TaxBasisPoints > 10000 {
		errs = append(errs, fmt.Errorf("tax_basis_points %d out of range [0, 10000]", pc.TaxBasisPoints))
	}
	if _, err := time.LoadLocation(pc.Location); err != nil {
		errs = append(errs, fmt.Errorf("location: %w", err))
	}
	if pc.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	for i, t := range pc.RefundTiers {
		if t.Percent < 0 || t.Percent > 100 {
			errs = append(errs, fmt.Errorf("refund_tiers[%d].percent %d out of range [0, 100]", i, t.Percent))
		}
		if i > 0 && t.MinNotice >= pc.RefundTiers[i-1].MinNotice {
			errs = append(errs, fmt.Errorf("refund_tiers[%d] must have a shorter min_notice than the tier before it", i))
		}
	}
	if pc.Sweep.Interval <= 0 {
		errs = append(errs, errors.New("sweep.interval must be positive"))
	}
	if pc.Sweep.BatchSize < 1 {
		errs = append(errs, errors.New("sweep.batch_size must be at least 1"))
	}
	return errors.Join(errs...)
}

// Booking converts the file into the engine's policy.
func (pc PolicyConfig) Booking() booking.Policy {
	loc, err := time.LoadLocation(pc.Location)
	if err != nil {
		loc = time.UTC
	}
	tiers := make(booking.TieredRefundPolicy, 0, len(pc.RefundTiers))
	for _, t := range pc.RefundTiers {
		tiers = append(tiers, booking.RefundTier{MinNotice: t.MinNotice, Percent: t.Percent})
	}
	return booking.Policy{
		PaymentTimeout: pc.PaymentTimeout,
		Currency:       strings.ToUpper(pc.Currency),
		TaxBasisPoints: pc.TaxBasisPoints,
		MaxAttempts:    pc.Retry.MaxAttempts,
		RetryBaseDelay: pc.Retry.BaseDelay,
		Location:       loc,
		Refunds:        tiers,
	}
}
