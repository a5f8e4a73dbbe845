package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pkgsecrets "github.com/Ridgeline-Capital/assethub/pkg/secrets"
)

// AWSResolver resolves per-vendor configuration from AWS Secrets Manager,
// caching results locally to reduce API calls. It is generic over the
// resolved config type T so the same core logic serves the valuation vendor
// keys and the servicer feed token.
//
// Secret naming convention: {env}/assethub/{vendor}
type AWSResolver[T any] struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[T]
}

// NewAWSResolver constructs a vendor config resolver.
func NewAWSResolver[T any](
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[T],
) *AWSResolver[T] {
	return &AWSResolver[T]{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
	}
}

// secretName builds the AWS Secrets Manager key for a vendor.
// Pattern: {env}/assethub/{vendor}
func (r *AWSResolver[T]) secretName(vendor string) string {
	return strings.ToLower(fmt.Sprintf("%s/assethub/%s", r.env, vendor))
}

// Resolve fetches or caches config T for a vendor. parse extracts T from the
// raw secret map; it should validate required fields.
func (r *AWSResolver[T]) Resolve(ctx context.Context, vendor string, parse func(map[string]string) (T, error)) (T, error) {
	key := strings.ToLower(vendor)

	// --- check in-memory cache first ---
	if cfg, ok := r.cache.Get(key); ok {
		return cfg, nil
	}

	// --- fetch from AWS Secrets Manager ---
	secretName := r.secretName(vendor)
	secretMap, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", secretName),
			zap.Error(err))
		var zero T
		return zero, fmt.Errorf("resolve vendor config for %q: %w", vendor, err)
	}

	cfg, err := parse(secretMap)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse secret %q: %w", secretName, err)
	}

	// --- cache locally for next time ---
	r.cache.Put(key, cfg)

	r.logger.Info("aws.vendor_config_resolved", zap.String("vendor", vendor))
	return cfg, nil
}

// Bust drops a vendor's cached config (on secret rotation).
func (r *AWSResolver[T]) Bust(vendor string) {
	r.cache.Bust(strings.ToLower(vendor))
}

// DiscoverVendors lists all vendors that have secrets configured under the
// "{env}/assethub/" prefix.
func (r *AWSResolver[T]) DiscoverVendors(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(fmt.Sprintf("%s/assethub/", r.env))

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover vendors: %w", err)
	}

	var vendors []string
	for _, name := range names {
		trimmed := strings.TrimPrefix(strings.ToLower(name), prefix)
		if trimmed != "" && !strings.Contains(trimmed, "/") {
			vendors = append(vendors, trimmed)
		}
	}

	r.logger.Info("aws.vendors_discovered",
		zap.Int("count", len(vendors)),
		zap.Strings("vendors", vendors),
	)
	return vendors, nil
}
