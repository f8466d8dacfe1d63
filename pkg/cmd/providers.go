package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/chainreact/chainreact/pkg/dedup"
	"github.com/chainreact/chainreact/pkg/providers/gateway"
)

// NewDedupStore builds the dedup store of DEDUP_STORE_URL: memory:// keeps
// records in process, redis:// shares them between processor instances.
func NewDedupStore(storeURL string, logger *slog.Logger) (dedup.Store, func() error, error) {
	scheme, _, _ := strings.Cut(storeURL, "://")

	switch scheme {
	case "", "memory":
		logger.Warn("Using in-memory dedup store; run a single processor instance")

		return dedup.NewMemoryStore(dedup.DefaultWindow, dedup.DefaultRetention, dedup.DefaultMaxEntries), func() error { return nil }, nil
	case "redis", "rediss":
		store, err := dedup.NewRedisStoreFromURL(storeURL, dedup.DefaultRetention)
		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dedup store: %s", scheme)
	}
}

// NewGateway builds the provider gateway client. The gateway owns provider
// credentials and REST details.
func NewGateway(baseURL, token string, logger *slog.Logger) (*gateway.Client, error) {
	var opts []gateway.Option
	if token != "" {
		opts = append(opts, gateway.WithToken(token))
	}

	return gateway.NewClient(baseURL, logger, opts...)
}
