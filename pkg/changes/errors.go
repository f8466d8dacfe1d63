package changes

import (
	"errors"
	"fmt"

	"github.com/chainreact/chainreact/pkg/models"
)

var (
	// ErrStaleChannel marks a notification whose channel is unknown or no longer
	// the authoritative channel of its scope.
	ErrStaleChannel = errors.New("stale notification channel")

	// ErrCursorExpired is returned by a ProviderAPI when the provider no longer
	// accepts the stored cursor.
	ErrCursorExpired = errors.New("sync cursor expired")
)

// ProviderError is a failure of the provider changes API. Transient errors
// (rate limits, timeouts, 5xx) may succeed on a later delivery.
type ProviderError struct {
	Provider   models.Provider
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsStaleChannel checks if an error indicates a stale or unknown channel.
func IsStaleChannel(err error) bool {
	return errors.Is(err, ErrStaleChannel)
}

// IsTransient reports whether err is a provider failure worth retrying.
func IsTransient(err error) bool {
	var providerErr *ProviderError

	return errors.As(err, &providerErr) && providerErr.Transient
}
