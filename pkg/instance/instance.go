package instance

import (
	"os"

	"github.com/tripcreators/creator-wallet/pkg/env"
)

// GetID identifies the running process in logs: an explicit instance id,
// the platform dyno name, then the hostname.
func GetID() string {
	if id := env.First("WALLET_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
