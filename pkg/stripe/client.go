package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

const (
	envTest = "test"
	envLive = "live"
)

// Client drives Stripe Connect for creator payouts and verifies webhooks.
type Client struct {
	environment   string
	signingSecret string
	refreshURL    string
	returnURL     string
}

type settings struct {
	env        string
	apiKey     string
	secret     string
	refreshURL string
	returnURL  string
	retries    int64
}

// NewClient validates the Stripe settings and configures the shared API
// backend with the retry budget and a zerolog-backed logger.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	s, err := readSettings(cfg)
	if err != nil {
		return nil, err
	}

	stripe.Key = s.apiKey
	stripe.SetAppInfo(&stripe.AppInfo{Name: "creator-wallet"})
	backendCfg := &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(s.retries)}
	if logg != nil {
		backendCfg.LeveledLogger = leveledLogger{logg: logg}
	}
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg))

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_env":      s.env,
			"network_retries": s.retries,
		}), "stripe client initialized")
	}

	return &Client{
		environment:   s.env,
		signingSecret: s.secret,
		refreshURL:    s.refreshURL,
		returnURL:     s.returnURL,
	}, nil
}

func readSettings(cfg config.StripeConfig) (settings, error) {
	s := settings{
		env:        cfg.Environment(),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		secret:     strings.TrimSpace(cfg.Secret),
		refreshURL: strings.TrimSpace(cfg.RefreshURL),
		returnURL:  strings.TrimSpace(cfg.ReturnURL),
		retries:    max(cfg.MaxRetries, 0),
	}
	if s.env != envTest && s.env != envLive {
		return settings{}, fmt.Errorf("stripe environment must be %q or %q, got %q", envTest, envLive, s.env)
	}
	if s.apiKey == "" {
		return settings{}, errors.New("stripe api key is required")
	}
	if s.secret == "" {
		return settings{}, errors.New("stripe webhook secret is required")
	}
	if mode := keyMode(s.apiKey); mode != s.env {
		return settings{}, fmt.Errorf("stripe environment %q does not match a %s key", s.env, describeMode(mode))
	}
	if s.refreshURL == "" || s.returnURL == "" {
		return settings{}, errors.New("stripe onboarding refresh and return urls are required")
	}
	return s, nil
}

// keyMode reads test or live from a secret or restricted key prefix.
func keyMode(key string) string {
	for _, prefix := range []string{"sk_", "rk_"} {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(rest, envTest+"_"):
			return envTest
		case strings.HasPrefix(rest, envLive+"_"):
			return envLive
		}
	}
	return ""
}

func describeMode(mode string) string {
	if mode == "" {
		return "non-secret"
	}
	return mode
}

// Environment reports test or live.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook endpoint secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// leveledLogger routes stripe-go's request logs through zerolog. Stripe's
// info lines are per request, so they are logged at debug.
type leveledLogger struct {
	logg *logger.Logger
}

func (l leveledLogger) Debugf(format string, v ...any) {
	l.logg.Debug(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l leveledLogger) Infof(format string, v ...any) {
	l.logg.Debug(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...any) {
	l.logg.Warn(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...any) {
	l.logg.Error(context.Background(), "stripe: "+fmt.Sprintf(format, v...), nil)
}
