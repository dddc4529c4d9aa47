package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountsession"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client owns the per-process Stripe backend and webhook secrets. Resource
// clients are built with an explicit key so nothing reads stripe.Key.
type Client struct {
	environment   string
	accounts      *account.Client
	sessions      *accountsession.Client
	checkout      *checkoutsession.Client
	webhookSecret string
	connectSecret string
}

// NewClient validates the configured key against the environment and wires the resource clients.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errSecretRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	backend := stripe.GetBackend(stripe.APIBackend)
	client := &Client{
		environment:   env,
		accounts:      &account.Client{B: backend, Key: apiKey},
		sessions:      &accountsession.Client{B: backend, Key: apiKey},
		checkout:      &checkoutsession.Client{B: backend, Key: apiKey},
		webhookSecret: webhookSecret,
		connectSecret: strings.TrimSpace(cfg.ConnectWebhookSecret),
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")
	}
	return client, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateAccount creates a connected account.
func (c *Client) CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error) {
	params.Context = ctx
	return c.accounts.New(params)
}

// GetAccount fetches the live state of a connected account.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	return c.accounts.GetByID(accountID, params)
}

// CreateAccountSession mints a client secret for embedded Connect components.
func (c *Client) CreateAccountSession(ctx context.Context, params *stripe.AccountSessionParams) (*stripe.AccountSession, error) {
	params.Context = ctx
	return c.sessions.New(params)
}

// CreateCheckoutSession opens a hosted checkout page.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return c.checkout.New(params)
}

// WebhookSecret returns the platform webhook signing secret.
func (c *Client) WebhookSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// ConnectWebhookSecret returns the Connect webhook signing secret, falling back
// to the platform secret when no dedicated one is configured.
func (c *Client) ConnectWebhookSecret() string {
	if c == nil {
		return ""
	}
	if c.connectSecret != "" {
		return c.connectSecret
	}
	return c.webhookSecret
}

// ConstructEvent verifies the Stripe-Signature header against secret and decodes the event.
func ConstructEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// keyPrefixes lists the secret and restricted key prefixes each
// environment accepts.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

// normalizeEnv defaults a blank environment to test.
func normalizeEnv(raw string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(raw))
	if env == "" {
		return testEnv, nil
	}
	if _, ok := keyPrefixes[env]; !ok {
		return "", errInvalidStripeEnv
	}
	return env, nil
}

// validateAPIKey keeps a live key out of a test deploy and the reverse.
func validateAPIKey(env, key string) error {
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return errInvalidStripeEnv
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe %s environment requires a key starting with %s", env, strings.Join(prefixes, " or "))
}
