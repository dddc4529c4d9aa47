package payouts

import (
	"github.com/stripe/stripe-go/v84"

	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// PaymentsFeatures are the sub-features unlocked with the payments component.
type PaymentsFeatures struct {
	RefundManagement  bool
	DisputeManagement bool
	CapturePayments   bool
}

// ComponentSet lists the embedded components a session enables.
type ComponentSet struct {
	AccountOnboarding  bool
	NotificationBanner bool
	AccountManagement  bool
	Payments           bool
	PaymentsFeatures   PaymentsFeatures
	Balances           bool
	Payouts            bool
}

var componentsByMode = map[enums.AccountSessionMode]ComponentSet{
	enums.AccountSessionModeOnboarding: {AccountOnboarding: true},
	enums.AccountSessionModeCompliance: {NotificationBanner: true, AccountManagement: true},
	enums.AccountSessionModePayments: {
		Payments: true,
		PaymentsFeatures: PaymentsFeatures{
			RefundManagement:  true,
			DisputeManagement: true,
			CapturePayments:   true,
		},
	},
	enums.AccountSessionModePayouts: {Balances: true, Payouts: true},
}

// ComponentsFor resolves a mode to its component set; unknown modes get onboarding.
func ComponentsFor(mode enums.AccountSessionMode) ComponentSet {
	if set, ok := componentsByMode[mode]; ok {
		return set
	}
	return componentsByMode[enums.AccountSessionModeOnboarding]
}

// Params converts the set into provider request parameters. Disabled
// components are left out entirely.
func (c ComponentSet) Params() *stripe.AccountSessionComponentsParams {
	params := &stripe.AccountSessionComponentsParams{}
	if c.AccountOnboarding {
		params.AccountOnboarding = &stripe.AccountSessionComponentsAccountOnboardingParams{Enabled: stripe.Bool(true)}
	}
	if c.NotificationBanner {
		params.NotificationBanner = &stripe.AccountSessionComponentsNotificationBannerParams{Enabled: stripe.Bool(true)}
	}
	if c.AccountManagement {
		params.AccountManagement = &stripe.AccountSessionComponentsAccountManagementParams{Enabled: stripe.Bool(true)}
	}
	if c.Payments {
		params.Payments = &stripe.AccountSessionComponentsPaymentsParams{
			Enabled: stripe.Bool(true),
			Features: &stripe.AccountSessionComponentsPaymentsFeaturesParams{
				RefundManagement:  stripe.Bool(c.PaymentsFeatures.RefundManagement),
				DisputeManagement: stripe.Bool(c.PaymentsFeatures.DisputeManagement),
				CapturePayments:   stripe.Bool(c.PaymentsFeatures.CapturePayments),
			},
		}
	}
	if c.Balances {
		params.Balances = &stripe.AccountSessionComponentsBalancesParams{Enabled: stripe.Bool(true)}
	}
	if c.Payouts {
		params.Payouts = &stripe.AccountSessionComponentsPayoutsParams{Enabled: stripe.Bool(true)}
	}
	return params
}

// BuildSessionParams assembles the account session request for one account.
func BuildSessionParams(accountID string, mode enums.AccountSessionMode) *stripe.AccountSessionParams {
	return &stripe.AccountSessionParams{
		Account:    stripe.String(accountID),
		Components: ComponentsFor(mode).Params(),
	}
}
