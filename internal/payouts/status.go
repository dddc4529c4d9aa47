package payouts

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// Requirements mirrors the requirement buckets of a connected account.
type Requirements struct {
	CurrentlyDue        []string `json:"currently_due"`
	EventuallyDue       []string `json:"eventually_due"`
	PastDue             []string `json:"past_due"`
	PendingVerification []string `json:"pending_verification"`
}

// AccountSnapshot is the subset of a connected account that drives onboarding status.
type AccountSnapshot struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	Requirements     Requirements
	DisabledReason   string
}

type statusRule struct {
	name    string
	matches func(AccountSnapshot) bool
	status  enums.OnboardingStatus
}

// statusRules is evaluated top to bottom and the last matching rule decides.
// The fully enabled rule and the restricted rule are mutually exclusive on the
// enabled flags, so COMPLETE can never be demoted.
var statusRules = []statusRule{
	{
		name:    "default",
		matches: func(AccountSnapshot) bool { return true },
		status:  enums.OnboardingStatusInProgress,
	},
	{
		name: "details_missing",
		matches: func(a AccountSnapshot) bool {
			return !a.DetailsSubmitted && len(a.Requirements.CurrentlyDue) > 0
		},
		status: enums.OnboardingStatusNotStarted,
	},
	{
		name: "fully_enabled",
		matches: func(a AccountSnapshot) bool {
			return a.ChargesEnabled && a.PayoutsEnabled
		},
		status: enums.OnboardingStatusComplete,
	},
	{
		name: "restricted",
		matches: func(a AccountSnapshot) bool {
			blocked := !a.ChargesEnabled || !a.PayoutsEnabled
			flagged := len(a.Requirements.PastDue) > 0 || a.DisabledReason != ""
			return blocked && flagged
		},
		status: enums.OnboardingStatusRestricted,
	},
}

// DeriveStatus maps account fields to an onboarding status. It never fails.
func DeriveStatus(a AccountSnapshot) enums.OnboardingStatus {
	status, _ := deriveWithRule(a)
	return status
}

// deriveWithRule also reports which rule decided, for logging.
func deriveWithRule(a AccountSnapshot) (enums.OnboardingStatus, string) {
	status := enums.OnboardingStatusInProgress
	rule := "default"
	for _, r := range statusRules {
		if r.matches(a) {
			status = r.status
			rule = r.name
		}
	}
	return status, rule
}

// SnapshotFromAccount extracts the status inputs from a provider account.
// Missing requirement blocks are treated as empty.
func SnapshotFromAccount(acct *stripe.Account) AccountSnapshot {
	if acct == nil {
		return AccountSnapshot{}
	}
	snap := AccountSnapshot{
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
	if req := acct.Requirements; req != nil {
		snap.Requirements = Requirements{
			CurrentlyDue:        req.CurrentlyDue,
			EventuallyDue:       req.EventuallyDue,
			PastDue:             req.PastDue,
			PendingVerification: req.PendingVerification,
		}
		snap.DisabledReason = string(req.DisabledReason)
	}
	return snap
}

// requirementsJSON encodes the buckets for the cache column, with nil lists as [].
func requirementsJSON(r Requirements) ([]byte, error) {
	normalized := Requirements{
		CurrentlyDue:        nonNil(r.CurrentlyDue),
		EventuallyDue:       nonNil(r.EventuallyDue),
		PastDue:             nonNil(r.PastDue),
		PendingVerification: nonNil(r.PendingVerification),
	}
	return json.Marshal(normalized)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
