package payouts

import (
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name string
		in   AccountSnapshot
		want enums.OnboardingStatus
	}{
		{
			name: "empty account is in progress",
			in:   AccountSnapshot{},
			want: enums.OnboardingStatusInProgress,
		},
		{
			name: "details missing with currently due",
			in: AccountSnapshot{
				Requirements: Requirements{CurrentlyDue: []string{"individual.dob.day"}},
			},
			want: enums.OnboardingStatusNotStarted,
		},
		{
			name: "details submitted with currently due stays in progress",
			in: AccountSnapshot{
				DetailsSubmitted: true,
				Requirements:     Requirements{CurrentlyDue: []string{"external_account"}},
			},
			want: enums.OnboardingStatusInProgress,
		},
		{
			name: "fully enabled wins over missing details",
			in: AccountSnapshot{
				ChargesEnabled: true,
				PayoutsEnabled: true,
				Requirements: Requirements{
					CurrentlyDue: []string{"tos_acceptance.date"},
					PastDue:      []string{"tos_acceptance.date"},
				},
				DisabledReason: "requirements.past_due",
			},
			want: enums.OnboardingStatusComplete,
		},
		{
			name: "past due without payouts is restricted",
			in: AccountSnapshot{
				ChargesEnabled:   true,
				DetailsSubmitted: true,
				Requirements:     Requirements{PastDue: []string{"individual.verification.document"}},
			},
			want: enums.OnboardingStatusRestricted,
		},
		{
			name: "disabled reason alone is restricted",
			in: AccountSnapshot{
				DetailsSubmitted: true,
				DisabledReason:   "rejected.fraud",
			},
			want: enums.OnboardingStatusRestricted,
		},
		{
			name: "restricted overrides not started",
			in: AccountSnapshot{
				Requirements:   Requirements{CurrentlyDue: []string{"a"}, PastDue: []string{"a"}},
				DisabledReason: "requirements.past_due",
			},
			want: enums.OnboardingStatusRestricted,
		},
		{
			name: "charges only without flags is in progress",
			in: AccountSnapshot{
				ChargesEnabled:   true,
				DetailsSubmitted: true,
				Requirements:     Requirements{EventuallyDue: []string{"company.tax_id"}},
			},
			want: enums.OnboardingStatusInProgress,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.in); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDeriveStatusReportsRule(t *testing.T) {
	_, rule := deriveWithRule(AccountSnapshot{ChargesEnabled: true, PayoutsEnabled: true})
	if rule != "fully_enabled" {
		t.Fatalf("expected fully_enabled rule, got %s", rule)
	}
}

func TestSnapshotFromAccount(t *testing.T) {
	acct := &stripe.Account{
		ID:               "acct_1",
		ChargesEnabled:   true,
		DetailsSubmitted: true,
		Requirements: &stripe.AccountRequirements{
			PastDue:        []string{"external_account"},
			DisabledReason: stripe.AccountRequirementsDisabledReason("requirements.past_due"),
		},
	}
	snap := SnapshotFromAccount(acct)
	if !snap.ChargesEnabled || snap.PayoutsEnabled {
		t.Fatalf("unexpected enabled flags %+v", snap)
	}
	if snap.DisabledReason != "requirements.past_due" {
		t.Fatalf("unexpected disabled reason %q", snap.DisabledReason)
	}
	if DeriveStatus(snap) != enums.OnboardingStatusRestricted {
		t.Fatalf("expected restricted for %+v", snap)
	}

	if got := SnapshotFromAccount(&stripe.Account{ID: "acct_2"}); len(got.Requirements.CurrentlyDue) != 0 {
		t.Fatalf("expected empty requirements, got %+v", got.Requirements)
	}
}

func TestRequirementsJSONUsesEmptyLists(t *testing.T) {
	raw, err := requirementsJSON(Requirements{PastDue: []string{"x"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"currently_due":[],"eventually_due":[],"past_due":["x"],"pending_verification":[]}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}
