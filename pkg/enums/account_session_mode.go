package enums

import (
	"slices"
	"strings"
)

// AccountSessionMode selects which embedded Connect components a session unlocks.
type AccountSessionMode string

const (
	AccountSessionModeOnboarding AccountSessionMode = "onboarding"
	AccountSessionModeCompliance AccountSessionMode = "compliance"
	AccountSessionModePayments   AccountSessionMode = "payments"
	AccountSessionModePayouts    AccountSessionMode = "payouts"
)

var validAccountSessionModes = []AccountSessionMode{
	AccountSessionModeOnboarding,
	AccountSessionModeCompliance,
	AccountSessionModePayments,
	AccountSessionModePayouts,
}

func (m AccountSessionMode) String() string {
	return string(m)
}

func (m AccountSessionMode) IsValid() bool {
	return slices.Contains(validAccountSessionModes, m)
}

// ParseAccountSessionMode never fails: unknown or empty input means onboarding.
func ParseAccountSessionMode(value string) AccountSessionMode {
	mode := AccountSessionMode(strings.ToLower(strings.TrimSpace(value)))
	if mode.IsValid() {
		return mode
	}
	return AccountSessionModeOnboarding
}
