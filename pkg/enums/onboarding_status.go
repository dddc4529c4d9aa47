package enums

import "slices"

// OnboardingStatus is the cached summary of a host's connected account state.
type OnboardingStatus string

const (
	OnboardingStatusNotStarted OnboardingStatus = "NOT_STARTED"
	OnboardingStatusInProgress OnboardingStatus = "IN_PROGRESS"
	OnboardingStatusComplete   OnboardingStatus = "COMPLETE"
	OnboardingStatusRestricted OnboardingStatus = "RESTRICTED"
)

var validOnboardingStatuses = []OnboardingStatus{
	OnboardingStatusNotStarted,
	OnboardingStatusInProgress,
	OnboardingStatusComplete,
	OnboardingStatusRestricted,
}

func (s OnboardingStatus) String() string {
	return string(s)
}

func (s OnboardingStatus) IsValid() bool {
	return slices.Contains(validOnboardingStatuses, s)
}

func ParseOnboardingStatus(value string) (OnboardingStatus, error) {
	return parse("onboarding status", value, validOnboardingStatuses)
}
