package domain

// ConnectionStep is one leg of the OAuth1 three-legged flow
type ConnectionStep string

const (
	StepRequestTempCredentials   ConnectionStep = "request_temp_credentials"
	StepUserAuthorize            ConnectionStep = "user_authorize"
	StepRequestAccessCredentials ConnectionStep = "request_access_credentials"
)

// StepStatus is the recorded outcome of a connection step.
// A step without an entry has not been attempted.
type StepStatus string

const (
	StepStatusSuccess StepStatus = "SUCCESS"
	StepStatusFailed  StepStatus = "FAILED"
)

// ConnectionSteps returns the steps in flow order
func ConnectionSteps() []ConnectionStep {
	return []ConnectionStep{
		StepRequestTempCredentials,
		StepUserAuthorize,
		StepRequestAccessCredentials,
	}
}

// IsValid reports whether the step is part of the flow
func (s ConnectionStep) IsValid() bool {
	switch s {
	case StepRequestTempCredentials, StepUserAuthorize, StepRequestAccessCredentials:
		return true
	}
	return false
}

// Label returns the administrator-facing description of the step
func (s ConnectionStep) Label() string {
	switch s {
	case StepRequestTempCredentials:
		return "Using Consumer Key and Secret to Get Temporary Credentials"
	case StepUserAuthorize:
		return "Redirecting for user authorization - you may need to login first"
	case StepRequestAccessCredentials:
		return "Using credentials from user authorization to get permanent credentials"
	default:
		return string(s)
	}
}

// IsValid reports whether the status is SUCCESS or FAILED
func (s StepStatus) IsValid() bool {
	return s == StepStatusSuccess || s == StepStatusFailed
}

// LastAttemptedStep returns the furthest step in flow order that has an entry
func LastAttemptedStep(statuses map[ConnectionStep]StepStatus) (ConnectionStep, bool) {
	steps := ConnectionSteps()
	for i := len(steps) - 1; i >= 0; i-- {
		if _, ok := statuses[steps[i]]; ok {
			return steps[i], true
		}
	}
	return "", false
}

// StepDetail is a ledger entry prepared for display
type StepDetail struct {
	Step   ConnectionStep `json:"step"`
	Label  string         `json:"label"`
	Status StepStatus     `json:"status,omitempty"`
}

// StepDetails lists every step with its recorded status, in flow order
func StepDetails(statuses map[ConnectionStep]StepStatus) []StepDetail {
	steps := ConnectionSteps()
	details := make([]StepDetail, 0, len(steps))
	for _, step := range steps {
		details = append(details, StepDetail{
			Step:   step,
			Label:  step.Label(),
			Status: statuses[step],
		})
	}
	return details
}
