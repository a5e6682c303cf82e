package scheduler

import (
	"strings"

	"tickwork/internal/job"
)

// PolicyDecision classifies a payload before job creation. The policy never
// blocks: Allowed is always true, and RequiresApproval only flags actions the
// surrounding application should confirm with the user first.
type PolicyDecision struct {
	Allowed          bool
	RequiresApproval bool
	Reason           string
}

// Actions touching money need explicit user approval.
var billingWords = map[string]struct{}{
	"billing": {}, "bill": {}, "payment": {}, "payments": {}, "pay": {},
	"purchase": {}, "purchases": {}, "buy": {}, "charge": {}, "checkout": {},
	"subscribe": {}, "subscription": {},
}

// Actions that would recursively create more scheduled jobs.
var scheduleWords = map[string]struct{}{
	"create": {}, "add": {}, "schedule": {}, "new": {}, "register": {},
}

// EvaluatePolicy is stateless and is consumed by callers before Create; the
// scheduler never invokes it internally.
func EvaluatePolicy(p job.Payload) PolicyDecision {
	tokens := actionTokens(p.Action)

	for _, t := range tokens {
		if _, ok := billingWords[t]; ok {
			return PolicyDecision{
				Allowed:          true,
				RequiresApproval: true,
				Reason:           "billing-related action requires user approval",
			}
		}
	}

	if hasToken(tokens, "cron") || hasToken(tokens, "job") {
		for _, t := range tokens {
			if _, ok := scheduleWords[t]; ok {
				return PolicyDecision{
					Allowed:          true,
					RequiresApproval: true,
					Reason:           "recursively creating scheduled jobs requires user approval",
				}
			}
		}
	}

	return PolicyDecision{Allowed: true}
}

// actionTokens lower-cases the action and splits it on any non-letter rune,
// so "Billing.Charge" and "create_cron_job" tokenize the same way.
func actionTokens(action string) []string {
	return strings.FieldsFunc(strings.ToLower(action), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
