package motion

// Rule names the validation rule a request violated.
type Rule string

const (
	RuleNone              Rule = ""
	RuleInvalidEntity     Rule = "invalidEntity"
	RuleNonFiniteInput    Rule = "nonFiniteInput"
	RuleInvalidMagnitude  Rule = "invalidMagnitude"
	RuleInvalidDirection  Rule = "invalidDirection"
	RuleRequestExpired    Rule = "requestExpired"
	RuleRateLimitExceeded Rule = "rateLimitExceeded"
	RuleOscillation       Rule = "oscillationDetected"
	RuleSpam              Rule = "spamDetected"
	RuleSpeedTooLow       Rule = "speedTooLow"
	RuleSpeedTooHigh      Rule = "speedTooHigh"
	RuleForceTooHigh      Rule = "forceTooHigh"
	RuleResultantTooHigh  Rule = "resultantTooHigh"
)

// ValidationResult is produced once per request and never persisted.
// Either OK is true (optionally with a warning and a request to guard
// force accumulation), or it carries the violated rule, a human-readable
// message and an optional correction suggestion.
type ValidationResult struct {
	OK                        bool
	Warning                   string
	RequiresAccumulationGuard bool

	Rule       Rule
	Message    string
	Suggestion string
}

// Valid returns a passing result.
func Valid() ValidationResult {
	return ValidationResult{OK: true}
}

// ValidWithGuard returns a passing result that asks the dispatcher to
// bound force accumulation for this request.
func ValidWithGuard(warning string) ValidationResult {
	return ValidationResult{OK: true, Warning: warning, RequiresAccumulationGuard: true}
}

// Invalid returns a failing result for the given rule.
func Invalid(rule Rule, message, suggestion string) ValidationResult {
	return ValidationResult{Rule: rule, Message: message, Suggestion: suggestion}
}
