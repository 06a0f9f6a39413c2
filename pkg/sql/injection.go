package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes an injection pattern detected in a bound
// parameter value.
type InjectionCheckResult struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Name of the parameter that failed the check
}

// CheckParameterForInjection screens a parameter value with libinjection
// before it is bound. Caller identifiers are system-generated opaque IDs
// today, so this should never fire; it exists so that a future caller-supplied
// value cannot ride a canned query into the store.
//
// Only string values are checked. Returns nil when no injection is detected.
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		Fingerprint: string(fingerprint),
		ParamName:   paramName,
	}
}
