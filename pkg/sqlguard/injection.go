package sqlguard

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheck describes a suspected SQL injection pattern found in
// user-supplied text.
type InjectionCheck struct {
	IsSQLi      bool   // true if an injection pattern was detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Input       string // the text that was checked
}

// CheckUserInput runs libinjection over free-form user text (questions,
// source names) before it is interpolated into prompts. Returns nil when
// nothing suspicious is found.
//
// Detections are advisory: natural-language questions can legitimately quote
// SQL fragments, so callers log the fingerprint rather than rejecting.
func CheckUserInput(input string) *InjectionCheck {
	if input == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(input)
	if !isSQLi {
		return nil
	}

	return &InjectionCheck{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Input:       input,
	}
}
