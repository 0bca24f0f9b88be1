package reconcile

import "strings"

// Class groups the provider's status spellings.
type Class int

const (
	ClassUnknown Class = iota
	ClassSuccess
	ClassFailure
)

var successStatuses = map[string]struct{}{
	"success":   {},
	"paid":      {},
	"completed": {},
}

var failureStatuses = map[string]struct{}{
	"failed":    {},
	"fail":      {},
	"failure":   {},
	"cancelled": {},
	"canceled":  {},
	"cancel":    {},
	"expired":   {},
	"rejected":  {},
}

func Classify(status string) Class {
	s := strings.ToLower(strings.TrimSpace(status))
	if _, ok := successStatuses[s]; ok {
		return ClassSuccess
	}
	if _, ok := failureStatuses[s]; ok {
		return ClassFailure
	}
	return ClassUnknown
}

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassFailure:
		return "failure"
	}
	return "unknown"
}
