package services

import (
	"net/url"
	"strings"
	"time"

	"reviewflow/internal/services/dto"
)

const (
	DefaultStoreThreshold    = 3
	DefaultRedirectThreshold = 4
	DefaultRedirectDelay     = 2 * time.Second

	// StoreNever and RedirectNever switch one branch off entirely.
	StoreNever    = 0
	RedirectNever = 6

	MessageRedirecting = "Redirecting you to Google Reviews..."
	MessageThankYou    = "We appreciate your feedback. We'll use it to improve our service."
)

// RedirectSteps - порядок действий формы при редиректе
var RedirectSteps = []string{"confirm", "copy", "delay", "navigate"}

// Policy decides what happens to a rating.
// Store when rating <= StoreThreshold, redirect when rating >= RedirectThreshold.
type Policy struct {
	StoreThreshold    int
	RedirectThreshold int
	RedirectDelay     time.Duration
}

// Decision is the pure result of Decide; both flags may be set.
type Decision struct {
	Store     bool
	Redirect  bool
	TargetURL string
}

func DefaultPolicy() Policy {
	return Policy{
		StoreThreshold:    DefaultStoreThreshold,
		RedirectThreshold: DefaultRedirectThreshold,
		RedirectDelay:     DefaultRedirectDelay,
	}
}

// WithOverrides applies per-tenant thresholds; nil keeps the platform value.
func (p Policy) WithOverrides(store, redirect *int) Policy {
	if store != nil {
		p.StoreThreshold = *store
	}
	if redirect != nil {
		p.RedirectThreshold = *redirect
	}
	return p
}

func (p Policy) Valid() bool {
	return p.StoreThreshold >= StoreNever && p.StoreThreshold <= 5 &&
		p.RedirectThreshold >= 1 && p.RedirectThreshold <= RedirectNever &&
		p.RedirectDelay >= 0
}

func (p Policy) Response() dto.RoutingPolicyResponse {
	return dto.RoutingPolicyResponse{
		StoreThreshold:    p.StoreThreshold,
		RedirectThreshold: p.RedirectThreshold,
		RedirectDelayMs:   int(p.RedirectDelay / time.Millisecond),
	}
}

// ResolveTarget prefers the tenant's own review URL over the ?target= parameter.
// Anything that is not an absolute http(s) URL is ignored.
func ResolveTarget(tenantURL, queryTarget string) string {
	for _, candidate := range []string{tenantURL, queryTarget} {
		candidate = strings.TrimSpace(candidate)
		if isHTTPURL(candidate) {
			return candidate
		}
	}
	return ""
}

// Decide is a pure function of its inputs. A wanted redirect without a
// target falls back to storing so the rating is not lost.
func Decide(rating int, policy Policy, targetURL string) Decision {
	var d Decision
	if rating >= policy.RedirectThreshold {
		if targetURL != "" {
			d.Redirect = true
			d.TargetURL = targetURL
		} else {
			d.Store = true
		}
	}
	if rating <= policy.StoreThreshold {
		d.Store = true
	}
	return d
}

// NewOutcome describes the executed decision to the form.
// storeErr is only reported when the redirect still goes ahead.
func NewOutcome(d Decision, policy Policy, comment, feedbackID string, storeErr error) *dto.FeedbackOutcome {
	out := &dto.FeedbackOutcome{
		Stored:     d.Store && storeErr == nil,
		FeedbackID: feedbackID,
		Redirect:   d.Redirect,
		Message:    MessageThankYou,
	}
	if d.Redirect {
		out.RedirectURL = d.TargetURL
		out.RedirectDelayMs = int(policy.RedirectDelay / time.Millisecond)
		out.ClipboardText = comment
		out.Steps = append([]string(nil), RedirectSteps...)
		out.Message = MessageRedirecting
		if storeErr != nil {
			out.StoreError = "Failed to save feedback"
		}
	}
	return out
}

func isHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
