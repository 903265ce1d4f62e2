package cleanup

import (
	"fmt"
	"strings"

	"github.com/brandon/imap-sweep/pkg/types"
)

// Reasons reported for kept messages.
const (
	ReasonTooRecent      = "too recent or no date"
	ReasonNotUnnecessary = "not unnecessary"
)

// Ruleset holds the fragment lists used to classify a message as
// unnecessary. All matching is case-insensitive substring matching; the
// lists are static configuration and may be modified before scanning.
type Ruleset struct {
	// Patterns are tested against sender, subject and the full From value.
	Patterns []string
	// Domains are tested against the part of the sender address after "@".
	Domains []string
	// SenderKeywords are tested against the part of the address before "@".
	SenderKeywords []string
	// PromoKeywords are tested against the subject only.
	PromoKeywords []string
}

// DefaultRuleset returns the built-in fragment lists for promotional and
// automated mail.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Patterns: []string{
			"noreply", "no-reply", "donotreply", "notification", "newsletter",
			"unsubscribe", "promotional", "marketing", "sale", "offer", "deal",
			"discount", "coupon", "survey", "feedback", "social.*notification",
			"linkedin.*invitation", "facebook.*notification", "twitter.*notification",
			"instagram.*notification", "spam", "advertisement", "promo",
			"alert.*account", "security.*alert", "backup.*complete",
			"system.*notification", "automated.*message", "digest",
			"weekly.*update", "monthly.*report",
		},
		Domains: []string{
			"newsletters.com", "marketing.com", "promo.com", "noreply.com",
			"notifications.com", "alerts.com", "survey.com", "feedback.com",
			"mailchimp.com", "constantcontact.com", "sendgrid.net", "mailgun.org",
		},
		SenderKeywords: []string{
			"newsletter", "marketing", "promo", "deals", "offers", "support",
			"team", "hello", "info", "updates", "notifications",
		},
		PromoKeywords: []string{
			"sale", "discount", "offer", "deal", "coupon", "% off", "free shipping",
		},
	}
}

// Classify decides whether a message is unnecessary. The four rule groups
// are evaluated in priority order and the first match wins; the reason
// names the matching fragment. A message nothing matches is kept.
func (r *Ruleset) Classify(sender, subject, senderFull string) types.Classification {
	sender = strings.ToLower(sender)
	subject = strings.ToLower(subject)
	senderFull = strings.ToLower(senderFull)

	for _, pattern := range r.Patterns {
		if strings.Contains(sender, pattern) || strings.Contains(subject, pattern) || strings.Contains(senderFull, pattern) {
			return deleteBecause("contains pattern: %s", pattern)
		}
	}

	domain := ""
	local := sender
	if at := strings.LastIndexByte(sender, '@'); at >= 0 {
		domain = sender[at+1:]
		local = sender[:at]
	}

	for _, d := range r.Domains {
		if strings.Contains(domain, d) {
			return deleteBecause("sender domain: %s", d)
		}
	}

	for _, keyword := range r.SenderKeywords {
		if strings.Contains(local, keyword) {
			return deleteBecause("sender name contains: %s", keyword)
		}
	}

	for _, keyword := range r.PromoKeywords {
		if strings.Contains(subject, keyword) {
			return deleteBecause("promotional keyword: %s", keyword)
		}
	}

	return types.Classification{Action: types.ActionKeep, Reason: ReasonNotUnnecessary}
}

func deleteBecause(format string, fragment string) types.Classification {
	return types.Classification{
		Action: types.ActionDelete,
		Reason: fmt.Sprintf(format, fragment),
	}
}
