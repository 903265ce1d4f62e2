package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brandon/imap-sweep/pkg/types"
)

func TestClassifyNewsletterSender(t *testing.T) {
	rules := DefaultRuleset()

	cls := rules.Classify("newsletter@updates.com", "Weekly Digest", "newsletter@updates.com")
	assert.Equal(t, types.ActionDelete, cls.Action)
	assert.Contains(t, cls.Reason, "newsletter")
}

func TestClassifyPersonalMailIsKept(t *testing.T) {
	rules := DefaultRuleset()

	cls := rules.Classify("friend@gmail.com", "Dinner Friday?", "A Friend <friend@gmail.com>")
	assert.Equal(t, types.ActionKeep, cls.Action)
	assert.Equal(t, ReasonNotUnnecessary, cls.Reason)
}

func TestClassifyBulkMailDomain(t *testing.T) {
	rules := DefaultRuleset()

	cls := rules.Classify("someone@mailchimp.com", "hi there", "someone@mailchimp.com")
	assert.Equal(t, types.ActionDelete, cls.Action)
	assert.Equal(t, "sender domain: mailchimp.com", cls.Reason)
}

func TestClassifyGenericSenderLocalPart(t *testing.T) {
	rules := DefaultRuleset()

	cls := rules.Classify("hello@somecompany.com", "greetings", "hello@somecompany.com")
	assert.Equal(t, types.ActionDelete, cls.Action)
	assert.Equal(t, "sender name contains: hello", cls.Reason)
}

func TestClassifyPromotionalSubject(t *testing.T) {
	rules := DefaultRuleset()

	cls := rules.Classify("bob@shop.example", "50% off today!", "Bob <bob@shop.example>")
	assert.Equal(t, types.ActionDelete, cls.Action)
	assert.Equal(t, "promotional keyword: % off", cls.Reason)
}

func TestClassifyPatternGroupWinsOverDomain(t *testing.T) {
	rules := DefaultRuleset()

	// "newsletter" is a pattern and the domain is also a known bulk domain;
	// the pattern group has priority.
	cls := rules.Classify("newsletter@mailchimp.com", "hi", "newsletter@mailchimp.com")
	assert.Equal(t, types.ActionDelete, cls.Action)
	assert.Equal(t, "contains pattern: newsletter", cls.Reason)
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	rules := DefaultRuleset()

	cls := rules.Classify("NOREPLY@EXAMPLE.COM", "HELLO", "NOREPLY@EXAMPLE.COM")
	assert.Equal(t, types.ActionDelete, cls.Action)
	assert.Contains(t, cls.Reason, "noreply")
}

func TestClassifyIsIdempotent(t *testing.T) {
	rules := DefaultRuleset()

	first := rules.Classify("promo@shop.com", "Big sale", "promo@shop.com")
	second := rules.Classify("promo@shop.com", "Big sale", "promo@shop.com")
	assert.Equal(t, first, second)
}

func TestClassifySenderWithoutAtSign(t *testing.T) {
	rules := DefaultRuleset()

	// Without an address the whole string serves as the local part.
	cls := rules.Classify("mailer-daemon", "delivery status", "mailer-daemon")
	assert.Equal(t, types.ActionKeep, cls.Action)
}

func TestClassifyCustomRuleset(t *testing.T) {
	rules := &Ruleset{Patterns: []string{"lottery"}}

	cls := rules.Classify("someone@example.com", "you won the lottery", "someone@example.com")
	assert.Equal(t, types.ActionDelete, cls.Action)
	assert.Equal(t, "contains pattern: lottery", cls.Reason)

	cls = rules.Classify("someone@example.com", "meeting notes", "someone@example.com")
	assert.Equal(t, types.ActionKeep, cls.Action)
}
