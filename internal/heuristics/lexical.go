package heuristics

import (
	"fmt"
	"strings"
	"unicode"
)

// Trigger is one weighted phrase in a profile's table
type Trigger struct {
	Phrase string
	Weight float64
}

// TriggerGroup is a family of phrases that contributes its weight once,
// on the first phrase found
type TriggerGroup struct {
	Name    string
	Phrases []string
	Weight  float64
}

// Profile selects a keyword-weight table and a spam threshold. Profiles are
// immutable; a run loads one by name and keeps it for the duration.
type Profile struct {
	Name          string
	Triggers      []Trigger
	TriggerGroups []TriggerGroup
	Threshold     float64

	// Structural signal weights; zero disables a signal
	AllCapsSubjectWeight float64
	ExclamationWeight    float64
	CurrencyWeight       float64

	// MaxBodySize bounds the body snippet handed to the LLM arbiter
	MaxBodySize int

	// PromptStyle selects the arbiter prompt wording
	PromptStyle string
}

// Score represents one lexical evaluation
type Score struct {
	Total   float64
	Reasons []string
	IsSpam  bool
}

// Reason joins the triggered reasons for audit logging
func (s Score) Reason() string {
	if len(s.Reasons) == 0 {
		return "clean"
	}
	return strings.Join(s.Reasons, "; ")
}

// Lenient requires multiple signals before tripping. The trigger table and
// threshold follow classic rule-based scoring.
var Lenient = Profile{
	Name: "lenient",
	Triggers: []Trigger{
		{Phrase: "verify your account", Weight: 3},
		{Phrase: "urgent", Weight: 2},
		{Phrase: "winner", Weight: 4},
		{Phrase: "lottery", Weight: 5},
		{Phrase: "inheritance", Weight: 4},
		{Phrase: "bank account", Weight: 2},
		{Phrase: "click here", Weight: 1},
		{Phrase: "unsubscribe", Weight: 0.5},
		{Phrase: "offer", Weight: 1},
		{Phrase: "limited time", Weight: 2},
		{Phrase: "crypto", Weight: 3},
		{Phrase: "investment", Weight: 2},
		{Phrase: "free", Weight: 2},
	},
	Threshold:            4,
	AllCapsSubjectWeight: 3,
	ExclamationWeight:    2,
	CurrencyWeight:       2,
	MaxBodySize:          1000,
	PromptStyle:          "lenient",
}

// Paranoid flags anything that looks automated, corporate, or mass-mailed.
// A single corporate-footer phrase is enough to trip it.
var Paranoid = Profile{
	Name: "paranoid",
	Triggers: []Trigger{
		{Phrase: "order confirmation", Weight: 2},
		{Phrase: "receipt", Weight: 2},
		{Phrase: "invoice", Weight: 2},
		{Phrase: "verify your email", Weight: 2},
		{Phrase: "security alert", Weight: 2},
	},
	TriggerGroups: []TriggerGroup{
		{
			Name: "corporate footer",
			Phrases: []string{
				"privacy policy",
				"terms of service",
				"all rights reserved",
				"view in browser",
				"unsubscribe",
				"manage preferences",
				"copyright",
				"inc.",
				"llc",
			},
			Weight: 3,
		},
	},
	Threshold:   2,
	MaxBodySize: 1500,
	PromptStyle: "paranoid",
}

// ProfileByName resolves a profile by its configured name
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lenient":
		return Lenient, nil
	case "paranoid":
		return Paranoid, nil
	default:
		return Profile{}, fmt.Errorf("unknown classification profile: %q", name)
	}
}

// Score evaluates subject and body against the profile's table. Scoring is
// pure: no I/O, no randomness, reasons appear in table order.
func (p Profile) Score(subject, body string) Score {
	var s Score
	text := strings.ToLower(subject + " " + body)

	for _, t := range p.Triggers {
		if strings.Contains(text, t.Phrase) {
			s.Total += t.Weight
			s.Reasons = append(s.Reasons, fmt.Sprintf("contains %q", t.Phrase))
		}
	}

	for _, g := range p.TriggerGroups {
		for _, phrase := range g.Phrases {
			if strings.Contains(text, phrase) {
				s.Total += g.Weight
				s.Reasons = append(s.Reasons, fmt.Sprintf("%s detected (%q)", g.Name, phrase))
				break
			}
		}
	}

	if p.AllCapsSubjectWeight > 0 && isAllCaps(subject) {
		s.Total += p.AllCapsSubjectWeight
		s.Reasons = append(s.Reasons, "subject is all caps")
	}
	if p.ExclamationWeight > 0 && strings.Contains(text, "!!!") {
		s.Total += p.ExclamationWeight
		s.Reasons = append(s.Reasons, "excessive exclamation marks")
	}
	if p.CurrencyWeight > 0 && strings.ContainsAny(subject, "$€£") {
		s.Total += p.CurrencyWeight
		s.Reasons = append(s.Reasons, "currency symbol in subject")
	}

	s.IsSpam = s.Total >= p.Threshold
	return s
}

// isAllCaps reports whether the string contains at least one letter and no
// lowercase letters
func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
