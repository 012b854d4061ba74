package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileByName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "lenient", input: "lenient", expected: "lenient"},
		{name: "paranoid", input: "paranoid", expected: "paranoid"},
		{name: "empty defaults to lenient", input: "", expected: "lenient"},
		{name: "case insensitive", input: "Paranoid", expected: "paranoid"},
		{name: "whitespace trimmed", input: "  lenient  ", expected: "lenient"},
		{name: "unknown profile", input: "aggressive", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ProfileByName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Name)
		})
	}
}

func TestLenientScore(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		wantSpam bool
	}{
		{
			name:     "clean personal mail",
			subject:  "lunch on thursday?",
			body:     "hey, are you around this week? would be good to catch up.",
			wantSpam: false,
		},
		{
			name:     "single weak trigger stays under threshold",
			subject:  "newsletter",
			body:     "you can unsubscribe at any time",
			wantSpam: false,
		},
		{
			name:     "lottery alone trips threshold",
			subject:  "congratulations",
			body:     "you have won the lottery",
			wantSpam: true,
		},
		{
			name:     "stacked weak triggers trip threshold",
			subject:  "special offer",
			body:     "limited time offer, click here for your free gift",
			wantSpam: true,
		},
		{
			name:     "all caps subject plus urgency",
			subject:  "URGENT ACTION REQUIRED",
			body:     "please respond today",
			wantSpam: true,
		},
		{
			name:     "currency and exclamation in subject",
			subject:  "Make $5000 now!!!",
			body:     "",
			wantSpam: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Lenient.Score(tt.subject, tt.body)
			assert.Equal(t, tt.wantSpam, s.IsSpam, "score %.1f: %s", s.Total, s.Reason())
		})
	}
}

func TestParanoidScore(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		wantSpam bool
	}{
		{
			name:     "clean personal mail",
			subject:  "re: your question",
			body:     "sure, that works for me. see you then.",
			wantSpam: false,
		},
		{
			name:     "corporate footer alone trips it",
			subject:  "news from us",
			body:     "read our privacy policy for details",
			wantSpam: true,
		},
		{
			name:     "transactional subject trips it",
			subject:  "Your order confirmation",
			body:     "thanks for your purchase",
			wantSpam: true,
		},
		{
			name:     "receipt keyword in body",
			subject:  "hello",
			body:     "attached is your receipt for this month",
			wantSpam: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Paranoid.Score(tt.subject, tt.body)
			assert.Equal(t, tt.wantSpam, s.IsSpam, "score %.1f: %s", s.Total, s.Reason())
		})
	}
}

func TestFooterGroupCountsOnce(t *testing.T) {
	// Several footer phrases in one body must contribute the group weight
	// a single time.
	one := Paranoid.Score("", "privacy policy")
	many := Paranoid.Score("", "privacy policy, terms of service, all rights reserved")
	assert.Equal(t, one.Total, many.Total)
}

func TestScoreMonotonicity(t *testing.T) {
	// Adding trigger text never lowers the score.
	base := Lenient.Score("hello", "just checking in")
	more := Lenient.Score("hello", "just checking in about that investment offer")
	assert.GreaterOrEqual(t, more.Total, base.Total)
	assert.Greater(t, more.Total, 0.0)
}

func TestScoreIsDeterministic(t *testing.T) {
	subject := "URGENT: limited time offer!!!"
	body := "click here before the free trial ends"
	first := Lenient.Score(subject, body)
	for i := 0; i < 5; i++ {
		again := Lenient.Score(subject, body)
		assert.Equal(t, first, again)
	}
}

func TestScoreReason(t *testing.T) {
	clean := Lenient.Score("hi", "how are you")
	assert.Equal(t, "clean", clean.Reason())

	spam := Lenient.Score("winner", "you won the lottery")
	assert.Contains(t, spam.Reason(), `contains "winner"`)
	assert.Contains(t, spam.Reason(), `contains "lottery"`)
}

func TestIsAllCaps(t *testing.T) {
	assert.True(t, isAllCaps("HELLO WORLD"))
	assert.True(t, isAllCaps("ACT NOW!!!"))
	assert.False(t, isAllCaps("Hello World"))
	assert.False(t, isAllCaps("12345 !!!"))
	assert.False(t, isAllCaps(""))
}
