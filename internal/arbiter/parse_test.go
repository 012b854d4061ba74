package arbiter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantHuman  bool
		wantReason string
		wantErr    bool
	}{
		{
			name:       "spam verdict",
			response:   "CLASSIFICATION: SPAM\nREASON: Lottery scam with urgency tactics",
			wantHuman:  false,
			wantReason: "Lottery scam with urgency tactics",
		},
		{
			name:       "ham verdict",
			response:   "CLASSIFICATION: HAM\nREASON: Personal correspondence",
			wantHuman:  true,
			wantReason: "Personal correspondence",
		},
		{
			name:       "preamble before labels",
			response:   "Sure, here is my analysis.\nCLASSIFICATION: SPAM\nREASON: Mass marketing",
			wantHuman:  false,
			wantReason: "Mass marketing",
		},
		{
			name:      "missing reason keeps verdict",
			response:  "CLASSIFICATION: HAM",
			wantHuman: true,
		},
		{
			name:     "no label at all",
			response: "This email looks legitimate to me.",
			wantErr:  true,
		},
		{
			name:     "both labels present",
			response: "CLASSIFICATION: SPAM or CLASSIFICATION: HAM, hard to say",
			wantErr:  true,
		},
		{
			name:     "lowercase label is rejected",
			response: "classification: spam\nreason: whatever",
			wantErr:  true,
		},
		{
			name:     "empty response",
			response: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				// The raw response is preserved for audit.
				if tt.response != "" {
					assert.Contains(t, err.Error(), tt.response)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHuman, result.Human)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, result.Reason)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	lenient := Prompt("lenient", "Hello", "just saying hi")
	assert.Contains(t, lenient, "Subject: Hello")
	assert.Contains(t, lenient, "Body snippet: just saying hi")
	assert.Contains(t, lenient, "CLASSIFICATION: [SPAM or HAM]")
	assert.Contains(t, lenient, "Newsletters from reputable companies are HAM.")

	paranoid := Prompt("paranoid", "Hello", "just saying hi")
	assert.Contains(t, paranoid, "PERSONAL-ONLY")
	assert.Contains(t, paranoid, "CLASSIFICATION: [SPAM or HAM]")

	// Unknown styles fall back to lenient wording.
	fallback := Prompt("something-else", "Hello", "hi")
	assert.True(t, strings.HasPrefix(fallback, "Analyze the following email and determine"))
}
