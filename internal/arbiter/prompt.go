// Package arbiter implements the label-line protocol spoken with the LLM
// classification service: a fixed prompt demanding a strict
// "CLASSIFICATION: SPAM|HAM" line, and a parser that accepts nothing else.
package arbiter

import "fmt"

const lenientPromptFormat = `Analyze the following email and determine if it is SPAM or HAM (Legitimate).

Subject: %s
Body snippet: %s

Rules:
- Look for phishing attempts, urgent fake requests, and unsolicited marketing.
- Newsletters from reputable companies are HAM.
- Personal emails are HAM.

Respond in this exact format:
CLASSIFICATION: [SPAM or HAM]
REASON: [Short explanation]`

const paranoidPromptFormat = `Analyze the following email.

Subject: %s
Body snippet: %s

STRICT "PERSONAL-ONLY" FILTERING RULES:
1. The goal is to identify "Graymail" and "Machine Generated" mail.
2. If the email is a Newsletter, Advertisement, Receipt, Security Alert, Shipping Notification, or Business Update: Classify as SPAM.
3. If the email is a generic "No-Reply" notification: Classify as SPAM.
4. The ONLY emails classified as HAM should be personal, hand-written correspondence between two humans (e.g., "Hey, do you want to grab lunch?").

Respond in this exact format:
CLASSIFICATION: [SPAM or HAM]
REASON: [Short explanation]`

// Prompt builds the classification prompt for the given style. Unknown
// styles fall back to the lenient wording.
func Prompt(style, subject, bodySnippet string) string {
	format := lenientPromptFormat
	if style == "paranoid" {
		format = paranoidPromptFormat
	}
	return fmt.Sprintf(format, subject, bodySnippet)
}
