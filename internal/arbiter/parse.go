package arbiter

import (
	"fmt"
	"strings"

	"github.com/mikey/mail-gatekeeper/internal/core"
)

const (
	labelSpam   = "CLASSIFICATION: SPAM"
	labelHam    = "CLASSIFICATION: HAM"
	labelReason = "REASON:"
)

// Parse reads the service's free-text response and extracts the verdict by
// strict substring match on the classification label. Any other structure is
// a parse failure; the raw response is preserved in the error for audit.
func Parse(response string) (*core.ArbiterResult, error) {
	spam := strings.Contains(response, labelSpam)
	ham := strings.Contains(response, labelHam)
	if spam == ham {
		return nil, fmt.Errorf("no classification label in response: %q", response)
	}

	reason := response
	if i := strings.Index(response, labelReason); i >= 0 {
		reason = strings.TrimSpace(response[i+len(labelReason):])
	}

	return &core.ArbiterResult{
		Human:  ham,
		Reason: reason,
	}, nil
}
