package engine

import (
	"fmt"

	"github.com/corppay/be-approval-flows/internal/flow"
)

// checkEvidence enforces the attachment/comment thresholds. It runs before
// any approval logic so missing evidence cannot be bypassed by a low amount.
// A threshold of 0 means always required; nil means the requirement is off.
func checkEvidence(rule flow.Rule, sc flow.Scenario) (string, bool) {
	if rule.RequireAttachmentsOverUGX != nil &&
		sc.AmountUGX >= *rule.RequireAttachmentsOverUGX &&
		!sc.AttachmentsProvided {
		return fmt.Sprintf("attachments required for amounts of %d UGX and above", *rule.RequireAttachmentsOverUGX), false
	}

	if rule.RequireCommentOverUGX != nil &&
		sc.AmountUGX >= *rule.RequireCommentOverUGX &&
		!sc.CommentProvided {
		return fmt.Sprintf("comment required for amounts of %d UGX and above", *rule.RequireCommentOverUGX), false
	}

	return "", true
}
