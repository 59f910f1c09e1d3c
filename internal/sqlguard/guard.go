// Package sqlguard decides whether a statement may be sent to the governed
// data store.
//
// The check is a plain substring scan over the upper-cased statement. A
// literal that contains a forbidden word (WHERE name = 'UPDATE') is rejected
// too, and a forbidden word inside a longer identifier (LAST_UPDATED) is
// rejected as well. Both are accepted false positives.
package sqlguard

import (
	"strings"

	"github.com/upb/governed-notebook/services"
)

// ForbiddenTokens may not appear anywhere in a statement
var ForbiddenTokens = []string{
	"UPDATE", "DELETE", "INSERT", "DROP", "ALTER", "CREATE", "GRANT", "REVOKE", "TRUNCATE",
}

const (
	ReasonForbiddenToken = "forbidden_token"
	ReasonNotSelect      = "not_select"
)

// Validate returns PolicyViolation unless the statement starts with SELECT
// and contains none of the forbidden tokens.
func Validate(statement string) error {
	upper := strings.ToUpper(strings.TrimSpace(statement))

	for _, token := range ForbiddenTokens {
		if strings.Contains(upper, token) {
			return services.NewPolicyViolation(ReasonForbiddenToken, token)
		}
	}

	if !strings.HasPrefix(upper, "SELECT") {
		return services.NewPolicyViolation(ReasonNotSelect, "")
	}

	return nil
}
