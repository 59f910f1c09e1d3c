package kernel

import (
	"fmt"
	"strings"

	"github.com/upb/governed-notebook/models"
)

const rule = "============================================================"

// Banner is the welcome text shown when a session starts
func Banner(identity models.SessionContext, traced bool) string {
	var sb strings.Builder
	sb.WriteString("\n" + rule + "\n")
	sb.WriteString("Governed data analysis notebook\n")
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "User: %s (session %s)\n", identity.Username, identity.SessionName)
	sb.WriteString(`Data access: import "governed"` + "\n")
	sb.WriteString("  governed.Query(sql, args...)    read-only SELECT\n")
	sb.WriteString("  governed.Customers(limit)       customers_anonymized\n")
	sb.WriteString("  governed.Transactions(limit)    transactions_anonymized\n")
	sb.WriteString("  governed.Statistics()           customer_statistics\n")
	if traced {
		sb.WriteString("Every cell you run is recorded.\n")
	}
	sb.WriteString("Exporting data to files and running commands are not allowed.\n")
	sb.WriteString(rule + "\n")
	return sb.String()
}
