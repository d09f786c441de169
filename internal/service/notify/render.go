package notify

import (
	"strings"

	"github.com/gwhitt/roundbook/internal/model"
	"github.com/gwhitt/roundbook/internal/util"
)

// FormalName derives the greeting form of a customer name. Couples are
// recorded as "Bob & Sue Smith" and greeted as "Bob & Sue"; everyone
// else gets their first name. A blank record falls back to "Customer".
func FormalName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "Customer"
	}
	for _, f := range fields {
		if f == "&" {
			if len(fields) > 1 {
				return strings.Join(fields[:len(fields)-1], " ")
			}
			break
		}
	}
	return fields[0]
}

// Render assembles the notice text: greeting, template body, account
// footer. When the template carries the include-price flag, the first
// "£" in the body is expanded with the customer's outstanding balance.
func Render(acct *model.Account, cust *model.Customer, tmpl *model.Template) string {
	body := tmpl.Body
	if tmpl.IncludePrice {
		body = strings.Replace(body, "£", "£"+util.Pounds(cust.Outstanding), 1)
	}

	var b strings.Builder
	b.WriteString("Dear ")
	b.WriteString(FormalName(cust.Name))
	b.WriteString("\n\n")
	b.WriteString(body)
	if acct.MessageFooter != "" {
		b.WriteString("\n\n")
		b.WriteString(acct.MessageFooter)
	}
	return b.String()
}
