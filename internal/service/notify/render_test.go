package notify

import (
	"testing"

	"github.com/gwhitt/roundbook/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFormalName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"first name only kept", "Bob Smith", "Bob"},
		{"single token", "Bob", "Bob"},
		{"couple drops surname", "Bob & Sue Smith", "Bob & Sue"},
		{"titled couple", "Mr & Mrs Smith", "Mr & Mrs"},
		{"blank falls back", "", "Customer"},
		{"whitespace falls back", "   ", "Customer"},
		{"extra spacing", "  Bob   &  Sue   Smith ", "Bob & Sue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormalName(tc.in))
		})
	}
}

func TestRender(t *testing.T) {
	acct := &model.Account{MessageFooter: "Shine Right Windows, 07700 900123"}
	cust := &model.Customer{Name: "Bob & Sue Smith", Outstanding: 2550}

	t.Run("price expanded when flagged", func(t *testing.T) {
		tmpl := &model.Template{
			Body:         "Your balance of £ is now due. Please pay at your earliest convenience.",
			IncludePrice: true,
		}
		got := Render(acct, cust, tmpl)
		assert.Equal(t,
			"Dear Bob & Sue\n\n"+
				"Your balance of £25.50 is now due. Please pay at your earliest convenience.\n\n"+
				"Shine Right Windows, 07700 900123",
			got)
	})

	t.Run("only first pound sign expanded", func(t *testing.T) {
		tmpl := &model.Template{Body: "£ due. Late fee £5.", IncludePrice: true}
		got := Render(acct, cust, tmpl)
		assert.Contains(t, got, "£25.50 due. Late fee £5.")
	})

	t.Run("flag off leaves body alone", func(t *testing.T) {
		tmpl := &model.Template{Body: "Your balance of £ is now due.", IncludePrice: false}
		got := Render(acct, cust, tmpl)
		assert.Contains(t, got, "Your balance of £ is now due.")
	})

	t.Run("no footer when unset", func(t *testing.T) {
		bare := &model.Account{}
		tmpl := &model.Template{Body: "We called today."}
		got := Render(bare, cust, tmpl)
		assert.Equal(t, "Dear Bob & Sue\n\nWe called today.", got)
	})
}
