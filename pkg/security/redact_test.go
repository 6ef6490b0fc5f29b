package security

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactXML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "card_number_keeps_last_four",
			input:    "<CardNumber>4111111111111111</CardNumber>",
			expected: "<CardNumber>***1111</CardNumber>",
		},
		{
			name:     "cvv_blanked",
			input:    "<CardCVV>123</CardCVV>",
			expected: "<CardCVV>***</CardCVV>",
		},
		{
			name:     "account_auth_blanked",
			input:    "<AccountAuth>s3cr3t</AccountAuth>",
			expected: "<AccountAuth>***</AccountAuth>",
		},
		{
			name:     "case_insensitive_tags",
			input:    "<cardnumber>5555555555554444</cardnumber><CARDCVV>999</CARDCVV>",
			expected: "<cardnumber>***4444</cardnumber><CARDCVV>***</CARDCVV>",
		},
		{
			name:     "short_card_number",
			input:    "<CardNumber>12</CardNumber>",
			expected: "<CardNumber>***</CardNumber>",
		},
		{
			name: "full_request",
			input: `<Request type="AuthorizeCapture"><AccountID>1</AccountID><AccountAuth>abc</AccountAuth>` +
				`<Transaction><CardNumber>4111111111111111</CardNumber><CardCVV>123</CardCVV></Transaction></Request>`,
			expected: `<Request type="AuthorizeCapture"><AccountID>1</AccountID><AccountAuth>***</AccountAuth>` +
				`<Transaction><CardNumber>***1111</CardNumber><CardCVV>***</CardCVV></Transaction></Request>`,
		},
		{
			name:     "untouched",
			input:    "<Amount>10.00</Amount>",
			expected: "<Amount>10.00</Amount>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RedactXML(tt.input))
		})
	}
}

func TestRedactMap(t *testing.T) {
	in := map[string]any{
		"ccnumber": "4111111111111111",
		"cvv":      "123",
		"Amount":   "10.00",
		"Transaction": map[string]any{
			"CardNumber": "4000000000000002",
			"CardCVV":    "321",
		},
		"AccountAuth": "secret",
	}

	out := RedactMap(in)

	assert.Equal(t, "***1111", out["ccnumber"])
	assert.Equal(t, "***", out["cvv"])
	assert.Equal(t, "10.00", out["Amount"])
	assert.Equal(t, "***", out["AccountAuth"])
	nested := out["Transaction"].(map[string]any)
	assert.Equal(t, "***0002", nested["CardNumber"])
	assert.Equal(t, "***", nested["CardCVV"])

	assert.Equal(t, "123", in["cvv"], "input must not be modified")
}

func TestRedact_Dispatch(t *testing.T) {
	assert.Equal(t, "<CardCVV>***</CardCVV>", Redact("<CardCVV>123</CardCVV>"))
	assert.Equal(t, "<CardCVV>***</CardCVV>", Redact([]byte("<CardCVV>123</CardCVV>")))
	assert.Equal(t, "post <CardCVV>***</CardCVV>", Redact(errors.New("post <CardCVV>123</CardCVV>")))
	assert.Equal(t, map[string]string{"CardCVV": "***"}, Redact(map[string]string{"CardCVV": "1"}))
	assert.Equal(t, 42, Redact(42))
	assert.Nil(t, Redact(nil))
}

func TestMaskLast4(t *testing.T) {
	assert.Equal(t, "***1111", MaskLast4("4111111111111111"))
	assert.Equal(t, "***1111", MaskLast4("1111"))
	assert.Equal(t, "***", MaskLast4("111"))
	assert.Equal(t, "<CardNumber>***1111</CardNumber>", RedactXML("<CardNumber>1111</CardNumber>"))
	assert.Equal(t, "***", MaskLast4(""))
}
