package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Mask is written in place of a redacted value
const Mask = "***"

var (
	cardNumberTag = regexp.MustCompile(`(?is)<(cardnumber)>([^<]*)</(cardnumber)>`)
	secretTag     = regexp.MustCompile(`(?is)<(cardcvv|accountauth)>[^<]*</(cardcvv|accountauth)>`)
)

// Keys are compared lower-cased
var (
	blankedKeys = map[string]struct{}{"cvv": {}, "cardcvv": {}, "accountauth": {}}
	maskedKeys  = map[string]struct{}{"ccnumber": {}, "cardnumber": {}}
)

// MaskLast4 keeps the last four characters of a card number
func MaskLast4(value string) string {
	value = strings.TrimSpace(value)
	if len(value) < 4 {
		return Mask
	}
	return Mask + value[len(value)-4:]
}

// RedactXML masks card numbers to their last four digits and blanks CVV and
// account auth codes in an XML payload. Tag names match case-insensitively.
func RedactXML(payload string) string {
	if payload == "" {
		return payload
	}
	out := cardNumberTag.ReplaceAllStringFunc(payload, func(m string) string {
		sub := cardNumberTag.FindStringSubmatch(m)
		return "<" + sub[1] + ">" + MaskLast4(sub[2]) + "</" + sub[3] + ">"
	})
	return secretTag.ReplaceAllString(out, "<$1>"+Mask+"</$2>")
}

// RedactValue redacts a single keyed value
func RedactValue(key, value string) string {
	k := strings.ToLower(key)
	if _, ok := blankedKeys[k]; ok {
		return Mask
	}
	if _, ok := maskedKeys[k]; ok {
		return MaskLast4(value)
	}
	return RedactXML(value)
}

// RedactMap returns a redacted deep copy of m
func RedactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = redactKeyed(k, v)
	}
	return out
}

func redactKeyed(key string, v any) any {
	switch val := v.(type) {
	case string:
		return RedactValue(key, val)
	case fmt.Stringer:
		return RedactValue(key, val.String())
	default:
		lk := strings.ToLower(key)
		if _, ok := blankedKeys[lk]; ok {
			return Mask
		}
		if _, ok := maskedKeys[lk]; ok {
			return MaskLast4(fmt.Sprint(val))
		}
		return Redact(v)
	}
}

// Redact dispatches on the payload shape. Unknown types are returned as is.
func Redact(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return RedactXML(val)
	case []byte:
		return RedactXML(string(val))
	case error:
		return RedactXML(val.Error())
	case map[string]any:
		return RedactMap(val)
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, s := range val {
			out[k] = RedactValue(k, s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Redact(item)
		}
		return out
	default:
		return v
	}
}
