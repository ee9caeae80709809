// Package phone validates Italian mobile numbers and matches them
// against operator dialing prefixes.
package phone

import (
	"errors"
	"strings"
)

var (
	ErrInvalidLength = errors.New("number must be 10 digits")
	ErrInvalidPrefix = errors.New("italian mobile numbers start with 3")
)

// OperatorPrefixes maps each supported operator to its 3-digit dialing
// prefixes.
var OperatorPrefixes = map[string][]string{
	"TIM":        {"330", "331", "333", "334", "335", "336", "337", "338", "339", "360", "361", "362", "363", "366", "368"},
	"Vodafone":   {"340", "341", "342", "343", "344", "345", "346", "347", "348", "349", "383"},
	"WindTre":    {"320", "322", "323", "324", "325", "326", "327", "328", "329", "380", "388", "389", "390", "391", "392", "393", "397"},
	"Iliad":      {"351", "352", "353"},
	"Very":       {"370", "371"},
	"Lycamobile": {"373"},
}

// Normalize strips formatting and the +39 country prefix and validates
// the result as an Italian mobile number.
func Normalize(raw string) (string, error) {
	var digits strings.Builder

	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	number := digits.String()

	if len(number) == 12 && strings.HasPrefix(number, "39") {
		number = number[2:]
	}

	if len(number) != 10 {
		return "", ErrInvalidLength
	}

	if !strings.HasPrefix(number, "3") {
		return "", ErrInvalidPrefix
	}

	return number, nil
}

// MatchOperator reports whether the number's prefix belongs to the
// given operator. When it belongs to a different operator instead, that
// operator is returned as a suggestion. Unknown prefixes match any
// operator.
func MatchOperator(number string, operator string) (bool, string) {
	if len(number) < 3 {
		return true, ""
	}

	prefix := number[:3]

	var matched []string
	for op, prefixes := range OperatorPrefixes {
		for _, p := range prefixes {
			if p == prefix {
				matched = append(matched, op)
				break
			}
		}
	}

	if len(matched) == 0 {
		return true, ""
	}

	for _, op := range matched {
		if op == operator {
			return true, ""
		}
	}

	return false, matched[0]
}

// Operators lists the supported operator names.
func Operators() []string {
	operators := make([]string, 0, len(OperatorPrefixes))
	for op := range OperatorPrefixes {
		operators = append(operators, op)
	}

	return operators
}
