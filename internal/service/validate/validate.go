package validate

import (
	"errors"
)

// Check number against Luhn algorithm
func Luhn(number string) error {
	if number == "" {
		return errors.New("number is empty")
	}

	sum, err := luhnSum(number, false)
	if err != nil {
		return err
	}

	switch sum % 10 {
	case 0:
		return nil
	default:
		return errors.New("number is not valid according to Luhn algorithm")
	}
}

// Digit that makes payload+digit valid according to Luhn algorithm
func LuhnCheckDigit(payload string) (byte, error) {
	sum, err := luhnSum(payload, true)
	if err != nil {
		return 0, err
	}
	return byte('0' + (10-sum%10)%10), nil
}

// Sum digits from right to left doubling every second one
// withCheckDigit means the check digit is not there yet, so doubling starts from the rightmost digit
func luhnSum(number string, withCheckDigit bool) (int, error) {
	sum := 0
	double := withCheckDigit
	for i := len(number) - 1; i >= 0; i-- {
		n := number[i]
		if n < '0' || n > '9' {
			return 0, errors.New("number contains invalid characters")
		}

		digit := int(n - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum, nil
}

// Check value consists of exactly n ascii digits
func Digits(value string, n int) error {
	if len(value) != n {
		return errors.New("wrong length")
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return errors.New("only digits allowed")
		}
	}
	return nil
}
