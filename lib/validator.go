package lib

import (
	"regexp"
	"strconv"
	"strings"
)

// HexAddressRegexp is a regexp you can use to validate a ledger address
var HexAddressRegexp = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// SessionIDRegexp is a regexp you can use to validate a session id
var SessionIDRegexp = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidationFn represents a check the validator can do again some arbitrary input.
// Here fieldName's main use is for nice human readable error messages.
type ValidationFn func(values map[string]string) []string

// Validate runs the given validations against the given values
func Validate(values map[string]string, validations ...ValidationFn) []string {
	allErrors := []string{}
	for _, validation := range validations {
		errors := validation(values)
		allErrors = append(allErrors, errors...)
	}
	return allErrors
}

// ValidatePresence validates the input is a non-empty string
func ValidatePresence(field string) ValidationFn {
	return func(values map[string]string) []string {
		if len(values[field]) == 0 {
			return []string{StringToTitle(field) + " is a required field"}
		}
		return []string{}
	}
}

// ValidateRegexp validates that the input matches a given regular expression
func ValidateRegexp(field string, r *regexp.Regexp) ValidationFn {
	return func(values map[string]string) []string {
		if !r.Match([]byte(values[field])) {
			return []string{StringToTitle(field) + " is not in the valid format"}
		}
		return []string{}
	}
}

// ValidateLength validates the length of the value is within certain bounds.
// A min of -1 will be ignored. A max of -1 will be ignored. Min and max are
// inclusive so ValidateLength(1,3) passes [1,2,3] but fails [0,4,...]
func ValidateLength(field string, min int, max int) ValidationFn {
	return func(values map[string]string) []string {
		errors := []string{}
		if min != -1 {
			if len(values[field]) < min {
				errors = append(errors, StringToTitle(field)+" is shorter than "+strconv.Itoa(min)+" characters")
			}
		}
		if max != -1 {
			if len(values[field]) > max {
				errors = append(errors, StringToTitle(field)+" is longer than "+strconv.Itoa(max)+" characters")
			}
		}
		return errors
	}
}

// ValidateOneOf validates that the value is one of the provided options
func ValidateOneOf(field string, options []string) ValidationFn {
	return func(values map[string]string) []string {
		for _, o := range options {
			if values[field] == o {
				return []string{}
			}
		}
		return []string{StringToTitle(field) + " is not one of " + strings.Join(options, ", ")}
	}
}
