package models

import (
	"regexp"
	"strings"

	dErrors "ons/pkg/domain-errors"
)

// Suffix is appended to every domain in intent messages and display names.
const Suffix = ".oct"

const (
	minNameLength = 3
	maxNameLength = 63
	maxTxHashLen  = 128
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// NormalizeName lower-cases and trims a user-supplied name and strips the suffix.
func NormalizeName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimSuffix(name, Suffix)
}

// ValidateName checks a normalized name.
func ValidateName(name string) error {
	if len(name) < minNameLength || len(name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "domain must be between 3 and 63 characters")
	}
	if !namePattern.MatchString(name) {
		return dErrors.New(dErrors.CodeValidation, "domain may contain only letters, digits and hyphens, and must start and end with a letter or digit")
	}
	return nil
}

// ParseName normalizes and validates in one step.
func ParseName(raw string) (string, error) {
	name := NormalizeName(raw)
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// FullName renders a domain with its suffix.
func FullName(name string) string {
	return name + Suffix
}

// ValidateAddress accepts chain addresses of the form oct<base58...>.
func ValidateAddress(address string) error {
	if !strings.HasPrefix(address, "oct") || len(address) <= 10 {
		return dErrors.New(dErrors.CodeValidation, "address must be an oct address")
	}
	if strings.ContainsAny(address, " \t\r\n/") {
		return dErrors.New(dErrors.CodeValidation, "address contains invalid characters")
	}
	return nil
}

// ValidateTxHash accepts any non-empty hash without whitespace or path separators.
func ValidateTxHash(hash string) error {
	if hash == "" {
		return dErrors.New(dErrors.CodeValidation, "tx_hash is required")
	}
	if len(hash) > maxTxHashLen || strings.ContainsAny(hash, " \t\r\n/?#") {
		return dErrors.New(dErrors.CodeValidation, "tx_hash is malformed")
	}
	return nil
}
