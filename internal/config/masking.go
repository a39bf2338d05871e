package config

import "strings"

// maskSecret hides the middle of a secret, keeping the first and last
// four characters for diagnostics.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	if len(secret) < 8 {
		return "***"
	}

	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
