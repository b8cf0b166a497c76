package contracts

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// authFailurePhrases are substring-matched against a contract failure's
// error text to recognize an expired or revoked credential. The set
// covers the OAuth/bearer-token failure modes the sub-agent's HTTP
// client surfaces.
var authFailurePhrases = []string{
	"authentication_error",
	"invalid x-api-key",
	"invalid bearer token",
	"oauth token has expired",
	"token expired",
	"401",
}

// authFailureReason returns the matched phrase if err's text looks like
// an authentication failure, else "".
func authFailureReason(err error) string {
	msg := strings.ToLower(err.Error())
	for _, phrase := range authFailurePhrases {
		if strings.Contains(msg, phrase) {
			return phrase
		}
	}
	return ""
}

const tokenExpiredFilename = "TOKEN_EXPIRED.txt"

// writeTokenExpired writes the token-expiration alert file into dir's
// root with remediation steps.
func writeTokenExpired(dir, reason string) error {
	body := "Contracts sub-agent authentication failed (matched: " + reason + ")\n" +
		"Detected at: " + time.Now().UTC().Format("2006-01-02T15:04:05Z") + "\n\n" +
		"Remediation:\n" +
		"  1. Refresh the credential the contracts sub-agent uses.\n" +
		"  2. Remove this file once the credential has been refreshed.\n"
	return os.WriteFile(filepath.Join(dir, tokenExpiredFilename), []byte(body), 0o600)
}
