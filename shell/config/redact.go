package config

import "regexp"

var (
	urlCredentials = regexp.MustCompile(`(postgres(?:ql)?://[^:/@\s]*):[^@\s]*@`)
	passwordPair   = regexp.MustCompile(`(?i)(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)
)

// RedactDSN masks passwords in URL and key=value connection strings found anywhere in s.
func RedactDSN(s string) string {
	s = urlCredentials.ReplaceAllString(s, "${1}:***@")

	return passwordPair.ReplaceAllString(s, "${1}***")
}
