// Utilities for lifting credentials out of a copied cURL command.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var curlHeaderRegex = regexp.MustCompile(`(?:-H|--header)\s+'([^']+)'|(?:-H|--header)\s+"([^"]+)"`)

// CurlHeaders holds the request headers of a cURL command, keyed by lower-cased name.
type CurlHeaders map[string]string

// ParseCurlFile reads a file containing a cURL command (as copied from browser dev tools) and extracts headers.
func ParseCurlFile(path string) (CurlHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts its headers.
func ParseCurlCommand(data []byte) (CurlHeaders, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	headers := make(CurlHeaders)
	for _, match := range curlHeaderRegex.FindAllStringSubmatch(cmd, -1) {
		line := match[1]
		if line == "" {
			line = match[2]
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return headers, nil
}

// MonarchToken returns the session token from a Monarch web request's "Authorization: Token <token>" header.
func (h CurlHeaders) MonarchToken() (string, error) {
	auth, ok := h["authorization"]
	if !ok {
		return "", fmt.Errorf("%w: no authorization header", ErrMissingCredentials)
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "token") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: authorization header is not a Monarch token", ErrInvalidCredentials)
	}
	return strings.TrimSpace(token), nil
}
