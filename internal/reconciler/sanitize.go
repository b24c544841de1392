package reconciler

import "regexp"

// Applied in order. Paths go last so that redacted values are not mistaken
// for paths.
var (
	bearerPattern   = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`)
	keyValuePattern = regexp.MustCompile(`(?i)\b(password|passwd|secret|token|api[_-]?key)\s*[=:]\s*\S+`)
	blobPattern     = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)
	pathPattern     = regexp.MustCompile(`(^|[\s"'=])(/[\w.\-]+){2,}/?`)
)

// SanitizeErrorMessage strips credentials and local filesystem paths from
// an error message before it is kept in the status tracker or published in
// an Event.
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}
	msg = bearerPattern.ReplaceAllString(msg, "bearer [REDACTED]")
	msg = keyValuePattern.ReplaceAllString(msg, "$1=[REDACTED]")
	msg = blobPattern.ReplaceAllString(msg, "[REDACTED]")
	msg = pathPattern.ReplaceAllString(msg, "$1[PATH]")
	return msg
}
