package reconciler

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// isDowngrade reports whether target carries a lower version tag than
// current. Tags that do not parse as versions, such as "latest", are never
// a downgrade.
func isDowngrade(current, target string) bool {
	from, err := semver.NewVersion(imageTag(current))
	if err != nil {
		return false
	}
	to, err := semver.NewVersion(imageTag(target))
	if err != nil {
		return false
	}
	return to.LessThan(from)
}

// imageTag returns the tag of an image reference, or "" when it has none.
func imageTag(ref string) string {
	if i := strings.Index(ref, "@"); i >= 0 {
		ref = ref[:i]
	}
	colon := strings.LastIndex(ref, ":")
	if colon < 0 || colon < strings.LastIndex(ref, "/") {
		return ""
	}
	return ref[colon+1:]
}
