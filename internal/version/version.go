// Package version extracts Bedrock server version identifiers from
// download URLs.
package version

import "regexp"

// Unknown is the sentinel identifier used when no download URL for a
// channel contains an extractable version.
const Unknown = "unknown"

// serverZipPattern matches the dedicated server archive name embedded in
// download URLs, e.g. ".../bin-win/bedrock-server-1.21.124.2.zip".
// Versions carry three or four dotted components.
var serverZipPattern = regexp.MustCompile(`bedrock-server-(\d+\.\d+(?:\.\d+){1,2})\.zip`)

// Extract returns the version identifier embedded in a download URL,
// or false if the URL does not contain a server archive name.
func Extract(locator string) (string, bool) {
	match := serverZipPattern.FindStringSubmatch(locator)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// Resolve extracts a version from the primary URL, falling back to the
// secondary URL, and finally to Unknown. Platform archives usually share
// one version but the layouts are not guaranteed to stay in lockstep.
func Resolve(primary, secondary string) string {
	if v, ok := Extract(primary); ok {
		return v
	}
	if v, ok := Extract(secondary); ok {
		return v
	}
	return Unknown
}
