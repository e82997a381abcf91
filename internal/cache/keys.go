package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"strings"
	"time"
	"royale-tracker/internal/constants"
)

// playerTagParam is placed first in the key and has its leading '#'
// stripped for readability.
const playerTagParam = "playerTag"

// Params are the cache key parameters. Values must already be rendered as
// strings; see the Format helpers.
type Params map[string]string

// BuildKey assembles a deterministic cache key:
//
//	version:service:resource:playerTag=TAG:param1=val1:param2=val2
//
// The tag segment comes first when present; the remaining params follow in
// lexicographic key order regardless of caller-supplied order, all
// percent-encoded. Keys over the byte ceiling collapse the parameter tail
// into a hash of the full key, keeping the readable tag segment.
func BuildKey(version int64, service, resource string, params Params) string {
	parts := []string{fmt.Sprintf("%d", version), encode(service), encode(resource)}

	tagSegment := ""
	if tag, ok := params[playerTagParam]; ok {
		tagSegment = playerTagParam + "=" + encode(strings.TrimPrefix(tag, "#"))
		parts = append(parts, tagSegment)
	}

	rest := make([]string, 0, len(params))
	for key := range params {
		if key == playerTagParam {
			continue
		}
		rest = append(rest, key)
	}
	sort.Strings(rest)
	for _, key := range rest {
		parts = append(parts, encode(key)+"="+encode(params[key]))
	}

	key := strings.Join(parts, ":")
	if len(key) <= constants.CacheKeyMaxBytes {
		return key
	}

	sum := sha256.Sum256([]byte(key))
	hashed := []string{fmt.Sprintf("%d", version), encode(service), encode(resource)}
	if tagSegment != "" {
		hashed = append(hashed, tagSegment)
	}
	hashed = append(hashed, hex.EncodeToString(sum[:]))
	return strings.Join(hashed, ":")
}

// encode percent-encodes delimiters like '#' and ':' out of key segments.
func encode(s string) string {
	return url.QueryEscape(s)
}

// FormatTime renders an instant for use as a key parameter.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatList renders a string list as a comma-joined key parameter.
func FormatList(values []string) string {
	return strings.Join(values, ",")
}

// FormatBool renders a boolean key parameter.
func FormatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func randFloat() float64 {
	return rand.Float64()
}
