package cache

import "strings"

const (
	GlobalKeyPrefix = "wikiquiz"
)

// GenerateCacheKey builds "<prefix>:<service>:<objectType>:<identifier>",
// appending the params joined by "_" as a final segment when present.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// ModelPreferenceKey holds the identifier of the last model that answered.
func ModelPreferenceKey() string {
	return GenerateCacheKey("quizgen", "model", "preferred")
}
