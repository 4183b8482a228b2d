package util

import (
	"net/url"
	"strconv"
)

// GetQueryParam returns the query parameter key from u, or defaultValue when it is absent.
func GetQueryParam(u *url.URL, key string, defaultValue string) string {
	value := u.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	return value
}

// GetQueryParamInt returns the integer query parameter key from u. Missing or unparsable
// values fall back to defaultValue.
func GetQueryParamInt(u *url.URL, key string, defaultValue int) int {
	value := u.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return result
}
