// Package interpolation expands environment variable references in
// configuration text, so credentials can stay out of the config file.
package interpolation

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// Matches ${VAR} and ${VAR:default}; the colon is captured so an empty
// default can be told apart from no default.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:)?([^}]*)\}`)

// ExpandEnvVars replaces ${VAR} references with values from the
// environment. ${VAR:default} falls back to default when VAR is unset; a
// plain ${VAR} that is unset is an error.
func ExpandEnvVars(input string) (string, error) {
	if input == "" {
		return "", nil
	}

	var missing []error
	result := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, fallback := groups[1], groups[2] == ":", groups[3]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return fallback
		}
		missing = append(missing, fmt.Errorf("environment variable not defined: %s", name))
		return match
	})

	return result, errors.Join(missing...)
}
