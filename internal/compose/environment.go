package compose

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment is the variable table used by the substitution engine. It is
// treated as immutable per substitution pass; layering in an extra scope
// (a service's own environment) always happens on a copy.
type Environment map[string]string

// Clone returns an independent copy of the environment.
func (e Environment) Clone() Environment {
	out := make(Environment, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into e, overwriting existing keys.
func (e Environment) Merge(other Environment) {
	for k, v := range other {
		e[k] = v
	}
}

// OSEnvironment returns the process environment as an Environment.
func OSEnvironment() Environment {
	env := make(Environment)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// loadDotenv reads a dotenv file. A missing file is not an error and yields
// an empty environment.
func loadDotenv(path string) (Environment, error) {
	if _, err := os.Stat(path); err != nil {
		return Environment{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}
	return Environment(values), nil
}
