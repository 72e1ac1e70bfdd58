package utils

import "strings"

// CartlineEnvironment names a deployment environment.
type CartlineEnvironment string

const (
	PRODUCTION  CartlineEnvironment = "production"
	DEVELOPMENT CartlineEnvironment = "development"
)

func (e CartlineEnvironment) Get() string {
	return string(e)
}

// FromEnvironmentStr parses an environment name, defaulting to development
// so a blank or mistyped value never runs with production behaviour.
func FromEnvironmentStr(s string) CartlineEnvironment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production":
		return PRODUCTION
	default:
		return DEVELOPMENT
	}
}
