package provision

import "strings"

// Mode selects whether provisioning performs the template fork.
type Mode string

const (
	// ModeProduction forks the template and requires the fork to succeed.
	ModeProduction Mode = "production"
	// ModeDevelopment skips the fork.
	ModeDevelopment Mode = "development"
)

// ParseMode maps a configured environment name to a Mode. Anything other
// than "production" is non-production.
func ParseMode(env string) Mode {
	env = strings.ToLower(strings.TrimSpace(env))
	switch env {
	case "":
		return ModeDevelopment
	case string(ModeProduction):
		return ModeProduction
	default:
		return Mode(env)
	}
}

// Production reports whether m requires the fork.
func (m Mode) Production() bool { return m == ModeProduction }
