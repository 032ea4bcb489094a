package logger

import (
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

// ParseEnv folds the spellings deploy manifests use into an Env. Unknown
// values are treated as dev.
func ParseEnv(raw string) Env {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production", "live":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production", "qa":
		return EnvStage
	default:
		return EnvDev
	}
}

// DetectEnv reads APP_ENV.
func DetectEnv() Env {
	return ParseEnv(os.Getenv("APP_ENV"))
}
