package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	envParentPID = "SYNTAXWORKER_PARENT_PID"
	envChannel   = "SYNTAXWORKER_CHANNEL"
	envConfig    = "SYNTAXWORKER_CONFIG"
)

var (
	errMissingEnv = errors.New("missing required environment variable")
	errInvalidEnv = errors.New("invalid environment variable")
)

// environment holds the inputs the parent editor passes at spawn time.
type environment struct {
	ParentPID  int
	Channel    string
	ConfigPath string
}

func readEnvironment(getenv func(string) string) (environment, error) {
	rawPID := strings.TrimSpace(getenv(envParentPID))
	if rawPID == "" {
		return environment{}, fmt.Errorf("%w: %s", errMissingEnv, envParentPID)
	}
	pid, err := strconv.Atoi(rawPID)
	if err != nil || pid <= 0 {
		return environment{}, fmt.Errorf("%w: %s=%q", errInvalidEnv, envParentPID, rawPID)
	}

	channel := strings.TrimSpace(getenv(envChannel))
	if channel == "" {
		return environment{}, fmt.Errorf("%w: %s", errMissingEnv, envChannel)
	}

	return environment{
		ParentPID:  pid,
		Channel:    channel,
		ConfigPath: strings.TrimSpace(getenv(envConfig)),
	}, nil
}
