package main

import (
	"errors"
	"testing"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestReadEnvironment(t *testing.T) {
	env, err := readEnvironment(envFrom(map[string]string{
		envParentPID: " 4242 ",
		envChannel:   "/tmp/sw.sock",
		envConfig:    "ex.config.toml",
	}))
	if err != nil {
		t.Fatalf("read env: %v", err)
	}
	if env.ParentPID != 4242 || env.Channel != "/tmp/sw.sock" || env.ConfigPath != "ex.config.toml" {
		t.Fatalf("unexpected environment: %+v", env)
	}
}

func TestReadEnvironmentErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"missing pid", map[string]string{envChannel: "/tmp/sw.sock"}, errMissingEnv},
		{"bad pid", map[string]string{envParentPID: "abc", envChannel: "/tmp/sw.sock"}, errInvalidEnv},
		{"negative pid", map[string]string{envParentPID: "-3", envChannel: "/tmp/sw.sock"}, errInvalidEnv},
		{"missing channel", map[string]string{envParentPID: "10"}, errMissingEnv},
	}
	for _, tc := range cases {
		if _, err := readEnvironment(envFrom(tc.env)); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}
