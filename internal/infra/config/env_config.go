package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ErrInvalidConfig is returned when the provided config is not a pointer to a struct
// that embeds EnvConfig.
var ErrInvalidConfig = errors.New("config must be a pointer to a struct embedding EnvConfig")

// EnvConfig is a base type that must be embedded in configuration structs
// to enable environment variable parsing.
type EnvConfig struct {
	namespace string
}

// Namespace returns the namespace the configuration was parsed with.
func (c EnvConfig) Namespace() string {
	return c.namespace
}

//nolint:varnamelen
func getEnvConfig(cfg any) (*EnvConfig, error) {
	v := reflect.ValueOf(cfg)

	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidConfig
	}

	v = v.Elem()
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		//nolint:exhaustruct,forcetypeassert
		if field.Anonymous && field.Type == reflect.TypeOf(EnvConfig{}) {
			if ev := v.Field(i); ev.CanAddr() {
				return ev.Addr().Interface().(*EnvConfig), nil
			}
		}
	}

	return nil, ErrInvalidConfig
}

// Parse loads configuration values from environment variables into the provided struct.
// The struct must embed EnvConfig and use `env`, `envDefault` and `envPrefix` tags.
//
// The namespace is an underscore separated prefix ("APP_SERVICE"). A variable is
// looked up under every leading part of the namespace and the most specific match
// wins: APP_SERVICE_PORT overrides APP_PORT. Fields without a default are required.
// A variable that is set but empty yields the zero value, not the default.
func Parse(ctx context.Context, cfg any, namespace string) error {
	envConfig, err := getEnvConfig(cfg)
	if err != nil {
		return fmt.Errorf("get env config: %w", err)
	}

	envConfig.namespace = namespace

	environment := namespacedEnvironment(namespace, os.Environ())

	//nolint:exhaustruct
	if err := env.ParseWithOptions(cfg, env.Options{
		Environment:     environment,
		RequiredIfNoDef: true,
	}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	clearEmpty(reflect.ValueOf(cfg).Elem(), "", environment)

	return nil
}

// clearEmpty resets fields whose variable is present but empty. env falls back
// to envDefault for those.
func clearEmpty(v reflect.Value, prefix string, environment map[string]string) {
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !fieldValue.CanSet() && !field.Anonymous {
			continue
		}

		name, _, _ := strings.Cut(field.Tag.Get("env"), ",")
		if name == "" {
			if field.Type.Kind() == reflect.Struct {
				clearEmpty(fieldValue, prefix+field.Tag.Get("envPrefix"), environment)
			}

			continue
		}

		if _, hasDefault := field.Tag.Lookup("envDefault"); !hasDefault || !fieldValue.CanSet() {
			continue
		}

		if value, ok := environment[prefix+name]; ok && value == "" {
			fieldValue.SetZero()
		}
	}
}

// namespacedEnvironment strips the namespace prefixes from environ, letting
// longer prefixes overwrite shorter ones.
func namespacedEnvironment(namespace string, environ []string) map[string]string {
	vars := make(map[string]string, len(environ))

	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	if namespace == "" {
		return vars
	}

	var (
		nsParts = strings.Split(namespace, "_")
		result  = make(map[string]string)
	)

	for i := 1; i <= len(nsParts); i++ {
		prefix := strings.Join(nsParts[:i], "_") + "_"

		for k, v := range vars {
			if name, ok := strings.CutPrefix(k, prefix); ok && name != "" {
				result[name] = v
			}
		}
	}

	return result
}
