package policy

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// builtin policies, loaded when [policy] builtin is on
var builtinPolicies = []struct {
	name    string
	content string
}{
	{
		name: "event_source",
		content: `package cloudctl.event_source

import rego.v1

has_source if {
	some k
	input.cloud.eventSource[k] != ""
}

deny contains {"field": "eventSource", "msg": "Event source is required when event processing is enabled."} if {
	input.cloud.eventProcessEnabled
	not has_source
}`,
	},
	{
		name: "proxy_scheme",
		content: `package cloudctl.proxy_scheme

import rego.v1

deny contains {"field": "proxyUrl", "msg": "Proxy URL must use http or https."} if {
	input.cloud.proxyUrl
	not startswith(input.cloud.proxyUrl, "http://")
	not startswith(input.cloud.proxyUrl, "https://")
}`,
	},
}

// LoadBuiltin loads the policies that ship with cloudctl
func (e *Engine) LoadBuiltin(ctx context.Context) error {
	for _, p := range builtinPolicies {
		if err := e.LoadPolicy(ctx, p.name, p.content); err != nil {
			return fmt.Errorf("failed to load builtin policy %s: %w", p.name, err)
		}
	}
	return nil
}

// LoadDir loads every .rego file under dir. The policy name is the file
// name without extension.
func (e *Engine) LoadDir(ctx context.Context, dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("policy directory: %w", err)
	}

	loaded := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".rego") {
			return nil
		}
		if err := validateFilePath(dir, path); err != nil {
			return fmt.Errorf("invalid file path %s: %w", path, err)
		}

		content, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("failed to read policy file %s: %w", path, err)
		}

		name := strings.TrimSuffix(filepath.Base(path), ".rego")
		if err := e.LoadPolicy(ctx, name, string(content)); err != nil {
			return err
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, err
	}

	e.logger.WithContext(ctx).Info().
		Str("dir", dir).
		Int("count", loaded).
		Msg("loaded policy directory")

	return loaded, nil
}

func validateFilePath(root, path string) error {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected")
	}
	return nil
}
