package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dbxmcp/dbxmcp/types"
)

type Factory func() Tool

type Bundle struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tools       []string `json:"tools"`
}

var (
	regMu         sync.RWMutex
	toolFactories = map[string]Factory{}
	bundles       = map[string]Bundle{}
)

func RegisterTool(name string, factory Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if factory == nil {
		return fmt.Errorf("tool factory is required")
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := toolFactories[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	toolFactories[name] = factory
	return nil
}

func MustRegisterTool(name string, factory Factory) {
	if err := RegisterTool(name, factory); err != nil {
		panic(err)
	}
}

func RegisterBundle(name, description string, toolNames []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("bundle name is required")
	}
	cleaned := make([]string, 0, len(toolNames))
	for _, t := range toolNames {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		cleaned = append(cleaned, t)
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("bundle %q has no tools", name)
	}

	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := bundles[name]; exists {
		return fmt.Errorf("bundle %q already registered", name)
	}
	bundles[name] = Bundle{Name: name, Description: strings.TrimSpace(description), Tools: cleaned}
	return nil
}

func MustRegisterBundle(name, description string, toolNames []string) {
	if err := RegisterBundle(name, description, toolNames); err != nil {
		panic(err)
	}
}

func ToolNames() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(toolFactories))
	for n := range toolFactories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func BundleNames() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(bundles))
	for n := range bundles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Definitions returns the full catalog, sorted by name, restricted to the
// given selection ("*" or empty selects everything; "@name" expands a bundle).
func Definitions(selection []string) ([]types.ToolDefinition, error) {
	if len(selection) == 0 {
		selection = []string{"*"}
	}
	names, err := expandSelection(selection)
	if err != nil {
		return nil, err
	}

	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]types.ToolDefinition, 0, len(names))
	for _, name := range names {
		factory, ok := toolFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		t := factory()
		if t == nil {
			return nil, fmt.Errorf("tool %q factory returned nil", name)
		}
		out = append(out, t.Definition())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func expandSelection(selection []string) ([]string, error) {
	regMu.RLock()
	defer regMu.RUnlock()

	ordered := make([]string, 0, len(selection))
	seen := map[string]bool{}

	appendName := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		ordered = append(ordered, name)
	}

	for _, raw := range selection {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "@") {
			bundleName := strings.TrimPrefix(entry, "@")
			bundle, ok := bundles[bundleName]
			if !ok {
				return nil, fmt.Errorf("unknown tool bundle %q", bundleName)
			}
			for _, n := range bundle.Tools {
				appendName(n)
			}
			continue
		}
		if entry == "*" {
			all := make([]string, 0, len(toolFactories))
			for n := range toolFactories {
				all = append(all, n)
			}
			sort.Strings(all)
			for _, n := range all {
				appendName(n)
			}
			continue
		}
		appendName(entry)
	}

	return ordered, nil
}

// ExecuteTool validates the input against the tool's schema, then runs it.
// Validation failures never reach the remote API.
func ExecuteTool(ctx context.Context, name string, input json.RawMessage) (any, error) {
	regMu.RLock()
	factory, ok := toolFactories[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	t := factory()
	if t == nil {
		return nil, fmt.Errorf("tool %q factory returned nil", name)
	}

	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	if schema := t.Definition().InputSchema; schema != nil {
		if err := validateInput(schema, input); err != nil {
			return nil, err
		}
	}
	return t.Execute(ctx, input)
}

func validateInput(schema map[string]any, input json.RawMessage) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(input),
	)
	if err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid tool arguments: %s", strings.Join(msgs, "; "))
}
