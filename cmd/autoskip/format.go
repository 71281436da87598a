package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"autoskip/internal/runner"
	"autoskip/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatHuman OutputFormat = "human"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	// FormatList prints only the paths of the test modules that must run
	FormatList OutputFormat = "list"
)

// HistoryResponseCLI is the CLI response for `autoskip history`
type HistoryResponseCLI struct {
	Sessions []storage.SessionRecord `json:"sessions" yaml:"sessions"`
	Pruned   int64                   `json:"pruned,omitempty" yaml:"pruned,omitempty"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	case FormatList:
		return formatList(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatYAML formats the response as YAML
func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// formatList prints the paths to run, one per line, for CI scripts
func formatList(resp interface{}) (string, error) {
	plan, ok := resp.(*runner.Plan)
	if !ok {
		return "", fmt.Errorf("unsupported format: %s", FormatList)
	}
	var b strings.Builder
	for _, t := range plan.Tests {
		if t.Run {
			b.WriteString(t.Path + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *runner.Plan:
		return formatPlanHuman(v), nil
	case *runner.Explanation:
		return formatExplanationHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	case *storage.SessionRecord:
		return formatSessionHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// describe renders a run reason with its trigger
func describe(reason, trigger string) string {
	if trigger == "" {
		return reason
	}
	return reason + ": " + trigger
}

func formatPlanHuman(plan *runner.Plan) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("autoskip plan against %s (safe mode: %s)\n", plan.Base, onOff(plan.SafeMode)))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString(fmt.Sprintf("Session: %s\n", plan.SessionID))
	if plan.Enabled {
		b.WriteString(fmt.Sprintf("Changed files: %d\n\n", plan.ChangedFiles))
	} else {
		b.WriteString(fmt.Sprintf("Skipping disabled: %s\n", plan.DisabledReason))
		b.WriteString("Every test module runs.\n\n")
	}

	for _, t := range plan.Tests {
		if !t.Run {
			b.WriteString(fmt.Sprintf("  SKIP  %s\n", t.Path))
			continue
		}
		if t.Reason == "" {
			b.WriteString(fmt.Sprintf("  RUN   %s\n", t.Path))
			continue
		}
		b.WriteString(fmt.Sprintf("  RUN   %s (%s)\n", t.Path, describe(string(t.Reason), t.Trigger)))
	}

	b.WriteString(fmt.Sprintf("\n%d test modules: %d to run, %d skipped\n",
		plan.Summary.Total, plan.Summary.Run, plan.Summary.Skipped))

	if s := plan.Stats; s != nil {
		b.WriteString(fmt.Sprintf("Graph: %d names, %d resolved, %d files parsed, %d cache hits\n",
			s.GraphNodes, s.Resolutions, s.Extractions, s.CacheHits))
	}
	return b.String()
}

func formatExplanationHuman(exp *runner.Explanation) string {
	var b strings.Builder

	b.WriteString(exp.Module)
	if exp.Path != "" {
		b.WriteString(fmt.Sprintf(" (%s)", exp.Path))
	}
	b.WriteString("\n" + strings.Repeat("=", 60) + "\n")

	switch {
	case !exp.Enabled:
		b.WriteString(fmt.Sprintf("Decision: run (skipping disabled: %s)\n", exp.DisabledReason))
		return b.String()
	case !exp.Run:
		b.WriteString(fmt.Sprintf("Decision: skip (no changes in import closure since %s)\n", exp.Base))
		writeImports(&b, exp.Imports)
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Decision: run (%s)\n", exp.Reason))
	trigger := exp.Trigger
	if exp.TriggerPath != "" {
		trigger += " (" + exp.TriggerPath + ")"
	}
	b.WriteString(fmt.Sprintf("Trigger: %s\n", trigger))

	if len(exp.Chain) > 1 {
		b.WriteString("Import chain:\n")
		for i, name := range exp.Chain {
			if i == 0 {
				b.WriteString(fmt.Sprintf("  %s\n", name))
			} else {
				b.WriteString(fmt.Sprintf("  -> %s\n", name))
			}
		}
	}
	writeImports(&b, exp.Imports)
	return b.String()
}

func writeImports(b *strings.Builder, imports []string) {
	if len(imports) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("Direct imports: %s\n", strings.Join(imports, ", ")))
}

func formatHistoryHuman(resp *HistoryResponseCLI) string {
	var b strings.Builder

	b.WriteString("Recorded Sessions\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if len(resp.Sessions) == 0 {
		b.WriteString("No sessions recorded. Use --record or history.enabled.\n")
	}
	for _, s := range resp.Sessions {
		state := fmt.Sprintf("%d/%d run", s.Run, s.Total)
		if !s.Enabled {
			state += ", skipping disabled"
		}
		b.WriteString(fmt.Sprintf("%s  %s  %s  %s\n",
			s.ID, s.StartedAt.Local().Format(time.DateTime), s.BaseRef, state))
	}
	if resp.Pruned > 0 {
		b.WriteString(fmt.Sprintf("\nPruned %d older sessions\n", resp.Pruned))
	}
	return b.String()
}

func formatSessionHuman(s *storage.SessionRecord) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Session %s\n", s.ID))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString(fmt.Sprintf("Started: %s\n", s.StartedAt.Local().Format(time.DateTime)))
	b.WriteString(fmt.Sprintf("Base: %s (safe mode: %s)\n", s.BaseRef, onOff(s.SafeMode)))
	if !s.Enabled {
		b.WriteString(fmt.Sprintf("Skipping disabled: %s\n", s.DisabledReason))
	}
	b.WriteString(fmt.Sprintf("%d test modules: %d run, %d skipped\n\n", s.Total, s.Run, s.Skipped))

	for _, d := range s.Decisions {
		if d.Run {
			b.WriteString(fmt.Sprintf("  RUN   %s", d.Path))
			if d.Reason != "" {
				b.WriteString(fmt.Sprintf(" (%s)", describe(d.Reason, d.Trigger)))
			}
			b.WriteString("\n")
		} else {
			b.WriteString(fmt.Sprintf("  SKIP  %s\n", d.Path))
		}
	}
	return b.String()
}
