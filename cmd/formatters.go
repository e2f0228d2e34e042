package cmd

import (
	"fmt"
	"io"
	"strings"

	"conduit/core"
	"conduit/generator"
)

// renderSummary displays the outcome of a generation run
func renderSummary(w io.Writer, summary *generator.Summary, dryRun bool) {
	fmt.Fprintln(w)
	printSection(w, "Generation summary")
	printField(w, "Integrations", fmt.Sprint(summary.Integrations))
	printField(w, "Collections", fmt.Sprint(summary.Collections))
	printField(w, "Action templates", fmt.Sprint(summary.Actions))
	printField(w, "Flow templates", fmt.Sprint(summary.Flows))
	printField(w, "Files written", fmt.Sprint(len(summary.Files)))
	if !dryRun {
		printField(w, "Created", fmt.Sprint(summary.Created))
		printField(w, "Patched", fmt.Sprint(summary.Patched))
		printField(w, "Failed", fmt.Sprint(summary.Failed))
	}
	fmt.Fprintln(w)

	switch {
	case summary.Failed > 0:
		errorColor.Fprintf(w, "✗ %d templates failed, see the log for details\n", summary.Failed)
	case dryRun:
		successColor.Fprintln(w, "✓ Templates written")
	default:
		successColor.Fprintln(w, "✓ Templates published")
	}
}

// renderIntegrationsTable displays integrations in a formatted table
func renderIntegrationsTable(w io.Writer, integrations []core.Integration) {
	if len(integrations) == 0 {
		warningColor.Fprintln(w, "No integrations available")
		return
	}

	headerColor.Fprintln(w, "INTEGRATIONS")
	headerColor.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%-30s %-35s %-10s\n", "Key", "Name", "Connected")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, integration := range integrations {
		connected := "No"
		if integration.Connected() {
			connected = "Yes"
		}
		fmt.Fprintf(w, "%-30s %-35s %-10s\n", truncate(integration.Key, 29), truncate(integration.Name, 34), connected)
	}

	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// renderCollectionsTable displays the data collections of an integration
func renderCollectionsTable(w io.Writer, integrationKey string, collections []core.DataCollection) {
	if len(collections) == 0 {
		warningColor.Fprintf(w, "No data collections for %s\n", integrationKey)
		return
	}

	headerColor.Fprintf(w, "DATA COLLECTIONS (%s)\n", integrationKey)
	headerColor.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "%-30s %-38s\n", "Key", "Name")
	fmt.Fprintln(w, strings.Repeat("-", 70))

	for _, c := range collections {
		fmt.Fprintf(w, "%-30s %-38s\n", truncate(c.Key, 29), truncate(c.Name, 37))
	}

	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// printSection prints a section header
func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "  %s\n", title)
	headerColor.Fprintln(w, "  "+strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-25s %s\n", key+":", value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
