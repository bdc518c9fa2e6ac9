// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/deckport/deckport/internal/render"
	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List registered render providers",
		Long:  "Show every registered provider with its declared capabilities. With --probe, each provider is also probed for liveness.",
		RunE:  runProviders,
	}

	cmd.Flags().Bool("probe", false, "probe each provider for liveness")

	return cmd
}

func runProviders(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	probe, _ := cmd.Flags().GetBool("probe")

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if probe {
		fmt.Fprintln(w, "NAME\tSOURCE\tVENDOR\tOUTPUTS\tPLATFORMS\tHEALTHY")
	} else {
		fmt.Fprintln(w, "NAME\tSOURCE\tVENDOR\tOUTPUTS\tPLATFORMS")
	}

	for _, entry := range a.registry.Entries() {
		provider, err := entry.Factory(a.cfg)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t(constructor failed: %v)\n", entry.Name, entry.Source, err)
			continue
		}
		caps := provider.Capabilities().Normalize()

		row := []string{
			entry.Name,
			entry.Source,
			orDash(caps.Vendor),
			orDash(joinOutputs(caps.Outputs)),
			orDash(strings.Join(caps.Platforms, ",")),
		}
		if probe {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ProbeTimeout)
			healthy := provider.Probe(ctx)
			cancel()
			row = append(row, fmt.Sprintf("%t", healthy))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

func joinOutputs(outputs []render.OutputKind) string {
	parts := make([]string, len(outputs))
	for i, o := range outputs {
		parts[i] = string(o)
	}
	return strings.Join(parts, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
