package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/khanhnv2901/seca-snapshot/internal/checker"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run a single probe and print its facts as JSON",
}

var probeCertCmd = &cobra.Command{
	Use:   "cert <target>",
	Short: "Read the TLS leaf certificate of a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := checker.ResolveTarget(args[0])
		if err != nil {
			return err
		}
		inspector, _ := newProbes(cliConfig.Probe)
		facts, err := inspector.Inspect(commandContext(cmd), target)
		if err != nil {
			return err
		}
		return printJSON(cmd, facts)
	},
}

var probeHeadersCmd = &cobra.Command{
	Use:   "headers <target>",
	Short: "Read the security headers a target's origin returns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := checker.ResolveTarget(args[0])
		if err != nil {
			return err
		}
		_, auditor := newProbes(cliConfig.Probe)
		facts, err := auditor.Audit(commandContext(cmd), target)
		if err != nil {
			return err
		}
		return printJSON(cmd, struct {
			Headers *checker.HeaderFacts `json:"headers"`
		}{Headers: facts})
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, jsonPrefix, jsonIndent)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func init() {
	probeCmd.AddCommand(probeCertCmd)
	probeCmd.AddCommand(probeHeadersCmd)
}
