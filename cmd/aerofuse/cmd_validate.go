package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/aerofuse/pkg/assembly"
)

// validateCmd checks a script without fusing it.
var validateCmd = &cobra.Command{
	Use:   "validate [script]",
	Short: "Check an aircraft script for structural errors",
	Long: `Evaluates the script and checks the component tree: unique uids,
existing parents, no cycles, usable geometry, symmetry and far field.
Warnings are printed but do not fail the command.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := evaluateScript(args[0], cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	findings := assembly.Validate(m)
	errs := 0
	for _, f := range findings {
		if f.Severity == assembly.SeverityError {
			errs++
		}
		if f.UID != "" {
			if c := m.Lookup(f.UID); c != nil && c.Source.Line > 0 {
				fmt.Fprintf(out, "%s: %s\n", c.Source, f.Error())
				continue
			}
		}
		fmt.Fprintln(out, f.Error())
	}
	logger.Debug("validated model", zap.String("model", m.UID), zap.Int("components", m.Len()), zap.Int("findings", len(findings)))
	if errs > 0 {
		return fmt.Errorf("%s: %d error(s)", m.UID, errs)
	}
	fmt.Fprintf(out, "%s: %d components ok\n", m.UID, m.Len())
	return nil
}
