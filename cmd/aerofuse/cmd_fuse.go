package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/aerofuse/pkg/assembly"
	"github.com/chazu/aerofuse/pkg/boolops"
	"github.com/chazu/aerofuse/pkg/config"
	"github.com/chazu/aerofuse/pkg/engine"
	"github.com/chazu/aerofuse/pkg/export"
	"github.com/chazu/aerofuse/pkg/fuseplane"
	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/kernel/polyhedral"
	"github.com/chazu/aerofuse/pkg/named"
)

var (
	fuseMode    string
	fuseSTL     string
	fuseDXF     string
	fuseJSON    string
	fuseDumpDir string
)

// fuseCmd fuses the aircraft described by a script.
var fuseCmd = &cobra.Command{
	Use:   "fuse [script]",
	Short: "Fuse the components of an aircraft script",
	Long: `Evaluates the script, validates the component tree and fuses it.

Result modes:
  half-plane              components as authored
  full-plane              symmetric components merged with their mirror
  half-plane-trimmed-ff   half plane cut by the far field
  full-plane-trimmed-ff   full plane cut by the far field

Example:
  aerofuse fuse d150.lisp --mode full-plane --stl d150.stl --dxf d150.dxf`,
	Args: cobra.ExactArgs(1),
	RunE: runFuse,
}

func init() {
	fuseCmd.Flags().StringVarP(&fuseMode, "mode", "m", "", "Result mode (overrides config)")
	fuseCmd.Flags().StringVar(&fuseSTL, "stl", "", "Write the fused solid as STL")
	fuseCmd.Flags().StringVar(&fuseDXF, "dxf", "", "Write face outlines and intersections as DXF")
	fuseCmd.Flags().StringVar(&fuseJSON, "json", "", "Write a JSON scene with one mesh per component")
	fuseCmd.Flags().StringVar(&fuseDumpDir, "dump-dir", "", "Write every intermediate shape as DXF into this directory")
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = fuseMode
	}
	if flags.Changed("stl") {
		cfg.Output.STL = fuseSTL
	}
	if flags.Changed("dxf") {
		cfg.Output.DXF = fuseDXF
	}
	if flags.Changed("json") {
		cfg.Output.JSON = fuseJSON
	}
	if flags.Changed("dump-dir") {
		cfg.DumpDir = fuseDumpDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// evaluateScript runs the script and reports script errors on w.
func evaluateScript(path string, cfg *config.Config, w io.Writer) (*assembly.Model, error) {
	eng := engine.NewEngine()
	eng.SetTimeout(cfg.GetEvalTimeout())
	m, evalErrs, err := eng.EvaluateFile(path)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(w, "%s: %s\n", filepath.Base(path), e.Error())
		}
		return nil, fmt.Errorf("script %s has %d error(s)", path, len(evalErrs))
	}
	return m, nil
}

// dumpHook writes each intermediate shape to dir as a numbered DXF file.
func dumpHook(dir string, k kernel.Kernel, log *zap.Logger) func(string, kernel.Shape) {
	var n atomic.Int64
	return func(label string, s kernel.Shape) {
		name := fmt.Sprintf("%03d_%s.dxf", n.Add(1), sanitize(label))
		path := filepath.Join(dir, name)
		if err := export.WriteShapeDXF(path, label, s, k); err != nil {
			log.Warn("dump failed", zap.String("label", label), zap.Error(err))
			return
		}
		log.Debug("dumped shape", zap.String("label", label), zap.String("path", path))
	}
}

// sanitize keeps a label usable as a file name.
func sanitize(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, label)
}

func runFuse(cmd *cobra.Command, args []string) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := evaluateScript(args[0], cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	for _, w := range assembly.Validate(m) {
		if w.Severity == assembly.SeverityWarning {
			logger.Warn("model warning", zap.String("component", w.UID), zap.String("message", w.Message))
		}
	}

	reg := named.NewRegistry(polyhedral.New(), cfg.Tolerance)
	asm, err := assembly.Build(reg, m)
	if err != nil {
		return err
	}

	bctx := boolops.NewContext(reg, logger)
	cfg.Apply(bctx)
	if cfg.DumpDir != "" {
		if err := os.MkdirAll(cfg.DumpDir, 0755); err != nil {
			return fmt.Errorf("dump dir: %w", err)
		}
		bctx.Dump = dumpHook(cfg.DumpDir, reg.Kernel(), logger)
	}

	plane := fuseplane.New(bctx, asm)
	plane.SetResultMode(cfg.ResultMode())
	fused, err := plane.FusedPlane()
	if err != nil {
		return err
	}
	if fused.IsNull() {
		fmt.Fprintln(out, "nothing to fuse")
		return nil
	}
	res := export.Result{Shape: fused}
	if res.Intersections, err = plane.Intersections(); err != nil {
		return err
	}
	if res.FarField, err = plane.FarField(); err != nil {
		return err
	}
	if res.Trimmed, err = plane.TrimmedComponents(); err != nil {
		return err
	}

	printSummary(out, reg.Kernel(), cfg.ResultMode(), res)

	jobs := cfg.Jobs()
	if len(jobs) == 0 {
		logger.Info("no outputs configured")
		return nil
	}
	return export.WriteAll(ctx, jobs, res, reg.Kernel(), logger)
}

// printSummary reports faces per component, the intersection curves, the
// far field remainder and the trimmed parts.
func printSummary(w io.Writer, k kernel.Kernel, mode fuseplane.ResultMode, r export.Result) {
	fused := r.Shape
	counts := make(map[string]int)
	for _, n := range fused.FaceNames() {
		counts[n]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "%s (%s): %d faces, volume %.6g\n", fused.Name(), mode, fused.FaceCount(), k.Volume(fused.Shape()))
	for _, n := range names {
		fmt.Fprintf(w, "  %-24s %4d faces\n", n, counts[n])
	}
	for _, c := range r.Intersections {
		fmt.Fprintf(w, "  %-6s %-24s %4d edges\n", c.ShortName(), c.Name(), len(k.Edges(c.Shape())))
	}
	if !r.FarField.IsNull() {
		fmt.Fprintf(w, "  %-31s %4d faces\n", export.FarFieldLayer, r.FarField.FaceCount())
	}
	if len(r.Trimmed) > 0 {
		fmt.Fprintf(w, "  trimmed parts: %d\n", len(r.Trimmed))
		for i, part := range r.Trimmed {
			fmt.Fprintf(w, "    %-29s %4d faces\n", export.TrimmedLayer(i, part), part.FaceCount())
		}
	}
}
