// spinc cross-compiles Spin/Spin2 source into Nu bytecode and runs an
// interactive console over the same compiler core.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/bind"
	"github.com/totalspectrum/spinc/internal/debugasm"
	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/lexer"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/nucode"
	"github.com/totalspectrum/spinc/internal/nuir"
	"github.com/totalspectrum/spinc/internal/parser"
	"github.com/totalspectrum/spinc/internal/pipeline"
	"github.com/totalspectrum/spinc/internal/replui"
)

const version = "0.1.0"

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "spinc: failed to start logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	rootCmd := &cobra.Command{
		Use:     "spinc",
		Short:   "Spin/Spin2-to-Nu-bytecode cross-compiler",
		Version: version,
	}

	rootCmd.AddCommand(
		newCompileCmd(logger),
		newReplCmd(),
		newDebugDumpCmd(logger),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newCompileCmd builds the "compile" subcommand: parse, bind, and run a
// source file through internal/pipeline, reporting diagnostics the way the
// teacher's executeFile reports parser/compiler errors, but through zap
// instead of bare fmt.Printf.
func newCompileCmd(logger *zap.Logger) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "compile <file.spin>",
		Short: "Compile a Spin source file to Nu bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID := uuid.New().String()
			log := logger.With(zap.String("build_id", buildID), zap.String("cmd", "compile"))

			path, err := filepath.Abs(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			log.Info("compiling", zap.String("file", path))

			//nolint:gosec // path comes from a trusted CLI argument, not user-facing input
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			mod, bag, result, err := compileSource(string(content), moduleName(path), log)
			if err != nil {
				return err
			}
			if bag.HasErrors() {
				printDiagnostics(bag)
				os.Exit(1)
			}

			log.Info("compiled",
				zap.Int("functions", len(mod.Functions)),
				zap.Int("bytecodes", len(result.Pool.All())))
			if debug {
				for _, fn := range mod.Functions {
					fmt.Printf("%s:\n", fn.Name)
					printList(result.Lists[fn.Name])
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "print compiled Nu IR for every function")
	return cmd
}

// newReplCmd builds the "repl" subcommand: the bubbletea console in
// internal/replui, repointed at a fresh username lookup exactly like the
// teacher's main.go greets "Hello <user>,".
func newReplCmd() *cobra.Command {
	var noColor, debug bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Nu-bytecode console",
		RunE: func(cmd *cobra.Command, args []string) error {
			replui.Start(currentUsername(), replui.Options{NoColor: noColor, Debug: debug})
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable syntax highlighting")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "print timing for each evaluation")
	return cmd
}

// newDebugDumpCmd builds the "debug-dump" subcommand: compile a source
// file's DEBUG() call sites and patch them, plus the clock/delay/cogs
// parameters, into the fixed BRK debugger prologue (spec.md §6).
func newDebugDumpCmd(logger *zap.Logger) *cobra.Command {
	var clkFreq, clkMode, debugDelay, appSize uint32
	var debugCogs uint8
	var out string

	cmd := &cobra.Command{
		Use:   "debug-dump <file.spin>",
		Short: "Compile DEBUG() call sites into a debugger data blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID := uuid.New().String()
			log := logger.With(zap.String("build_id", buildID), zap.String("cmd", "debug-dump"))

			path, err := filepath.Abs(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			//nolint:gosec // path comes from a trusted CLI argument, not user-facing input
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			mod, bag, _, err := compileSource(string(content), moduleName(path), log)
			if err != nil {
				return err
			}
			if bag.HasErrors() {
				printDiagnostics(bag)
				os.Exit(1)
			}

			dc := debugasm.NewCompiler()
			for _, fn := range mod.Functions {
				ctx := debugEvalContext(fn)
				ast.Walk(fn.Body, func(n *ast.Node) bool {
					if n.Kind == ast.BRKDEBUG {
						dc.CodeGen(n, ctx, bag)
					}
					return true
				})
			}
			if bag.HasErrors() {
				printDiagnostics(bag)
				os.Exit(1)
			}

			params := debugasm.Params{
				ClkFreq:    clkFreq,
				ClkMode:    clkMode,
				DebugDelay: debugDelay,
				DebugCogs:  debugCogs,
				AppSize:    appSize,
			}
			blob, err := debugasm.CompileTable(nucode.DefaultPrologue, dc.Sites(), params)
			if err != nil {
				return fmt.Errorf("compiling debug table: %w", err)
			}

			log.Info("debug table compiled", zap.Int("sites", len(dc.Sites())), zap.Int("bytes", len(blob)))
			if out == "" {
				out = moduleName(path) + ".dbg"
			}
			if err := os.WriteFile(out, blob, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Printf("wrote %s (%d bytes, %d DEBUG sites)\n", out, len(blob), len(dc.Sites()))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&clkFreq, "clk-freq", 160_000_000, "system clock frequency in Hz")
	cmd.Flags().Uint32Var(&clkMode, "clk-mode", 0, "CLKMODE register value")
	cmd.Flags().Uint32Var(&debugDelay, "debug-delay", 0, "debugger startup delay in milliseconds")
	cmd.Flags().Var(uint8Flag{&debugCogs}, "debug-cogs", "DEBUG_COGS enable mask")
	cmd.Flags().Uint32Var(&appSize, "app-size", 0, "compiled application size in bytes")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file path (default: <file>.dbg)")
	return cmd
}

// compileSource runs one source file through the lexer/parser/binder/
// pipeline sequence shared by the compile and debug-dump subcommands,
// logging one line per phase per spec.md §7's structured-logging
// expansion.
func compileSource(src, className string, log *zap.Logger) (*module.Module, *diag.Bag, *pipeline.Result, error) {
	l := lexer.New(src)
	p := parser.New(l)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		for _, e := range errs {
			log.Warn("parse error", zap.String("msg", e))
		}
		return nil, nil, nil, fmt.Errorf("%d parse error(s)", len(errs))
	}
	log.Debug("parsed", zap.Int("declarations", len(prog.Extra)))

	mod := module.NewModule(className)
	if _, err := bind.Program(mod, prog.Extra); err != nil {
		return nil, nil, nil, fmt.Errorf("binding: %w", err)
	}
	log.Debug("bound", zap.Int("functions", len(mod.Functions)))

	bag := &diag.Bag{}
	result, err := pipeline.Compile(mod, bag)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("compiling: %w", err)
	}
	return mod, bag, result, nil
}

func printDiagnostics(bag *diag.Bag) {
	for _, d := range bag.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
}

func printList(list *nuir.List) {
	if list == nil {
		fmt.Println("  (no instructions)")
		return
	}
	fmt.Println(list.String())
}

// debugEvalContext resolves DEBUG() call-site arguments against fn's own
// local scope, the same scope internal/nuir.Gen evaluates the rest of fn's
// body against.
func debugEvalContext(fn *module.Function) *eval.Context {
	return eval.NewContext(fn.LocalSyms, fn.LocalRoot)
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func currentUsername() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

// uint8Flag adapts a *uint8 to pflag.Value, since pflag has no Uint8Var.
type uint8Flag struct{ v *uint8 }

func (f uint8Flag) String() string { return fmt.Sprintf("%d", *f.v) }
func (f uint8Flag) Type() string   { return "uint8" }
func (f uint8Flag) Set(s string) error {
	var n uint32
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return err
	}
	if n > 255 {
		return fmt.Errorf("value %d out of range for uint8", n)
	}
	*f.v = uint8(n)
	return nil
}
