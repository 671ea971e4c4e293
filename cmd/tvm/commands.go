package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/tinyvm/cache"
	"github.com/chazu/tinyvm/compiler"
	"github.com/chazu/tinyvm/compiler/hash"
	"github.com/chazu/tinyvm/manifest"
	"github.com/chazu/tinyvm/pkg/ast"
	"github.com/chazu/tinyvm/pkg/bytecode"
	"github.com/chazu/tinyvm/pkg/sexpr"
	"github.com/chazu/tinyvm/server"
	"github.com/chazu/tinyvm/vm"
)

func (a *app) flags(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: tvm %s [options] %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errUsage
	}
	return nil
}

// vmOptions are the execution flags shared by run, exec and debug.
type vmOptions struct {
	trace     bool
	dump      bool
	stepLimit int
	prompt    string
	input     string
}

func (a *app) vmFlags(fs *flag.FlagSet) *vmOptions {
	cfg := a.manifest.VM
	o := &vmOptions{}
	fs.BoolVar(&o.trace, "trace", cfg.Trace, "Log every instruction at debug level")
	fs.BoolVar(&o.dump, "dump", false, "Print each instruction and the stack as it executes")
	fs.IntVar(&o.stepLimit, "step-limit", cfg.StepLimit, "Stop after this many instructions (0 for no limit)")
	fs.StringVar(&o.prompt, "prompt", cfg.Prompt, "Prompt written before each read")
	fs.StringVar(&o.input, "input", "", "Read program input from this file instead of stdin")
	return o
}

func (a *app) newVM(prog *bytecode.Program, o *vmOptions) (*vm.VM, func(), error) {
	m := vm.New(prog)
	m.SetOutput(a.stdout)
	m.SetTrace(o.trace)
	m.SetDump(o.dump)
	m.SetStepLimit(o.stepLimit)
	m.SetPrompt(o.prompt)
	m.SetStackCapacity(a.manifest.VM.StackCapacity)

	closeInput := func() {}
	if o.input != "" {
		f, err := os.Open(o.input)
		if err != nil {
			return nil, nil, err
		}
		m.SetInput(f)
		closeInput = func() { f.Close() }
	} else {
		m.SetInput(a.stdin)
	}
	return m, closeInput, nil
}

// sourcePath is the file argument, or the manifest entry when there is none.
func (a *app) sourcePath(fs *flag.FlagSet) string {
	if fs.NArg() == 1 {
		return fs.Arg(0)
	}
	return a.manifest.EntryPath()
}

func isBytecode(path string) bool {
	switch filepath.Ext(path) {
	case ".cod", ".cbor":
		return true
	}
	return false
}

func readSource(path string) (*ast.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := sexpr.Read(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

func readBytecode(path string) (*bytecode.Program, error) {
	if filepath.Ext(path) == ".cbor" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return bytecode.UnmarshalProgram(data)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	prog, err := bytecode.LoadText(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

func writeBytecode(path string, prog *bytecode.Program, format string) error {
	var data []byte
	switch format {
	case manifest.FormatCBOR:
		var err error
		if data, err = bytecode.MarshalProgram(prog); err != nil {
			return err
		}
	case manifest.FormatText:
		data = []byte(prog.Text())
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return os.WriteFile(path, data, 0o644)
}

// compileTree compiles through the program cache when it is enabled. A
// cache that cannot be opened is skipped with a warning.
func (a *app) compileTree(tree *ast.Tree) (*bytecode.Program, error) {
	if a.noCache || !a.manifest.CacheEnabled() {
		return compiler.Compile(tree)
	}
	c, err := cache.Open(a.manifest.CachePath())
	if err != nil {
		log.Warningf("cache disabled: %s", err)
		return compiler.Compile(tree)
	}
	defer c.Close()

	prog, hit, err := c.Compile(tree)
	if err != nil {
		return nil, err
	}
	if hit {
		log.Infof("using cached program")
	}
	return prog, nil
}

// loadProgram reads bytecode files directly and compiles anything else.
func (a *app) loadProgram(path string) (*bytecode.Program, error) {
	if isBytecode(path) {
		return readBytecode(path)
	}
	tree, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return a.compileTree(tree)
}

func (a *app) compileCmd(args []string) error {
	fs := a.flags("compile", "[source]")
	out := fs.String("o", "", "Output file (default from "+manifest.FileName+" or the source name)")
	format := fs.String("format", "", "Output format: text or cbor (default from the output extension)")
	if err := parse(fs, args); err != nil {
		return err
	}

	src := a.sourcePath(fs)
	path := *out
	if path == "" {
		if fs.NArg() == 1 {
			ext := ".cod"
			if *format == manifest.FormatCBOR {
				ext = ".cbor"
			}
			path = strings.TrimSuffix(src, filepath.Ext(src)) + ext
		} else {
			path = a.manifest.BytecodePath()
		}
	}
	if *format == "" {
		switch {
		case filepath.Ext(path) == ".cbor":
			*format = manifest.FormatCBOR
		case *out == "" && fs.NArg() == 0:
			*format = a.manifest.Output.Format
		default:
			*format = manifest.FormatText
		}
	}

	tree, err := readSource(src)
	if err != nil {
		return err
	}
	prog, err := a.compileTree(tree)
	if err != nil {
		return err
	}
	if err := writeBytecode(path, prog, *format); err != nil {
		return err
	}
	log.Infof("wrote %d instructions to %s", prog.Len(), path)
	return nil
}

func (a *app) execute(prog *bytecode.Program, o *vmOptions) error {
	m, closeInput, err := a.newVM(prog, o)
	if err != nil {
		return err
	}
	defer closeInput()
	if err := m.Run(); err != nil {
		return err
	}
	log.Debugf("halted after %d steps", m.Steps())
	return nil
}

func (a *app) runCmd(args []string) error {
	fs := a.flags("run", "[source]")
	o := a.vmFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	prog, err := a.loadProgram(a.sourcePath(fs))
	if err != nil {
		return err
	}
	return a.execute(prog, o)
}

func (a *app) execCmd(args []string) error {
	fs := a.flags("exec", "<bytecode>")
	o := a.vmFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	prog, err := readBytecode(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := prog.Validate(); err != nil {
		return err
	}
	return a.execute(prog, o)
}

func (a *app) disasmCmd(args []string) error {
	fs := a.flags("disasm", "[source|bytecode]")
	if err := parse(fs, args); err != nil {
		return err
	}
	path := a.sourcePath(fs)
	prog, err := a.loadProgram(path)
	if err != nil {
		return err
	}
	fmt.Fprint(a.stdout, prog.DisassembleWithName(filepath.Base(path)))
	return nil
}

func (a *app) astCmd(args []string) error {
	fs := a.flags("ast", "[source]")
	canonical := fs.Bool("canonical", false, "Print the canonical S-expression instead of the node dump")
	decorate := fs.Bool("decorate", false, "Analyze first and show decorations")
	if err := parse(fs, args); err != nil {
		return err
	}
	tree, err := readSource(a.sourcePath(fs))
	if err != nil {
		return err
	}
	if *canonical {
		fmt.Fprintln(a.stdout, sexpr.Format(tree))
		return nil
	}
	if *decorate {
		if err := compiler.Analyze(tree); err != nil {
			return err
		}
	}
	fmt.Fprint(a.stdout, tree.DumpString())
	return nil
}

func (a *app) hashCmd(args []string) error {
	fs := a.flags("hash", "[source]")
	if err := parse(fs, args); err != nil {
		return err
	}
	tree, err := readSource(a.sourcePath(fs))
	if err != nil {
		return err
	}
	key, err := hash.Key(tree)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, key)
	return nil
}

func (a *app) lspCmd(args []string) error {
	fs := a.flags("lsp", "")
	if err := parse(fs, args); err != nil {
		return err
	}
	return server.NewLSP().Run()
}
