// tvm - compiles and runs tinyvm programs
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/tinyvm/manifest"
)

var log = commonlog.GetLogger("tinyvm.cli")

// errUsage reports a bad command line; the message has already been printed.
var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands = []command{
	{"compile", "compile a source file to bytecode", (*app).compileCmd},
	{"run", "compile and execute a source file", (*app).runCmd},
	{"exec", "execute a bytecode file", (*app).execCmd},
	{"disasm", "print an annotated listing", (*app).disasmCmd},
	{"ast", "print the syntax tree of a source file", (*app).astCmd},
	{"hash", "print the content hash of a source file", (*app).hashCmd},
	{"debug", "step through a program interactively", (*app).debugCmd},
	{"lsp", "serve the language server protocol on stdio", (*app).lspCmd},
}

// app carries the state shared by subcommands.
type app struct {
	manifest *manifest.Manifest
	noCache  bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// counter is a flag that counts its occurrences (-v -v).
type counter int

func (c *counter) String() string { return strconv.Itoa(int(*c)) }

func (c *counter) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		*c++
	}
	return nil
}

func (c *counter) IsBoolFlag() bool { return true }

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the exit, returning the process status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tvm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("C", ".", "Project directory (searched upward for "+manifest.FileName+")")
	noCache := fs.Bool("no-cache", false, "Do not read or write the compiled program cache")
	var verbosity counter
	fs.Var(&verbosity, "v", "Verbose logging (repeat for more)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tvm [options] <command> [arguments]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-8s %s\n", c.name, c.summary)
		}
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  tvm run fact.sexp              # compile and run\n")
		fmt.Fprintf(stderr, "  tvm compile -o fact.cbor fact.sexp\n")
		fmt.Fprintf(stderr, "  tvm exec fact.cod              # run saved bytecode\n")
		fmt.Fprintf(stderr, "  tvm debug -b fact fact.sexp    # break in fact\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	commonlog.Configure(int(verbosity), nil)

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if m == nil {
		m = manifest.Default(*dir)
	} else {
		log.Infof("using %s", m.Dir)
	}

	a := &app{manifest: m, noCache: *noCache, stdin: stdin, stdout: stdout, stderr: stderr}

	name := fs.Arg(0)
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(a, fs.Args()[1:]); err != nil {
			if errors.Is(err, errUsage) {
				return 2
			}
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "Unknown command %q\n", name)
	fs.Usage()
	return 2
}
