// Package manifest handles tinyvm.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "tinyvm.toml"

// Output formats for compiled programs.
const (
	FormatText = "text"
	FormatCBOR = "cbor"
)

// Manifest represents a tinyvm.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Source  Source       `toml:"source"`
	VM      VMConfig     `toml:"vm"`
	Cache   CacheConfig  `toml:"cache"`
	Output  OutputConfig `toml:"output"`

	// Dir is the directory containing the tinyvm.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Source configures the program source.
type Source struct {
	Entry string `toml:"entry"`
}

// VMConfig configures program execution.
type VMConfig struct {
	Trace         bool   `toml:"trace"`
	StepLimit     int    `toml:"step-limit"`
	Prompt        string `toml:"prompt"`
	StackCapacity int    `toml:"stack-capacity"`
}

// CacheConfig configures the compiled program cache.
type CacheConfig struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

// OutputConfig configures compile output.
type OutputConfig struct {
	Bytecode string `toml:"bytecode"`
	Format   string `toml:"format"`
}

// Default returns the configuration used when there is no manifest.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Source.Entry == "" {
		m.Source.Entry = "main.sexp"
	}
	if m.VM.StackCapacity == 0 {
		m.VM.StackCapacity = 256
	}
	if m.Cache.Enabled == nil {
		enabled := true
		m.Cache.Enabled = &enabled
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".tinyvm", "cache.db")
	}
	if m.Output.Format == "" {
		m.Output.Format = FormatText
	}
	if m.Output.Bytecode == "" {
		base := strings.TrimSuffix(filepath.Base(m.Source.Entry), filepath.Ext(m.Source.Entry))
		ext := ".cod"
		if m.Output.Format == FormatCBOR {
			ext = ".cbor"
		}
		m.Output.Bytecode = base + ext
	}
}

func (m *Manifest) validate() error {
	if m.VM.StepLimit < 0 {
		return fmt.Errorf("vm.step-limit must not be negative, got %d", m.VM.StepLimit)
	}
	if m.VM.StackCapacity < 0 {
		return fmt.Errorf("vm.stack-capacity must not be negative, got %d", m.VM.StackCapacity)
	}
	switch m.Output.Format {
	case FormatText, FormatCBOR:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatText, FormatCBOR, m.Output.Format)
	}
	return nil
}

// Load parses a tinyvm.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a tinyvm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CacheEnabled reports whether the compiled program cache is on.
func (m *Manifest) CacheEnabled() bool {
	return m.Cache.Enabled == nil || *m.Cache.Enabled
}

// EntryPath returns the absolute path of the entry source file.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Source.Entry)
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

// BytecodePath returns the absolute path of the compile output.
func (m *Manifest) BytecodePath() string {
	return m.resolve(m.Output.Bytecode)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
