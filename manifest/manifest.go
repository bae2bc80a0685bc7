// Package manifest handles curvy.toml configuration.
package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/curtisbucher/curvy/compiler"
	"github.com/curtisbucher/curvy/vm"
	"github.com/tliron/commonlog"

	// Registers the default commonlog backend.
	_ "github.com/tliron/commonlog/simple"
)

// FileName is the name of the configuration file.
const FileName = "curvy.toml"

// Manifest represents a curvy.toml configuration.
type Manifest struct {
	Compiler CompilerConfig `toml:"compiler"`
	VM       VMConfig       `toml:"vm"`
	Log      LogConfig      `toml:"log"`

	// Dir is the directory containing the curvy.toml file (set at load time).
	Dir string `toml:"-"`
}

// CompilerConfig configures compilation.
type CompilerConfig struct {
	Optimize bool `toml:"optimize"`
}

// VMConfig configures the virtual machine.
type VMConfig struct {
	Trace     bool `toml:"trace"`
	StackHint int  `toml:"stack-hint"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no curvy.toml exists.
func Default() *Manifest {
	return &Manifest{
		Compiler: CompilerConfig{Optimize: true},
		VM:       VMConfig{StackHint: 64},
	}
}

// Parse decodes curvy.toml content. Keys left out keep their defaults;
// unknown keys are an error.
func Parse(data []byte) (*Manifest, error) {
	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if m.VM.StackHint < 0 {
		return nil, fmt.Errorf("vm.stack-hint must not be negative, got %d", m.VM.StackHint)
	}
	return m, nil
}

// Load parses a curvy.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a curvy.toml file,
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

// CompileOptions returns the compiler options this manifest selects.
func (m *Manifest) CompileOptions() compiler.Options {
	return compiler.Options{Optimize: m.Compiler.Optimize}
}

// VMOptions returns VM options writing to out with the default builtins.
func (m *Manifest) VMOptions(out io.Writer) vm.Options {
	return vm.Options{
		Output:    out,
		Builtins:  vm.DefaultBuiltins(out),
		Trace:     m.VM.Trace,
		StackHint: m.VM.StackHint,
	}
}

// LogFilePath resolves the configured log file against Dir. It returns ""
// when logging goes to stderr.
func (m *Manifest) LogFilePath() string {
	if m.Log.File == "" {
		return ""
	}
	if filepath.IsAbs(m.Log.File) || m.Dir == "" {
		return m.Log.File
	}
	return filepath.Join(m.Dir, m.Log.File)
}

// ConfigureLogging applies the [log] section to commonlog.
func (m *Manifest) ConfigureLogging() {
	ConfigureLogging(m.Log.Verbosity, m.LogFilePath())
}

// ConfigureLogging sets the commonlog verbosity and, when path is not
// empty, redirects log output to that file.
func ConfigureLogging(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}
