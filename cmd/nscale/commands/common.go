package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/nscale/internal/config"
	"git.home.luguber.info/inful/nscale/internal/observability"
)

// Global carries process-wide state shared by subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"${config_path}" env:"NSCALE_CONFIG" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format" enum:"text,json" default:"text" env:"NSCALE_LOG_FORMAT"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Sync       SyncCmd    `cmd:"" help:"Clone or update every container repository and record its commit"`
	Status     StatusCmd  `cmd:"" help:"Show recorded commits and workspace state per container"`
	Clean      CleanCmd   `cmd:"" help:"Remove workspace entries"`
	Init       InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := observability.ParseLevel(os.Getenv("NSCALE_LOG_LEVEL"))
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = observability.NewLogger(os.Stderr, level, c.LogFormat)
	slog.SetDefault(g.Logger)
	if g.Out == nil {
		g.Out = os.Stdout
	}
	return nil
}

// loadConfig reads the configuration named by --config. A missing file yields defaults.
func loadConfig(root *CLI) (*config.Config, error) {
	path := root.Config
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// projectDir resolves the positional project argument to an absolute path.
func projectDir(arg string) (string, error) {
	if arg == "" {
		arg = "."
	}
	return filepath.Abs(arg)
}

// ProjectPaths resolves the descriptor and workspace root for a project directory.
// Explicit flag values win over the configuration file.
func ProjectPaths(cfg *config.Config, project, descriptorFlag, workspaceFlag string) (descPath, wsRoot string, err error) {
	dir, err := projectDir(project)
	if err != nil {
		return "", "", err
	}
	descPath = cfg.DescriptorPath(dir)
	if descriptorFlag != "" {
		descPath = descriptorFlag
	}
	wsRoot = cfg.WorkspaceRoot(dir)
	if workspaceFlag != "" {
		wsRoot = workspaceFlag
	}
	return descPath, wsRoot, nil
}
