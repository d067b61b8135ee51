package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/unitexe/skopos/internal/archive"
	"github.com/unitexe/skopos/internal/config"
	"github.com/unitexe/skopos/internal/device"
	"github.com/unitexe/skopos/internal/metrics"
	"github.com/unitexe/skopos/internal/mount"
	"github.com/unitexe/skopos/internal/rpc"
	"github.com/unitexe/skopos/internal/service"
	"github.com/unitexe/skopos/internal/system"
	"github.com/unitexe/skopos/internal/ui"
)

// GlobalContext holds the global flags and shared resources for all commands
type GlobalContext struct {
	Verbose    bool
	Quiet      bool
	NoColor    bool
	Debug      bool
	ConfigPath string
	Server     string

	Logger   *ui.Logger
	Prompter *ui.Prompter
	Out      io.Writer

	cfg    *config.Config
	ops    service.Operations
	client *rpc.Client
}

// NewGlobalContext creates a context with default resources. Init must run
// once the flags are parsed.
func NewGlobalContext() *GlobalContext {
	return &GlobalContext{
		Logger:   ui.NewLogger(false, false, false),
		Prompter: ui.NewPrompter(),
		Out:      os.Stdout,
	}
}

// Init rebuilds the logger from the parsed flags
func (ctx *GlobalContext) Init() {
	ctx.Logger = ui.NewLogger(ctx.Verbose, ctx.Quiet, ctx.NoColor)

	level := zerolog.Disabled
	if ctx.Debug {
		level = zerolog.DebugLevel
	}
	ui.SetupLogging(level, ctx.NoColor)
}

// Config loads the configuration on first use
func (ctx *GlobalContext) Config() (config.Config, error) {
	if ctx.cfg != nil {
		return *ctx.cfg, nil
	}
	cm, err := config.NewConfigManager(ctx.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := cm.GetConfig()
	if err != nil {
		return config.Config{}, err
	}
	ctx.cfg = &cfg
	return cfg, nil
}

// IsRemote reports whether operations go to a skopos server
func (ctx *GlobalContext) IsRemote() bool {
	return ctx.Server != ""
}

// Operations returns the remote client when --server is set, otherwise a
// local service. Locally, the executables behind needs must be installed and
// mount capabilities require root.
func (ctx *GlobalContext) Operations(needs ...system.Capability) (service.Operations, error) {
	if ctx.ops != nil {
		return ctx.ops, nil
	}

	if ctx.IsRemote() {
		ctx.Logger.Debug("Connecting to %s", ctx.Server)
		client, err := rpc.Dial(ctx.Server)
		if err != nil {
			return nil, err
		}
		ctx.client = client
		ctx.ops = client
		return client, nil
	}

	if needsRoot(needs) && os.Geteuid() != 0 {
		return nil, fmt.Errorf("%s requires root (try with sudo)", needs[0])
	}

	cfg, err := ctx.Config()
	if err != nil {
		return nil, err
	}
	svc, executor, err := BuildService(cfg, nil)
	if err != nil {
		return nil, err
	}
	if len(needs) > 0 {
		if err := executor.CheckDependencies(needs...); err != nil {
			return nil, err
		}
	}

	ctx.ops = svc
	return svc, nil
}

// Close releases the remote connection, if any
func (ctx *GlobalContext) Close() error {
	if ctx.client == nil {
		return nil
	}
	return ctx.client.Close()
}

// needsRoot reports whether any of the capabilities changes mounts
func needsRoot(needs []system.Capability) bool {
	for _, c := range needs {
		if c == system.CapabilityMount || c == system.CapabilityUnmount {
			return true
		}
	}
	return false
}

// BuildService assembles the local service from configuration. m may be nil.
func BuildService(cfg config.Config, m *metrics.Metrics) (*service.Service, *system.Executor, error) {
	caps, err := system.ParseCapabilities(cfg.Capabilities.Templates())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid capability template: %w", err)
	}
	executor := system.NewExecutor(caps,
		system.WithTimeout(cfg.Capabilities.Timeout),
		system.WithObserver(m),
	)

	enumerator, err := device.NewEnumerator(device.EnumeratorConfig{
		DevDir:           cfg.Devices.DevDir,
		SysBlockDir:      cfg.Devices.SysBlockDir,
		WholeDiskPattern: cfg.Devices.WholeDiskPattern,
		PartialResults:   cfg.Devices.PartialResults,
	})
	if err != nil {
		return nil, nil, err
	}

	table := device.NewMountTable(cfg.MountTable)
	cataloger := archive.NewCataloger(m)

	svc := service.New(service.Components{
		Enumerator: enumerator,
		MountTable: table,
		Mounts:     mount.NewManager(executor, table, cfg.MountRoot),
		Scanner:    archive.NewScanner(archive.NewCapabilityValidator(executor), cfg.Archives.Extension),
		Cataloger:  cataloger,
		Loader:     archive.NewLoader(executor, cfg.Registry, cataloger),
		Recorder:   m,
	})
	return svc, executor, nil
}

// argOrPrompt returns args[i], or asks for it on a terminal
func (ctx *GlobalContext) argOrPrompt(args []string, i int, prompt string) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	if !ctx.Prompter.Interactive {
		return "", fmt.Errorf("%s is required", strings.ToLower(prompt))
	}
	if v := ctx.Prompter.PromptString(prompt); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s is required", strings.ToLower(prompt))
}

// localPath makes p absolute when operations run in this process. Remote
// paths are resolved by the server.
func (ctx *GlobalContext) localPath(p string) (string, error) {
	if p == "" || ctx.IsRemote() {
		return p, nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return abs, nil
}

func kindSuffix(kind system.ErrorKind) string {
	if kind == system.KindNone {
		return ""
	}
	return fmt.Sprintf(" (%s)", kind)
}
