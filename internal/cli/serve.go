package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/unitexe/skopos/internal/metrics"
	"github.com/unitexe/skopos/internal/server"
	"github.com/unitexe/skopos/internal/ui"
)

// ServeCommand runs the gRPC and HTTP servers
type ServeCommand struct {
	ctx *GlobalContext
}

// NewServeCommand creates the serve command
func NewServeCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &ServeCommand{ctx: ctx}

	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Ormos API",
		Long: `Serve the Ormos gRPC API (default port 50052) and, when enabled, the
HTTP API with /healthz and /metrics (default port 50053).`,
		Args: cobra.NoArgs,
		RunE: cmd.Run,
	}
}

// Run executes the serve command
func (c *ServeCommand) Run(cmd *cobra.Command, args []string) error {
	cfg, err := c.ctx.Config()
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if c.ctx.Debug || cfg.DebugMode {
		level = zerolog.DebugLevel
	}
	ui.SetupLogging(level, c.ctx.NoColor)

	if os.Geteuid() != 0 {
		log.Warn().Msg("not running as root, mount and unmount will likely fail")
	}

	m := metrics.New()
	svc, executor, err := BuildService(cfg, m)
	if err != nil {
		return err
	}
	if err := executor.CheckDependencies(); err != nil {
		log.Warn().Err(err).Msg("capabilities unavailable")
	}

	opts := server.Options{
		GRPCAddr:         fmt.Sprintf(":%d", cfg.Server.GRPC.Port),
		MaxRecvMsgSizeMb: cfg.Server.GRPC.MaxRecvMsgSizeMb,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
		Metrics:          m.Handler(),
		Debug:            cfg.DebugMode,
	}
	if cfg.Server.HTTP.Enabled {
		opts.HTTPAddr = fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("mount_root", cfg.MountRoot).
		Str("registry", cfg.Registry).
		Msg("starting skopos")
	return server.New(svc, opts).Run(ctx)
}
