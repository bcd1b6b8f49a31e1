package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/erilali/marketrelay/internal/api"
	"github.com/erilali/marketrelay/internal/bus"
	"github.com/erilali/marketrelay/internal/config"
	"github.com/erilali/marketrelay/internal/hub"
	"github.com/erilali/marketrelay/internal/logger"
	"github.com/erilali/marketrelay/internal/source"
	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	configPath string
	port       int
	simulate   bool
	natsURL    string
	subject    string
	interval   time.Duration
	volatility float64
	staticDir  string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd, cfg)
		},
	}

	opts.bindFlags(cmd)
	cmd.MarkFlagsMutuallyExclusive("simulate", "nats-url")
	return cmd
}

func (o *serveOptions) bindFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "config.yaml", "path to the YAML config file")
	f.IntVarP(&o.port, "port", "p", 3030, "port to listen on")
	f.BoolVar(&o.simulate, "simulate", false, "generate synthetic trades")
	f.StringVar(&o.natsURL, "nats-url", "", "relay events from this NATS server")
	f.StringVar(&o.subject, "subject", "", "synthetic trade subject, or NATS subscription subject with --nats-url")
	f.DurationVar(&o.interval, "interval", time.Second, "synthetic tick interval")
	f.Float64Var(&o.volatility, "volatility", 0.5, "synthetic max percent move per tick")
	f.StringVar(&o.staticDir, "static", "", "serve files from this directory for unmatched routes")
}

// apply layers explicitly set flags over the loaded config.
func (o *serveOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("simulate") && f.Changed("nats-url") {
		return fmt.Errorf("--simulate and --nats-url are mutually exclusive")
	}
	if f.Changed("port") {
		if o.port < 1 || o.port > 65535 {
			return fmt.Errorf("invalid port %d", o.port)
		}
		cfg.Server.Address = ":" + strconv.Itoa(o.port)
	}
	if f.Changed("simulate") && o.simulate {
		cfg.Source.Mode = config.ModeSimulate
	}
	if f.Changed("nats-url") {
		cfg.Source.Mode = config.ModeNATS
		cfg.NATS.URL = o.natsURL
	}
	if f.Changed("subject") {
		if cfg.Source.Mode == config.ModeNATS {
			cfg.NATS.Subject = o.subject
		} else {
			cfg.Source.Subject = o.subject
		}
	}
	if f.Changed("interval") {
		cfg.Source.Interval = o.interval
	}
	if f.Changed("volatility") {
		cfg.Source.Volatility = o.volatility
	}
	if f.Changed("static") {
		cfg.Server.StaticDir = o.staticDir
	}
	return nil
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	logger.InitLogger(cfg.Logging)
	log := logger.NewLogger("serve")
	log.Infof("Starting relay: %s", cfg)
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Profiling.Enabled {
		profiler, err := startProfiler(cfg.Profiling, log)
		if err != nil {
			log.Warnf("Profiling disabled: %v", err)
		} else {
			defer func() { _ = profiler.Stop() }()
		}
	}

	h := hub.NewHub(hubOptions(cfg.Server), logger.NewLogger("hub"))
	srv := api.NewServer(cfg.Server, h, newSource(cfg), logger.NewLogger("api"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func hubOptions(s config.ServerConfig) hub.Options {
	return hub.Options{
		SendBuffer:     s.SendBuffer,
		WriteTimeout:   s.WriteTimeout,
		PongWait:       s.PongWait,
		PingPeriod:     s.PingPeriod,
		MaxMessageSize: s.MaxMessageSize,
	}
}

// newSource returns the configured event source, or nil for ModeNone.
func newSource(cfg *config.Config) source.Source {
	switch cfg.Source.Mode {
	case config.ModeSimulate:
		walk := source.NewWalk(walkConfig(cfg.Source), nil)
		return source.NewSimulator(cfg.Source.Subject, cfg.Source.Interval, walk, logger.NewLogger("simulator"))
	case config.ModeNATS:
		return source.NewNATS(busConfig(cfg.NATS), cfg.NATS.Subject, logger.NewLogger("nats"))
	}
	return nil
}

func walkConfig(s config.SourceConfig) source.WalkConfig {
	return source.WalkConfig{
		InitialPrice: s.InitialPrice,
		PriceJitter:  s.PriceJitter,
		Volatility:   s.Volatility,
		Exchange:     s.Exchange,
		Pair:         s.Pair,
	}
}

func busConfig(n config.NATSConfig) bus.Config {
	return bus.Config{
		URL:           n.URL,
		Name:          n.Name,
		ReconnectWait: n.ReconnectWait,
		MaxReconnects: n.MaxReconnects,
	}
}

func startProfiler(p config.ProfilingConfig, log *logger.Logger) (*pyroscope.Profiler, error) {
	hostname, _ := os.Hostname()
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: p.AppName,
		ServerAddress:   p.ServerAddress,
		Tags: map[string]string{
			"hostname": hostname,
		},
		Logger: log,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
}
