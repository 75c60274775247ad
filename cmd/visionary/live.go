package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/visionary/pkg/config"
	"github.com/AltairaLabs/visionary/runtime/canvas"
	"github.com/AltairaLabs/visionary/runtime/device"
	"github.com/AltairaLabs/visionary/runtime/device/ffmpeg"
	"github.com/AltairaLabs/visionary/runtime/events"
	"github.com/AltairaLabs/visionary/runtime/live"
	"github.com/AltairaLabs/visionary/runtime/logger"
	"github.com/AltairaLabs/visionary/runtime/media"
	"github.com/AltairaLabs/visionary/runtime/metrics/prometheus"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini/imagegen"
	"github.com/AltairaLabs/visionary/runtime/telemetry"
	"github.com/AltairaLabs/visionary/runtime/version"
)

// Flag names shared with viper keys.
const (
	flagMode         = "mode"
	flagMetricsAddr  = "metrics-addr"
	flagOTLPEndpoint = "otlp-endpoint"
	flagCanvas       = "canvas"
	flagRedisAddr    = "redis-addr"
	flagCamera       = "camera"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Start a live session",
	Long: `Starts a live session with the microphone and, in video+voice mode, the camera.

Keys (followed by Enter):
  m  toggle the microphone
  v  toggle the camera
  q  end the session

Ctrl-C also ends the session.`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().String(flagMode, "", "Session mode: video+voice or voice")
	liveCmd.Flags().String(flagMetricsAddr, "", "Serve Prometheus metrics on this address (e.g. :9090)")
	liveCmd.Flags().String(flagOTLPEndpoint, "", "OTLP/HTTP trace endpoint URL")
	liveCmd.Flags().String(flagCanvas, "", "Canvas backend: memory or redis")
	liveCmd.Flags().String(flagRedisAddr, "", "Redis address for the redis canvas")
	liveCmd.Flags().String(flagCamera, "", "Camera device passed to ffmpeg")

	for _, name := range []string{flagMode, flagMetricsAddr, flagOTLPEndpoint, flagCanvas, flagRedisAddr, flagCamera} {
		_ = viper.BindPFlag(name, liveCmd.Flags().Lookup(name))
	}
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.SetEnvPrefix("VISIONARY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadStudioConfig reads the manifest and layers flag and VISIONARY_*
// environment overrides on top.
func loadStudioConfig(v *viper.Viper) (*config.StudioConfig, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	override := func(dst *string, key string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	override(&cfg.Live.Mode, flagMode)
	override(&cfg.Telemetry.MetricsAddr, flagMetricsAddr)
	override(&cfg.Telemetry.OTLPEndpoint, flagOTLPEndpoint)
	override(&cfg.Canvas.Backend, flagCanvas)
	override(&cfg.Canvas.Redis.Addr, flagRedisAddr)
	override(&cfg.Video.Device, flagCamera)

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runLive(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := loadStudioConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := cfg.LoadAPIKey(); err != nil {
		return err
	}
	logger.Configure(cfg.LoggingConfig())
	logger.Debug("Visionary starting", version.GetBuildInfo()...)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	bus := events.NewEventBus()
	defer bus.Close()
	bus.SubscribeAll(telemetry.NewOTelEventListener(telemetry.Tracer(nil)).Listener())

	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		exporter := prometheus.NewExporter(addr)
		if err := exporter.WatchBus(bus); err != nil {
			return err
		}
		go func() {
			if err := exporter.Serve(ctx); err != nil {
				logger.Error("Metrics server stopped", "addr", addr, "error", err)
			}
		}()
	}

	store, closeStore, err := openCanvas(ctx, cfg.Canvas)
	if err != nil {
		return err
	}
	defer closeStore()

	generator, err := imagegen.NewGenerator(ctx, imagegen.Config{
		APIKey:        cfg.APIKey,
		Model:         cfg.ImageGeneration.Model,
		AspectRatio:   cfg.ImageGeneration.AspectRatio,
		RatePerSecond: cfg.ImageGeneration.RatePerSecond,
		Burst:         cfg.ImageGeneration.Burst,
		Timeout:       cfg.ImageGeneration.Timeout,
	})
	if err != nil {
		return err
	}

	mic, speaker, err := audioDevices(cfg.Audio)
	if err != nil {
		return err
	}

	ctrl, err := live.NewController(live.Config{
		Acquirer: &device.CompositeAcquirer{
			Microphone: mic,
			Camera:     &ffmpeg.Opener{Binary: cfg.Video.FFmpegPath, Device: cfg.Video.Device},
		},
		Dialer:    live.GeminiDialer(gemini.NewDialer(dialConfig(cfg))),
		Canvas:    canvas.NewBoard(store),
		Generator: generator,
		Notifier:  &terminalNotifier{w: cmd.ErrOrStderr()},
		Player:    speaker,
		Bus:       bus,
		VideoConstraints: &device.VideoConstraints{
			Width:     cfg.Video.CameraWidth,
			Height:    cfg.Video.CameraHeight,
			FrameRate: cfg.Video.CameraFPS,
		},
		FrameSize:      cfg.Audio.FrameSize,
		LaneCapacity:   cfg.Uplink.LaneCapacity,
		SampleInterval: cfg.Video.SampleInterval,
		Snapshot: media.SnapshotConfig{
			Width:   cfg.Video.Width,
			Height:  cfg.Video.Height,
			Quality: cfg.Video.Quality,
		},
		GenerationSlots: int64(cfg.ImageGeneration.Concurrency),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	updates, err := store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch canvas: %w", err)
	}
	go printCanvas(updates, out)

	if err := ctrl.Start(ctx, live.Mode(cfg.Live.Mode)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Live session %s started (%s). Press m, v or q then Enter.\n", ctrl.SessionID(), cfg.Live.Mode)

	handleKeys(ctx, cmd.InOrStdin(), ctrl, out)
	if err := ctrl.Stop(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Session ended.")
	return nil
}

func dialConfig(cfg *config.StudioConfig) gemini.DialConfig {
	lc := gemini.DefaultLiveConfig()
	lc.Model = cfg.Live.Model
	lc.Voice = cfg.Live.Voice
	lc.SystemInstruction = cfg.Live.SystemInstruction
	return gemini.DialConfig{
		URL:          cfg.Live.URL,
		APIKey:       cfg.APIKey,
		Live:         lc,
		SetupTimeout: cfg.Live.SetupTimeout,
	}
}

// openCanvas returns the configured store and a function releasing it.
func openCanvas(ctx context.Context, spec config.CanvasSpec) (canvas.Store, func(), error) {
	if spec.Backend != config.CanvasRedis {
		return canvas.NewMemoryStore(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     spec.Redis.Addr,
		Password: spec.Redis.Password,
		DB:       spec.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", spec.Redis.Addr, err)
	}
	var opts []canvas.RedisOption
	if spec.Redis.Prefix != "" {
		opts = append(opts, canvas.WithPrefix(spec.Redis.Prefix))
	}
	if spec.Redis.Board != "" {
		opts = append(opts, canvas.WithBoard(spec.Redis.Board))
	}
	return canvas.NewRedisStore(client, opts...), func() { _ = client.Close() }, nil
}
