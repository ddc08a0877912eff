// Command rayserver is the dedicated, authoritative game server: it
// owns the leading and trailing simulation states, accepts joins over
// a reliable UDP endpoint, and drives the fixed-rate tick loop.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fnuecke/Space-sub012/internal/command"
	"github.com/fnuecke/Space-sub012/internal/config"
	"github.com/fnuecke/Space-sub012/internal/ecs"
	"github.com/fnuecke/Space-sub012/internal/lobby"
	"github.com/fnuecke/Space-sub012/internal/localinput"
	"github.com/fnuecke/Space-sub012/internal/obslog"
	"github.com/fnuecke/Space-sub012/internal/observer"
	"github.com/fnuecke/Space-sub012/internal/session"
	"github.com/fnuecke/Space-sub012/internal/sim"
	"github.com/fnuecke/Space-sub012/internal/timing"
	"github.com/fnuecke/Space-sub012/internal/transport"
	"github.com/fnuecke/Space-sub012/internal/tss"
)

// Version is set at build time
var Version = "dev"

func main() {
	cfg := config.Default()
	config.BindFlags(flag.CommandLine, &cfg)
	configPath := flag.String("config", "", "path to an optional engine.toml")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on, empty disables it")
	lookupAddr := flag.String("lookup-addr", "", "base URL of a lookup service to register this room with, empty disables it")
	roomName := flag.String("room-name", "", "room name advertised to the lookup service")
	advertiseAddr := flag.String("advertise-addr", "", "host:port clients should dial, defaults to 127.0.0.1 on -port")
	flag.Parse()

	if *configPath != "" {
		if err := config.LoadFile(&cfg, *configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		// Re-parse so flags explicitly passed on the command line win
		// over whatever the file just overlaid.
		flag.Parse()
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "rayserver").Str("version", Version).Logger()
	obslog.Info(log, "rayserver.starting", obslog.NoFrame, obslog.F("port", cfg.Port), obslog.F("max_players", cfg.MaxPlayers))

	reg := command.NewRegistry()
	session.RegisterCommands(reg)
	reg.Register(command.Registration{
		Kind:            localinput.Kind,
		SimulationBound: true,
		Encode:          func(v any) ([]byte, error) { return localinput.Encode(v.(localinput.Intent)), nil },
		Decode:          func(b []byte) (any, error) { return localinput.Decode(b) },
	})

	newState := func() *sim.State {
		world := ecs.NewWorld()
		manager := ecs.NewManager(world)
		state := sim.NewState(world, manager)
		state.RegisterHandler(localinput.Kind, func(w *ecs.World, c command.Command) {
			// No concrete gameplay is wired to player intent; the
			// handler exists so the command round-trips through the
			// scheduler and is visible to the hash and rollback path.
			_ = w
			_ = c
		})
		return state
	}

	promReg := prometheus.NewRegistry()
	tssMetrics := tss.NewMetrics()
	transportMetrics := transport.NewMetrics()
	sessionMetrics := session.NewMetrics()
	for _, c := range tssMetrics.Collectors() {
		promReg.MustRegister(c)
	}
	for _, c := range transportMetrics.Collectors() {
		promReg.MustRegister(c)
	}
	for _, c := range sessionMetrics.Collectors() {
		promReg.MustRegister(c)
	}

	sched, err := tss.NewScheduler(tss.Config{
		Delays:      cfg.TrailingDelays,
		HashCadence: cfg.HashCadence,
		HashHistory: cfg.HashHistory,
	}, newState, tssMetrics)
	if err != nil {
		obslog.Error(log, "rayserver.scheduler_init_failed", obslog.NoFrame, obslog.F("err", err))
		os.Exit(1)
	}
	sched.SetLogger(log)

	var host *session.Host
	ep, err := transport.Listen(transport.Config{
		Mode:         transport.ModeUDP,
		Port:         cfg.Port,
		Logger:       log,
		Metrics:      transportMetrics,
		TotalTimeout: time.Duration(cfg.TotalTimeoutMs) * time.Millisecond,
		PingInterval: time.Duration(cfg.PingIntervalMs) * time.Millisecond,
	}, func(remote *transport.Remote, payload []byte) {
		if err := host.Dispatch(remote.Addr, payload); err != nil {
			obslog.Warn(log, "rayserver.dispatch_failed", obslog.NoFrame, obslog.F("addr", remote.Addr), obslog.F("err", err))
		}
	}, func(remote *transport.Remote, sequence uint32) {
		obslog.Warn(log, "rayserver.remote_timed_out", obslog.NoFrame, obslog.F("addr", remote.Addr), obslog.F("sequence", sequence))
	})
	if err != nil {
		obslog.Error(log, "rayserver.listen_failed", obslog.NoFrame, obslog.F("err", err))
		os.Exit(1)
	}
	host = session.NewHost(cfg.MaxPlayers, sched, reg, ep, log, sessionMetrics)

	pub := observer.NewPublisher()
	driver := timing.New(timing.Config{Hz: cfg.FrameRateHz}, sched, func(frame int64, isDisplay bool) {
		if isDisplay {
			pub.Publish(sched)
		}
	})

	var metricsSrv *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: *metricsAddr, Handler: mux}
	}

	// errgroup ties the endpoint's read loop, the tick driver, and the
	// optional metrics server to one lifetime: Stop()/Close() below
	// unblocks all three, and Wait() holds the process open until they
	// have actually returned.
	var g errgroup.Group
	g.Go(func() error { ep.Run(); return nil })
	g.Go(func() error { driver.Run(); return nil })
	if metricsSrv != nil {
		g.Go(func() error {
			obslog.Info(log, "rayserver.metrics_listening", obslog.NoFrame, obslog.F("addr", *metricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				obslog.Error(log, "rayserver.metrics_server_failed", obslog.NoFrame, obslog.F("err", err))
			}
			return nil
		})
	}

	obslog.Info(log, "rayserver.listening", obslog.NoFrame, obslog.F("port", cfg.Port))

	var lc *lobby.Client
	var roomCode string
	if *lookupAddr != "" {
		advertise := *advertiseAddr
		if advertise == "" {
			advertise = fmt.Sprintf("127.0.0.1:%d", cfg.Port)
		}
		lc = lobby.NewClient(*lookupAddr)
		room, err := lc.Register(advertise, *roomName, cfg.MaxPlayers)
		if err != nil {
			obslog.Warn(log, "rayserver.lobby_register_failed", obslog.NoFrame, obslog.F("err", err))
			lc = nil
		} else {
			obslog.Info(log, "rayserver.lobby_registered", obslog.NoFrame, obslog.F("code", room.Code))
			roomCode = room.Code
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	obslog.Info(log, "rayserver.shutting_down", obslog.NoFrame)

	if lc != nil {
		_ = lc.Forget(roomCode)
	}
	ep.Stop()
	driver.Stop()
	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	_ = g.Wait()
}
