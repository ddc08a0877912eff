// Command rayman is the interactive terminal client: it joins a
// remote rayserver over UDP, or embeds its own host over the
// loopback transport for local/singleplayer play, drives local
// predicted input through a tcell keyboard source, and renders the
// observer dashboard in place of full game graphics.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

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
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "host":
		runHost(os.Args[2:])
	case "join":
		runJoin(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "rayman %s\n", Version)
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  rayman host [-config path] [-name you]                embed a singleplayer host")
	fmt.Fprintln(os.Stderr, "  rayman join <addr> [-name you]                        connect to a rayserver directly")
	fmt.Fprintln(os.Stderr, "  rayman join -code XXXX-XXXX -lookup-addr url [-name]  resolve a room code first")
}

func newRegistry() *command.Registry {
	reg := command.NewRegistry()
	session.RegisterCommands(reg)
	reg.Register(command.Registration{
		Kind:            localinput.Kind,
		SimulationBound: true,
		Encode:          func(v any) ([]byte, error) { return localinput.Encode(v.(localinput.Intent)), nil },
		Decode:          func(b []byte) (any, error) { return localinput.Decode(b) },
	})
	return reg
}

func newStateFactory() func() *sim.State {
	return func() *sim.State {
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
}

// runHost embeds a host and a local peer in one process over the
// loopback transport, the terminal singleplayer path: no UDP socket
// is opened, and there is no network to desync over.
func runHost(args []string) {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	cfg := config.Default()
	config.BindFlags(fs, &cfg)
	configPath := fs.String("config", "", "path to an optional engine.toml")
	name := fs.String("name", "player", "local player name")
	_ = fs.Parse(args)

	if *configPath != "" {
		if err := config.LoadFile(&cfg, *configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		_ = fs.Parse(args)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := zerolog.Nop()
	reg := newRegistry()

	sched, err := tss.NewScheduler(tss.Config{
		Delays:      cfg.TrailingDelays,
		HashCadence: cfg.HashCadence,
		HashHistory: cfg.HashHistory,
	}, newStateFactory(), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	hostAddr := transport.LoopbackAddr(cfg.Port)
	var host *session.Host
	hostEp, err := transport.Listen(transport.Config{
		Mode:         transport.ModeLoopback,
		Port:         cfg.Port,
		Logger:       log,
		TotalTimeout: time.Duration(cfg.TotalTimeoutMs) * time.Millisecond,
		PingInterval: time.Duration(cfg.PingIntervalMs) * time.Millisecond,
	}, func(remote *transport.Remote, payload []byte) {
		_ = host.Dispatch(remote.Addr, payload)
	}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer hostEp.Stop()
	go hostEp.Run()
	host = session.NewHost(cfg.MaxPlayers, sched, reg, hostEp, log, nil)

	runClientLoop(cfg, sched, reg, transport.ModeLoopback, cfg.Port+1, hostAddr, *name, log)
}

// runJoin connects over a real UDP endpoint to a remote rayserver,
// either dialing a direct host:port or resolving a room code first.
func runJoin(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	var hostAddr string
	var rest []string
	if strings.HasPrefix(args[0], "-") {
		rest = args
	} else {
		hostAddr = args[0]
		rest = args[1:]
	}

	fs := flag.NewFlagSet("join", flag.ExitOnError)
	cfg := config.Default()
	config.BindFlags(fs, &cfg)
	name := fs.String("name", "player", "local player name")
	code := fs.String("code", "", "room code to resolve via -lookup-addr instead of a direct address")
	lookupAddr := fs.String("lookup-addr", "", "base URL of a lookup service, required with -code")
	_ = fs.Parse(rest)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *code != "" {
		if *lookupAddr == "" {
			fmt.Fprintln(os.Stderr, "-code requires -lookup-addr")
			os.Exit(2)
		}
		room, err := lobby.NewClient(*lookupAddr).Resolve(*code)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		hostAddr = room.Host
	}
	if hostAddr == "" {
		usage()
		os.Exit(2)
	}

	log := zerolog.Nop()
	reg := newRegistry()

	sched, err := tss.NewScheduler(tss.Config{
		Delays:      cfg.TrailingDelays,
		HashCadence: cfg.HashCadence,
		HashHistory: cfg.HashHistory,
	}, newStateFactory(), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	runClientLoop(cfg, sched, reg, transport.ModeUDP, 0, hostAddr, *name, log)
}

// runClientLoop builds this process's own Endpoint (wired to a Peer
// constructed just after, so the Peer and the host's relayed game
// commands share one decode path), then owns the connection
// lifecycle, the local scheduler's tick loop, keyboard input, and
// dashboard redraw until the player quits.
func runClientLoop(cfg config.Config, sched *tss.Scheduler, reg *command.Registry, mode transport.Mode, port int, hostAddr, name string, log zerolog.Logger) {
	events := make(chan session.Event, 16)
	var peer *session.Peer

	ep, err := transport.Listen(transport.Config{
		Mode:         mode,
		Port:         port,
		Logger:       log,
		TotalTimeout: time.Duration(cfg.TotalTimeoutMs) * time.Millisecond,
		PingInterval: time.Duration(cfg.PingIntervalMs) * time.Millisecond,
	}, func(remote *transport.Remote, payload []byte) {
		if peer == nil {
			return
		}
		cmd, handled, err := peer.Dispatch(payload)
		if err != nil {
			obslog.Warn(log, "rayman.dispatch_failed", obslog.NoFrame, obslog.F("err", err))
			return
		}
		if handled {
			return
		}
		if err := sched.Inject(cmd); err != nil {
			obslog.Warn(log, "rayman.inject_failed", obslog.NoFrame, obslog.F("err", err))
		}
	}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer ep.Stop()
	go ep.Run()

	peer = session.NewPeer(reg, ep, log, nil, events)

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer screen.Fini()

	input := localinput.NewSource(screen)
	defer input.Close()

	pub := observer.NewPublisher()
	dash := observer.NewDashboard(screen, pub)

	if err := peer.Join(hostAddr, name, nil); err != nil {
		obslog.Error(log, "rayman.join_failed", obslog.NoFrame, obslog.F("err", err))
		return
	}
	deadline := time.Now().Add(time.Duration(cfg.JoinTimeoutMs) * time.Millisecond)
	for peer.State() == session.Joining && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if peer.State() != session.Client {
		obslog.Error(log, "rayman.join_timed_out", obslog.NoFrame)
		return
	}
	_ = peer.RequestGameState()

	quit := make(chan struct{})
	var closeOnce bool
	driver := timing.New(timing.Config{Hz: cfg.FrameRateHz}, sched, func(frame int64, isDisplay bool) {
		if !isDisplay {
			return
		}
		if input.Poll() {
			if !closeOnce {
				closeOnce = true
				close(quit)
			}
			return
		}
		cmd := input.Command(int32(peer.PlayerID()), sched.LeadingFrame()+1)
		if err := sched.Inject(cmd); err == nil {
			if err := ep.SendReliable(hostAddr, cmd.Encode(), transport.PriorityNormal); err != nil {
				obslog.Warn(log, "rayman.send_failed", obslog.NoFrame, obslog.F("err", err))
			}
		}
		input.Clear()
		pub.Publish(sched)
		dash.Redraw()
	})
	go driver.Run()
	defer driver.Stop()

eventLoop:
	for {
		select {
		case <-quit:
			break eventLoop
		case ev := <-events:
			switch ev.Kind {
			case session.EventGameState:
				gs, err := session.DecodeGameState(ev.Blob)
				if err == nil {
					sched.Bootstrap(gs)
				}
			case session.EventDisconnected:
				break eventLoop
			}
		}
	}

	_ = peer.Leave()
}
