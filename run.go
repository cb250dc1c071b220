package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"chipset/emu"
	"chipset/emu/log"
	"chipset/hw/components"
	"chipset/hw/hwio"
)

func loadConfig(cli CLI) emu.Config {
	if cli.Config == "" {
		return emu.DefaultConfig()
	}
	cfg, err := emu.LoadConfig(cli.Config)
	checkf(err, "failed to load configuration")
	return cfg
}

// redirectToWAV replaces the component the flush component outputs to with a
// WAV recorder.
func redirectToWAV(sys *emu.SystemConfig, path string) error {
	flush, ok := sys.Components[sys.Flush]
	if !ok {
		return fmt.Errorf("system %s has no flush component", sys.Name)
	}

	const name = "wav"
	if _, ok := sys.Components[name]; ok {
		return fmt.Errorf("system %s already has a %q component", sys.Name, name)
	}
	sys.Components[name] = &emu.ComponentConfig{
		Type: components.WAV.Name,
		Args: map[string]any{"path": path},
	}
	if flush.Ports == nil {
		flush.Ports = make(map[string]string)
	}
	old, hadOutput := flush.Ports["0"]
	flush.Ports["0"] = name
	if !hadOutput {
		return nil
	}

	// Drop the previous output unless something else uses it.
	for _, cc := range sys.Components {
		for _, peer := range cc.Ports {
			if peer == old {
				return nil
			}
		}
	}
	delete(sys.Components, old)
	return nil
}

// runMain builds and runs a system until the requested duration has been
// emulated or the process is interrupted.
func runMain(cli CLI) {
	args := cli.Run
	cfg := loadConfig(cli)
	sys, err := cfg.SelectSystem(args.System)
	checkf(err, "invalid configuration")

	if args.WAV != "" {
		checkf(redirectToWAV(sys, args.WAV), "can't record to %s", args.WAV)
	}

	m, err := emu.Build(sys)
	checkf(err, "failed to start system")
	m.Pace = !args.NoPace && args.WAV == ""

	ticks := int64(args.Duration.Seconds() * float64(sys.ClockRate))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		start := time.Now()
		err := m.Run(ctx, ticks)
		log.ModEmu.InfoZ("machine loop exited").
			Duration("elapsed", time.Since(start)).
			Int64("ticks", m.Stats().Ticks).
			End()
		return err
	})
	g.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
		defer signal.Stop(sigs)

		controlLoop(ctx, m, sigs)
		m.Stop()
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	cerr := m.Close()

	if args.Stats != nil {
		defer args.Stats.Close()
		checkf(emu.WriteStats(args.Stats, m.Stats()), "failed to write stats")
	}
	checkf(err, "emulation failed")
	checkf(cerr, "failed to close system")
}

// machineControl is the part of emu.Machine driven by signals.
type machineControl interface {
	SetPause(bool)
	Paused() bool
	RequestReset()
}

// controlLoop toggles pause on SIGUSR1 and resets the machine on SIGUSR2,
// until ctx is done.
func controlLoop(ctx context.Context, m machineControl, sigs <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			switch sig {
			case syscall.SIGUSR1:
				m.SetPause(!m.Paused())
				log.ModEmu.InfoZ("pause toggled").Bool("paused", m.Paused()).End()
			case syscall.SIGUSR2:
				m.RequestReset()
				log.ModEmu.InfoZ("reset requested").End()
			}
		}
	}
}

func listMain(cli CLI) {
	cfg := loadConfig(cli)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYSTEMS")
	for _, name := range cfg.SystemNames() {
		sys := cfg.Systems[name]
		def := ""
		if name == cfg.System {
			def = "(default)"
		}
		fmt.Fprintf(w, "  %s\t%d components\t%s\n", name, len(sys.Components), def)
	}

	fmt.Fprintln(w, "\nCOMPONENT TYPES")
	for _, name := range components.Names() {
		fmt.Fprintf(w, "  %s\t%s\n", name, components.All[name].Help)
	}
	w.Flush()
}

func propsMain(cli CLI) {
	cfg := loadConfig(cli)
	sys, err := cfg.SelectSystem(cli.Props.System)
	checkf(err, "invalid configuration")

	m, err := emu.Build(sys)
	checkf(err, "failed to build system")
	defer m.Close()

	checkf(emu.DumpProps(os.Stdout, m), "failed to dump properties")

	w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	for _, name := range m.ComponentNames() {
		caps := hwio.CapsOf(m.Component(name))
		fmt.Fprintf(w, "%s\t%s\n", name, strings.ReplaceAll(caps.String(), ",", " "))
	}
	w.Flush()
}

func versionMain() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("chipset", version)
}
