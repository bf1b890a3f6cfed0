// Command gridping displays a scrolling per-second reachability grid for a
// list of hosts, with an optional parallel traceroute to whichever host is
// currently selected.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/pingmesh/gridping/internal/config"
	"github.com/pingmesh/gridping/internal/engine"
	"github.com/pingmesh/gridping/internal/logger"
	"github.com/pingmesh/gridping/internal/lookup"
	"github.com/pingmesh/gridping/internal/socket"
	"github.com/pingmesh/gridping/internal/target"
	"github.com/pingmesh/gridping/internal/tui"
	"github.com/pingmesh/gridping/internal/tui/theme"
)

// Version is set via -ldflags at release build time.
var Version = "(unknown)"

// Flags.
var (
	altBG         = pflag.Bool("alt-bg", true, "Render using the terminal's alternate screen buffer.")
	hideHops      = pflag.Bool("hide-hops", false, "Hide the trace/hop panel for the selected target.")
	reverseScroll = pflag.Bool("reverse-scroll", false, "Reverse the left/right scrollback direction.")
	pus           = pflag.Int("pus", engine.DefaultPacketUs, "Microseconds of spacing between packets within a tick's burst.")
	configPath    = pflag.StringP("config", "c", "", "Target list config file (required unless hosts are given as arguments).")
	outputPath    = pflag.StringP("output", "o", "", "File to append the per-tick RTT log and shutdown summary to.")
	count         = pflag.Int("count", 0, "Stop automatically after this many ticks. 0 means run until quit.")
	seconds       = pflag.IntP("seconds", "s", 1, "Seconds between ticks (1-5).")
	silent        = pflag.Bool("silent", false, "Run headless: no terminal UI, only the output log.")
	numeric       = pflag.BoolP("numeric", "n", false, "Only display numeric IP addresses.")
	showStats     = pflag.Bool("stats", false, "Print a final statistics summary to stdout on exit.")
	printVersion  = pflag.BoolP("version", "v", false, "Output the version number.")
	logfile       = pflag.String("logfile", "/dev/null", "File to divert UI framework diagnostics to.")
)

func main() {
	pflag.Parse()

	if *printVersion {
		printVersionInfo()
		os.Exit(0)
	}

	lookup.NumericMode = *numeric

	if *seconds < 1 || *seconds > 5 {
		fmt.Fprintln(os.Stderr, "gridping: --seconds must be between 1 and 5")
		os.Exit(1)
	}

	targets, err := loadTargets(*configPath, pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridping: %v\n", err)
		os.Exit(1)
	}
	if targets.Len() == 0 {
		fmt.Fprintln(os.Stderr, "gridping: no targets configured")
		pflag.Usage()
		os.Exit(1)
	}

	if err := engine.ValidateAirTime(targets.Len(), *pus); err != nil {
		fmt.Fprintf(os.Stderr, "gridping: %v\n", err)
		os.Exit(1)
	}

	sock, err := socket.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridping: %v\n", err)
		os.Exit(1)
	}
	defer sock.Close()

	var lg *logger.Logger
	if *outputPath != "" {
		f, err := os.OpenFile(*outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gridping: opening output log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		lg = logger.New(f)
		lg.WritePrelude(targets.All())
	}

	eng := engine.New(targets, sock, &engine.Options{
		Cadence:      time.Duration(*seconds) * time.Second,
		PacketMicros: *pus,
		Count:        *count,
		Logger:       lg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		eng.Stop()
		cancel()
	}()

	if *silent {
		runHeadless(ctx, eng)
	} else {
		if *logfile != "" {
			logf, err := tea.LogToFile(*logfile, "")
			if err != nil {
				log.Fatalf("gridping: opening diagnostics log: %v", err)
			}
			defer logf.Close()
		}
		runTUI(ctx, eng, *hideHops, *reverseScroll, *altBG)
	}

	if *showStats {
		printFinalStats(targets)
	}

	if lg != nil {
		for _, t := range targets.All() {
			lg.WriteSummary(t.Name, t.Stats.Snapshot())
		}
	}
}

// loadTargets resolves either a config file's entries or bare positional
// hostnames into a target table.
func loadTargets(configFile string, args []string) (*target.Table, error) {
	tbl := target.NewTable()

	var entries []config.Entry
	if configFile != "" {
		f, err := os.Open(configFile)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		defer f.Close()
		entries, err = config.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	for _, a := range args {
		entries = append(entries, config.Entry{Host: a, Name: a})
	}

	for _, e := range entries {
		addr, err := lookup.Host(e.Host)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", e.Host, err)
		}
		if _, err := tbl.Add(e.Name, e.Host, addr, &net.IPAddr{IP: addr}); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func runTUI(ctx context.Context, eng *engine.Engine, hideHops, reverseScroll, altBG bool) {
	th := theme.Default
	if err := tui.Run(ctx, eng, &th, &tui.Options{
		HideHops:      hideHops,
		ReverseScroll: reverseScroll,
		AltScreen:     altBG,
	}); err != nil {
		log.Printf("gridping: %v", err)
	}
}

func runHeadless(ctx context.Context, eng *engine.Engine) {
	eng.Run(ctx)
}

func printFinalStats(targets *target.Table) {
	for _, t := range targets.All() {
		snap := t.Stats.Snapshot()
		fmt.Printf("%s: n=%d lost=%d late=%d avg=%.1fms stddev=%.1fms\n",
			t.Name, snap.N, snap.Lost, snap.Late, snap.Avg, snap.StdDev)
	}
}

func printVersionInfo() {
	inf, ok := debug.ReadBuildInfo()
	if !ok {
		fmt.Println("gridping: unknown version")
		return
	}
	fmt.Printf("%s %s\nbuilt with %s\n", path.Base(inf.Path), Version, inf.GoVersion)
}
