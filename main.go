package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"github.com/iltempo/trrouter/commands"
	"github.com/iltempo/trrouter/config"
	"github.com/iltempo/trrouter/engine"
	"github.com/iltempo/trrouter/lock"
	"github.com/iltempo/trrouter/midi"
)

const (
	lockPath   = "/tmp/trrouter.lock"
	inputPort  = "TR Router In"
	defaultCfg = "trrouter.json"
)

// isTerminal returns true if stdin is a terminal (TTY).
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// interactiveLoop drives the console over chzyer/readline, which owns line
// editing and history; each completed line is handed to ProcessCommand.
func interactiveLoop(h *commands.Handler) error {
	rl, err := readline.New("trrouter> ")
	if err != nil {
		return fmt.Errorf("creating readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			return nil
		}
		if err := h.ProcessCommand(line); err != nil {
			if err == commands.ErrQuit {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func main() {
	configPath := flag.String("config", defaultCfg, "path to the pattern config JSON file")
	flag.Parse()

	lk, warnings := lock.Acquire(lockPath)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "lock:", w)
	}
	defer lk.Release()

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	doc, err := config.Load(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	driver, err := midi.NewDriver()
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening MIDI backend: %v\n", err)
		os.Exit(1)
	}
	defer driver.Close()

	in, err := driver.OpenInput(inputPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening input port: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	e, err := engine.New(engine.WrapDriver(driver), doc, rand.New(rand.NewSource(int64(os.Getpid()))))
	if err != nil {
		fmt.Fprintf(os.Stderr, "starting engine: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx, in.Events())
	}()

	// cleanup cancels the engine and waits for its Run goroutine to
	// return before closing any port. Run's deferred shutdown() sends
	// note-offs for every sounding/pending note through those ports
	// (spec §5); closing them first would silently drop those note-offs.
	cleanup := func() {
		cancel()
		<-done
		in.Close()
		driver.Close()
		lk.Release()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cleanup()
		os.Exit(0)
	}()

	fmt.Printf("TR Router running on %q. Type 'help' for commands, 'quit' to exit.\n", inputPort)

	cmdHandler := commands.New(e, *configPath, os.Stdout)

	var consoleErr error
	if isTerminal() {
		consoleErr = interactiveLoop(cmdHandler)
	} else {
		consoleErr = cmdHandler.ReadLoop(os.Stdin)
	}
	if consoleErr != nil {
		fmt.Fprintf(os.Stderr, "console error: %v\n", consoleErr)
	}

	cancel()
	if err := <-done; err != nil {
		fmt.Fprintf(os.Stderr, "engine stopped with error: %v\n", err)
		os.Exit(1)
	}
}
