// Copyright (c) 2024, 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/marko-gacesa/quadsync/config"
	"github.com/marko-gacesa/quadsync/node"
	"github.com/marko-gacesa/quadsync/replica"
	"github.com/marko-gacesa/quadsync/udp"
)

// Move circles entity 0 around the origin and broadcasts every step.
func Move(ctx context.Context, n *node.Node, dur time.Duration, log *slog.Logger) error {
	log.Info("Begin: Moving entity 0")
	defer log.Info("End: Moving entity 0")

	t := time.NewTicker(dur)
	defer t.Stop()

	var step int

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.Done():
			return n.Err()
		case <-t.C:
			step++
			angle := float64(step) * math.Pi / 16
			pos := replica.Position{
				X: float32(100 * math.Cos(angle)),
				Y: float32(100 * math.Sin(angle)),
			}

			if err := n.OnLocalMove(0, pos); err != nil {
				return fmt.Errorf("failed to move: %w", err)
			}

			log.Debug("moved", "x", pos.X, "y", pos.Y)
		}
	}
}

// Listen prints every update received from peers.
func Listen(ctx context.Context, n *node.Node, log *slog.Logger) error {
	log.Info("Begin: Listening for peer updates")
	defer log.Info("End: Listening for peer updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.Done():
			return n.Err()
		case u := <-n.Updates():
			fmt.Printf("Got %s, positions now %v\n", u.String(), n.Snapshot())
		}
	}
}

func run(ctx context.Context, mode string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := cfg.Logger()

	transportOpts := []func(*udp.Broadcaster){udp.WithReusePort(cfg.ReusePort)}
	if cfg.Broadcast != nil {
		transportOpts = append(transportOpts, udp.WithBroadcastAddress(cfg.Broadcast))
	}

	n, err := node.Open(cfg.Port, cfg.Count,
		node.WithLogger(log),
		node.WithResend(cfg.Resend, cfg.ResendCount),
		node.WithTransportOptions(transportOpts...))
	if err != nil {
		log.Error("failed to start", "error", err.Error())
		return 1
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = n.Start(ctx)
	}()

	fmt.Println("Press Ctrl+C to stop...")

	switch mode {
	case "move":
		err = Move(ctx, n, 500*time.Millisecond, log)
	case "listen":
		err = Listen(ctx, n, log)
	}

	_ = n.Stop()
	wg.Wait()

	if err != nil {
		log.Error("stopped with error", "error", err.Error(), "stats", fmt.Sprintf("%+v", n.Stats()))
		return 1
	}

	log.Info("stopped", "stats", fmt.Sprintf("%+v", n.Stats()))

	return 0
}

func main() {
	if len(os.Args) != 2 || (os.Args[1] != "move" && os.Args[1] != "listen") {
		fmt.Println("use param: 'move' or 'listen'")
		os.Exit(2)
	}

	ctx, cancelFn := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := run(ctx, os.Args[1])

	cancelFn()
	os.Exit(code)
}
