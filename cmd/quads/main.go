// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

// Command quads shows the replicated shapes in a window. Drag a quad with the mouse,
// or select one with Tab and move it with the arrow keys. Every instance on the subnet follows.
package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/marko-gacesa/quadsync/config"
	"github.com/marko-gacesa/quadsync/node"
	"github.com/marko-gacesa/quadsync/replica"
	"github.com/marko-gacesa/quadsync/udp"
)

const (
	screenWidth  = 800
	screenHeight = 600
	quadSize     = 60
	keySpeed     = 4
)

var (
	colorBackground = color.RGBA{R: 0x20, G: 0x20, B: 0x28, A: 0xff}
	colorSelected   = color.White
	quadColors      = []color.RGBA{
		{R: 0xe0, G: 0x50, B: 0x50, A: 0xff},
		{R: 0x50, G: 0xc0, B: 0x60, A: 0xff},
		{R: 0x50, G: 0x80, B: 0xe0, A: 0xff},
		{R: 0xe0, G: 0xc0, B: 0x40, A: 0xff},
	}
)

type game struct {
	quads    *node.Node
	adapter  node.Adapter
	selected int
	dragging bool
}

// toView converts a cursor position to view coordinates, where the origin is the window center.
func toView(x, y int) replica.Position {
	return replica.Position{
		X: float32(x - screenWidth/2),
		Y: float32(y - screenHeight/2),
	}
}

func quadAt(positions []replica.Position, p replica.Position) int {
	// topmost first, quads are drawn in index order
	for i := len(positions) - 1; i >= 0; i-- {
		q := positions[i]
		if p.X >= q.X-quadSize/2 && p.X < q.X+quadSize/2 && p.Y >= q.Y-quadSize/2 && p.Y < q.Y+quadSize/2 {
			return i
		}
	}
	return -1
}

func (g *game) Update() error {
	select {
	case <-g.quads.Done():
		if err := g.quads.Err(); err != nil {
			return err
		}
		return ebiten.Termination
	default:
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if i := quadAt(g.quads.Snapshot(), toView(ebiten.CursorPosition())); i >= 0 {
			g.selected = i
			g.dragging = true
		}
	}

	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.dragging = false
	}

	if g.dragging {
		target := toView(ebiten.CursorPosition())
		if pos, err := g.adapter.QueryPosition(g.selected); err == nil && pos != target {
			if err := g.adapter.OnLocalMove(g.selected, target); err != nil && !errors.Is(err, node.ErrNotRunning) {
				return err
			}
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.selected = (g.selected + 1) % g.quads.Count()
	}

	var dx, dy float32
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		dx -= keySpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		dx += keySpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		dy -= keySpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		dy += keySpeed
	}
	if dx != 0 || dy != 0 {
		if err := g.quads.MoveBy(g.selected, dx, dy); err != nil && !errors.Is(err, node.ErrNotRunning) {
			return err
		}
	}

	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)

	for i, p := range g.quads.Snapshot() {
		x := p.X + screenWidth/2 - quadSize/2
		y := p.Y + screenHeight/2 - quadSize/2

		vector.FillRect(screen, x, y, quadSize, quadSize, quadColors[i%len(quadColors)], false)
		if i == g.selected {
			vector.StrokeRect(screen, x, y, quadSize, quadSize, 2, colorSelected, false)
		}
	}

	stats := g.quads.Stats()
	ebitenutil.DebugPrint(screen, fmt.Sprintf("quad %d selected\nsent %d  applied %d  echoes %d  malformed %d",
		g.selected, stats.Sent, stats.Applied, stats.Echoes, stats.Malformed))
}

func (g *game) Layout(int, int) (int, int) {
	return screenWidth, screenHeight
}

func initialPositions(count int) []replica.Position {
	positions := make([]replica.Position, count)
	for i := range positions {
		positions[i] = replica.Position{
			X: float32((i - count/2) * (quadSize + 20)),
		}
	}
	return positions
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := cfg.Logger()

	transportOpts := []func(*udp.Broadcaster){udp.WithReusePort(cfg.ReusePort)}
	if cfg.Broadcast != nil {
		transportOpts = append(transportOpts, udp.WithBroadcastAddress(cfg.Broadcast))
	}

	quads, err := node.Open(cfg.Port, cfg.Count,
		node.WithLogger(log),
		node.WithPositions(initialPositions(cfg.Count)),
		node.WithResend(cfg.Resend, cfg.ResendCount),
		node.WithTransportOptions(transportOpts...))
	if err != nil {
		log.Error("failed to start", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancelFn := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	go func() {
		_ = quads.Start(ctx)
	}()

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle(fmt.Sprintf("quads :%d", cfg.Port))

	err = ebiten.RunGame(&game{quads: quads, adapter: quads})

	_ = quads.Stop()
	cancelFn()

	if err != nil {
		log.Error("window closed with error", "error", err.Error())
		os.Exit(1)
	}
}
