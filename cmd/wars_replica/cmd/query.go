package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/hexwars/replica/internal/engine"
	"github.com/hexwars/replica/internal/replay"
	"github.com/hexwars/replica/internal/transport"
	"github.com/hexwars/replica/pkg/core"
	"github.com/spf13/cobra"
)

// load replays a session file into a fresh engine without journaling it.
func (a *app) load(cmd *cobra.Command, path string) (*engine.Engine, error) {
	e, err := a.newEngine()
	if err != nil {
		return nil, err
	}
	src, err := transport.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if _, err := replay.New(e, replay.WithLogger(a.logger())).Run(cmd.Context(), src); err != nil {
		return nil, err
	}
	return e, nil
}

func parsePosition(s string) (core.Position, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return core.Position{}, fmt.Errorf("invalid position %q: want X,Y", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if err := errors.Join(errX, errY); err != nil {
		return core.Position{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return core.Position{X: x, Y: y}, nil
}

func formatPosition(p core.Position) string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

func newMovesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "moves SESSION UNIT",
		Short: "List the tiles a unit can reach this turn",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			opts, err := e.FindMovementOptions(args[1])
			if err != nil {
				return err
			}
			for _, p := range opts {
				fmt.Fprintln(cmd.OutOrStdout(), formatPosition(p))
			}
			return nil
		},
	}
}

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path SESSION UNIT X,Y",
		Short: "Print a unit's cheapest path to a tile",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := parsePosition(args[2])
			if err != nil {
				return err
			}
			e, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			path, err := e.FindUnitPath(args[1], dest)
			if err != nil {
				return err
			}
			if path == nil {
				return fmt.Errorf("no path from unit %s to %s", args[1], args[2])
			}
			steps := make([]string, len(path))
			for i, p := range path {
				steps[i] = formatPosition(p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(steps, " -> "))
			return nil
		},
	}
}

func newAttacksCmd(a *app) *cobra.Command {
	var from string
	c := &cobra.Command{
		Use:   "attacks SESSION UNIT",
		Short: "List the units a unit can attack and the damage it would deal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			pos, err := attackPosition(e, args[1], from)
			if err != nil {
				return err
			}
			targets, err := e.AttackOptions(args[1], pos)
			if err != nil {
				return err
			}
			printTargets(cmd.OutOrStdout(), targets)
			return nil
		},
	}
	c.Flags().StringVar(&from, "from", "", "Attack from X,Y instead of the unit's tile")
	return c
}

// attackPosition is from when given, otherwise the unit's own tile.
func attackPosition(e *engine.Engine, unitID, from string) (core.Position, error) {
	if from != "" {
		return parsePosition(from)
	}
	u, err := e.Unit(unitID)
	if err != nil {
		return core.Position{}, err
	}
	if u.TileID == "" {
		return core.Position{}, fmt.Errorf("unit %s is carried by %s; pass --from", unitID, u.CarriedBy)
	}
	t, err := e.Tile(u.TileID)
	if err != nil {
		return core.Position{}, err
	}
	return core.Position{X: t.X, Y: t.Y}, nil
}

func printTargets(w io.Writer, targets map[string]int) {
	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "%s %d\n", id, targets[id])
	}
}
