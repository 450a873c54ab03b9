package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/game/command"
	"github.com/cory-johannsen/keystrike/internal/game/encounter"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// driver feeds console lines into a session. Typed words are replayed one
// keystroke at a time so partial matches and typos behave as they would live.
type driver struct {
	sess      *encounter.Session
	presenter *consolePresenter
	registry  *command.Registry
	store     encounter.SnapshotStore
	slot      int
	in        io.Reader
	logger    *zap.Logger
}

var errQuit = errors.New("quit")

// Run reads lines until input ends, the player quits, or the encounter is over.
func (d *driver) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(d.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	d.presenter.printf("encounter %s: %s", d.sess.EncounterID(), d.status())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.presenter.Over():
			d.presenter.printf("== %s: %s", d.sess.Outcome(), d.status())
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := d.handle(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				d.presenter.printf("   %v", err)
			}
		}
	}
}

func (d *driver) handle(ctx context.Context, line string) error {
	if command.IsDirective(line) {
		return d.directive(ctx, command.Parse(line))
	}
	return d.typeWord(ctx, strings.TrimSpace(line))
}

// typeWord replays word as keystrokes and submits it if no keystroke resolved it.
func (d *driver) typeWord(ctx context.Context, word string) error {
	if word == "" {
		return nil
	}
	runes := []rune(word)
	for i := 1; i <= len(runes); i++ {
		rep, err := d.sess.InputChanged(ctx, string(runes[:i]))
		if err != nil {
			return err
		}
		switch rep.Status {
		case command.StatusPartial, command.StatusNone:
			continue
		case command.StatusIgnored:
			return nil
		default:
			d.report(rep)
			return nil
		}
	}
	rep, err := d.sess.InputSubmitted(ctx, word)
	if err != nil {
		return err
	}
	d.report(rep)
	return nil
}

func (d *driver) report(rep encounter.Report) {
	d.presenter.printf("   %s", rep.Feedback.Render())
	switch rep.Action {
	case encounter.ActionAttack:
		d.presenter.printf("   +%d points", rep.Gain)
		if rep.Killed {
			d.presenter.printf("   %s defeated", rep.Target)
		}
	case encounter.ActionTypo:
		d.presenter.printf("   typo")
	}
}

func (d *driver) directive(ctx context.Context, p command.ParseResult) error {
	dir, ok := d.registry.Resolve(p.Directive)
	if !ok {
		return fmt.Errorf("unknown directive %q, try :help", p.Directive)
	}
	switch dir.Handler {
	case command.HandlerTarget:
		if len(p.Args) != 1 {
			return fmt.Errorf("usage: %s", dir.Usage)
		}
		n, err := strconv.Atoi(p.Args[0])
		enemies := d.sess.Snapshot().Enemies
		if err != nil || n < 1 || n > len(enemies) {
			return fmt.Errorf("no enemy %q", p.Args[0])
		}
		return d.sess.LockTarget(enemies[n-1].ID)
	case command.HandlerMove:
		if len(p.Args) != 2 {
			return fmt.Errorf("usage: %s", dir.Usage)
		}
		q, errQ := strconv.Atoi(p.Args[0])
		r, errR := strconv.Atoi(p.Args[1])
		if errQ != nil || errR != nil {
			return fmt.Errorf("usage: %s", dir.Usage)
		}
		return d.sess.MovePlayer(ctx, grid.Coord{Q: q, R: r})
	case command.HandlerEnd:
		return d.sess.EndPlayerTurn(ctx)
	case command.HandlerStatus:
		d.presenter.printf("%s", d.status())
	case command.HandlerSave:
		if d.store == nil {
			return errors.New("persistence is disabled")
		}
		if err := d.store.Save(ctx, d.slot, d.sess.Snapshot()); err != nil {
			return err
		}
		d.logger.Info("snapshot saved", zap.Int("slot", d.slot))
		d.presenter.printf("saved to slot %d", d.slot)
	case command.HandlerHelp:
		for _, x := range d.registry.Directives() {
			d.presenter.printf("  %-16s %s", x.Usage, x.Help)
		}
	case command.HandlerQuit:
		return errQuit
	}
	return nil
}

func (d *driver) status() string {
	snap := d.sess.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "turn %d, score %d (combo %d), you %d/%d HP %d/%d AP at %s",
		snap.Turn, snap.Score.Score, snap.Score.Combo,
		snap.Player.HP, snap.Player.MaxHP, snap.Player.AP, snap.Player.MaxAP, snap.Player.Position)
	for i, e := range snap.Enemies {
		marker := " "
		if e.ID == d.sess.Target() {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n %s%d. %s %d/%d HP at %s", marker, i+1, e.Name, e.HP, e.MaxHP, e.Position)
	}
	fmt.Fprintf(&b, "\n skills: %s", strings.Join(snap.Player.Skills, ", "))
	return b.String()
}
