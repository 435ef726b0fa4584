// Command autoplay plays battles against a running server through the REST
// API. Each ally turn it selects the next pending unit, asks the server for
// its reachable tiles, lets a strategy pick a destination and ends the
// action. The enemy side is played by the server.
//
// The session id is saved to .session so a later run can continue the same
// battle.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
)

const sessionFile = ".session"

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "play battles against a tactics grid server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("API_URL")},
			&cli.StringFlag{Name: "config", Usage: "scenario id for a new session"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by id"},
			&cli.StringFlag{Name: "strategy", Value: "advance", Usage: "advance or hold"},
			&cli.IntFlag{Name: "rounds", Value: 10, Usage: "rounds to play before stopping"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between actions"},
			&cli.BoolFlag{Name: "v", Usage: "verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := zerolog.InfoLevel
			if cmd.Bool("v") {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()

			strategy, ok := strategyByName(cmd.String("strategy"))
			if !ok {
				return cli.Exit(fmt.Sprintf("unknown strategy %q", cmd.String("strategy")), 2)
			}

			client := NewClient(cmd.String("url"))
			log.Info().Str("url", cmd.String("url")).Msg("connecting to game server")

			if err := openSession(ctx, client, cmd.String("continue"), cmd.String("config"), log); err != nil {
				return err
			}

			p := &Player{
				client:   client,
				strategy: strategy,
				delay:    cmd.Duration("delay"),
				log:      log,
			}
			stats, err := p.Play(ctx, int(cmd.Int("rounds")))
			if err != nil {
				return err
			}
			log.Info().
				Str("session", client.SessionID()).
				Int("rounds", stats.Rounds).
				Int("moves", stats.Moves).
				Int("holds", stats.Holds).
				Int("rejected", stats.Rejected).
				Msg("done")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "autoplay: %v\n", err)
		os.Exit(1)
	}
}

// openSession resumes the requested or saved session, or creates a new one
// and remembers its id
func openSession(ctx context.Context, client *Client, explicit, configID string, log zerolog.Logger) error {
	saved := explicit
	if saved == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			saved = strings.TrimSpace(string(data))
		}
	}

	if saved != "" {
		state, err := client.Resume(ctx, saved)
		if err == nil {
			log.Info().Str("session", saved).Int("round", state.Round).Msg("resumed session")
			return nil
		}
		log.Warn().Err(err).Str("session", saved).Msg("failed to resume session, creating a new one")
	}

	info, err := client.CreateSession(ctx, configID)
	if err != nil {
		return err
	}
	log.Info().
		Str("session", info.ID).
		Str("config", info.ConfigID).
		Int("width", info.State.Width).
		Int("height", info.State.Height).
		Msg("session created")

	if err := os.WriteFile(sessionFile, []byte(info.ID), 0644); err != nil {
		log.Warn().Err(err).Msg("failed to save session id")
	}
	return nil
}

// Stats counts what a Player did
type Stats struct {
	Rounds   int
	Moves    int
	Holds    int
	Rejected int
}

// Player runs the ally side of one session
type Player struct {
	client   *Client
	strategy Strategy
	delay    time.Duration
	log      zerolog.Logger
}

// Play takes ally actions until rounds more rounds have passed. A battle
// that stopped because nobody can give input is restarted once per round.
func (p *Player) Play(ctx context.Context, rounds int) (Stats, error) {
	var stats Stats

	state, err := p.client.State(ctx)
	if err != nil {
		return stats, err
	}
	last := state.Round + rounds

	for state.Round < last {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if !state.Started || !state.AwaitingInput || state.ActiveFaction != engine.Ally {
			result, err := p.client.NewRound(ctx)
			if err != nil {
				return stats, err
			}
			if !result.State.AwaitingInput {
				// No allies left to command, the enemy played the whole round
				stats.Rounds++
			}
			state = result.State
			continue
		}

		round := state.Round
		state, err = p.takeAction(ctx, state, &stats)
		if err != nil {
			return stats, err
		}
		if state.Round != round {
			stats.Rounds += state.Round - round
			p.log.Info().Int("round", state.Round).Msg("next round")
		}

		if p.delay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(p.delay):
			}
		}
	}
	return stats, nil
}

// takeAction plays one ally unit and returns the state after the enemy
// reacted
func (p *Player) takeAction(ctx context.Context, state *engine.State, stats *Stats) (*engine.State, error) {
	if len(state.PendingAlly) == 0 {
		return p.endAction(ctx, stats)
	}
	id := state.PendingAlly[0]

	result, err := p.client.Select(ctx, id)
	if err != nil {
		if !p.rejected(err, stats) {
			return nil, err
		}
		return p.endAction(ctx, stats)
	}

	unit, ok := unitByID(result.State, id)
	if !ok {
		return nil, fmt.Errorf("selected unit %d missing from state", id)
	}

	if target, move := p.strategy.Choose(result.State, unit, result.State.Reachable); move {
		if _, err := p.client.Move(ctx, target); err != nil {
			if !p.rejected(err, stats) {
				return nil, err
			}
		} else {
			stats.Moves++
			p.log.Debug().Int("unit", int(id)).Stringer("from", unit.Position).Stringer("to", target).Msg("moved")
		}
	} else {
		stats.Holds++
		p.log.Debug().Int("unit", int(id)).Stringer("at", unit.Position).Msg("holding")
	}

	return p.endAction(ctx, stats)
}

func (p *Player) endAction(ctx context.Context, stats *Stats) (*engine.State, error) {
	result, err := p.client.EndAction(ctx)
	if err != nil {
		p.rejected(err, stats)
		return nil, err
	}
	for _, ev := range result.Events {
		p.log.Debug().Str("event", string(ev.Type)).Int("unit", int(ev.Unit)).Msg("battle event")
	}
	return result.State, nil
}

// rejected counts and logs a refused intent. It reports false for transport
// errors, which stop play.
func (p *Player) rejected(err error, stats *Stats) bool {
	var rej *RejectedError
	if !errors.As(err, &rej) {
		return false
	}
	stats.Rejected++
	p.log.Warn().Str("action", rej.Action).Str("code", rej.Code).Msg(rej.Message)
	return true
}
