package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/ballotdesk/internal/audit"
	"github.com/dshills/ballotdesk/internal/commands"
	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/resource"
	"github.com/dshills/ballotdesk/internal/script"
)

// ErrQuit signals that the operator asked to leave.
var ErrQuit = errors.New("quit requested")

// ErrUsage is returned for malformed input lines.
var ErrUsage = errors.New("usage")

// Help lists the input commands.
const Help = `import <file>                       import a voting config (toml, yaml, json)
game new <title>                    create a game
game set <id> <title>               rename a game
games                               list known games
nominate <game> <category> <name>   add a nomination
unnominate <id>                     remove a nomination
script <file>                       run a Lua script as one undo unit
undo | redo                         step through history
reconcile                           clear the desynchronized flag
export <file>                       write the history as json or yaml
quit                                leave`

// Session executes operator commands against one history.
// It is not safe for concurrent use; the console calls it from a single
// worker goroutine.
type Session struct {
	History *history.History
	Factory commands.Factory
	Mirror  *commands.Mirror
	Scripts *script.Runner

	now func() time.Time
}

// NewSession wires a session around h and store. The mirror is filled by
// the commands' sync callbacks.
func NewSession(h *history.History, store resource.Store, opts ...script.Option) *Session {
	mirror := commands.NewMirror()
	factory := commands.Factory{Store: store, Mirror: mirror}
	return &Session{
		History: h,
		Factory: factory,
		Mirror:  mirror,
		Scripts: script.NewRunner(h, factory, opts...),
		now:     time.Now,
	}
}

// Exec runs one input line and returns a status message.
func (s *Session) Exec(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "import":
		if len(args) != 1 {
			return "", usage("import <file>")
		}
		cfg, err := resource.ReadVotingConfig(args[0])
		if err != nil {
			return "", err
		}
		return s.run(ctx, s.Factory.ImportVotingConfig(cfg))

	case "game":
		return s.game(ctx, args)

	case "games":
		return s.games(), nil

	case "nominate":
		if len(args) < 3 {
			return "", usage("nominate <game> <category> <name>")
		}
		return s.run(ctx, s.Factory.AddNomination(resource.NominationInput{
			GameID:   args[0],
			Category: args[1],
			Nominee:  strings.Join(args[2:], " "),
		}))

	case "unnominate":
		if len(args) != 1 {
			return "", usage("unnominate <id>")
		}
		return s.run(ctx, s.Factory.RemoveNomination(args[0]))

	case "script":
		if len(args) != 1 {
			return "", usage("script <file>")
		}
		res, err := s.Scripts.RunFile(ctx, args[0])
		if err != nil {
			return "", err
		}
		if res.Command == nil {
			return "script made no changes", nil
		}
		return fmt.Sprintf("%s: %d steps", res.Command.Name(), res.Steps), nil

	case "undo":
		return s.step(ctx, "undo", s.History.Undo)

	case "redo":
		return s.step(ctx, "redo", s.History.Redo)

	case "reconcile":
		s.History.Reconcile(ctx)
		return "history marked as reconciled", nil

	case "export":
		if len(args) != 1 {
			return "", usage("export <file>")
		}
		exp, err := audit.Snapshot(s.History, nil, s.now())
		if err != nil {
			return "", err
		}
		if err := audit.WriteFile(args[0], exp); err != nil {
			return "", err
		}
		return fmt.Sprintf("exported %d commands to %s", len(exp.Entries), args[0]), nil

	case "help", "?":
		return Help, nil

	case "quit", "exit":
		return "", ErrQuit
	}
	return "", fmt.Errorf("unknown command %q, try help", verb)
}

func (s *Session) game(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", usage("game new <title> | game set <id> <title>")
	}
	switch args[0] {
	case "new":
		if len(args) < 2 {
			return "", usage("game new <title>")
		}
		cmd := s.Factory.CreateGame(resource.GameInput{Title: strings.Join(args[1:], " ")})
		msg, err := s.run(ctx, cmd)
		if err != nil {
			return "", err
		}
		return msg + " as " + cmd.GameID(), nil
	case "set":
		if len(args) < 3 {
			return "", usage("game set <id> <title>")
		}
		title := strings.Join(args[2:], " ")
		cmd, err := s.Factory.PatchGame(ctx, args[1], func(in *resource.GameInput) {
			in.Title = title
		})
		if err != nil {
			return "", err
		}
		return s.run(ctx, cmd)
	}
	return "", usage("game new <title> | game set <id> <title>")
}

func (s *Session) games() string {
	games := s.Mirror.Games()
	if len(games) == 0 {
		return "no games"
	}
	lines := make([]string, len(games))
	for i, g := range games {
		lines[i] = fmt.Sprintf("%s  %-6s  %s", g.ID, g.Status, g.Title)
	}
	return strings.Join(lines, "\n")
}

func (s *Session) run(ctx context.Context, cmd history.Command) (string, error) {
	if err := s.History.Run(ctx, cmd); err != nil {
		return "", err
	}
	return cmd.Name(), nil
}

func (s *Session) step(ctx context.Context, verb string, fn func(context.Context) (bool, error)) (string, error) {
	peek := s.History.PeekUndo
	if verb == "redo" {
		peek = s.History.PeekRedo
	}
	rec, ok := peek()
	if !ok {
		return "nothing to " + verb, nil
	}
	if _, err := fn(ctx); err != nil {
		return "", fmt.Errorf("%s %q: %w", verb, rec.Name, err)
	}
	return verb + " " + rec.Name, nil
}

func usage(form string) error {
	return fmt.Errorf("%w: %s", ErrUsage, form)
}
