package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ballotdesk/internal/commands"
	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/resource"
)

// Defaults for a Runner.
const (
	DefaultTimeout  = time.Minute
	DefaultMaxSteps = 500
)

// Result describes a finished script.
type Result struct {
	// Command is what was pushed onto the history, nil when the script
	// did nothing.
	Command history.Command
	// Steps is the number of desk calls that ran.
	Steps int
	// Output holds the lines the script printed.
	Output []string
}

// Runner executes scripts through a History.
type Runner struct {
	history  *history.History
	factory  commands.Factory
	logger   *slog.Logger
	timeout  time.Duration
	maxSteps int
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds the wall time of a run, remote calls included.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxSteps limits the number of desk calls per run.
func WithMaxSteps(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner that builds commands with f and records them
// on h.
func NewRunner(h *history.History, f commands.Factory, opts ...Option) *Runner {
	r := &Runner{
		history:  h,
		factory:  f,
		logger:   slog.New(slog.DiscardHandler),
		timeout:  DefaultTimeout,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunFile runs the script at path. Relative paths given to
// desk.import_config resolve against the script's directory.
func (r *Runner) RunFile(ctx context.Context, path string) (Result, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.run(ctx, name, filepath.Dir(path), string(code))
}

// RunString runs code under the given name.
func (r *Runner) RunString(ctx context.Context, name, code string) (Result, error) {
	return r.run(ctx, name, ".", code)
}

func (r *Runner) run(ctx context.Context, name, dir, code string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var res Result
	L := newState(&res.Output)
	defer L.Close()
	L.SetContext(ctx)

	rec := r.history.Group("Script " + name)
	d := &desk{ctx: ctx, runner: r, rec: rec, dir: dir}
	L.SetGlobal("desk", L.SetFuncs(L.NewTable(), d.funcs()))

	start := time.Now()
	runErr := L.DoString(code)
	res.Steps = d.steps

	if runErr != nil {
		if d.err != nil && raisedBy(runErr, d.err) {
			// Report the Go error rather than its Lua rendering
			runErr = d.err
		}
		r.logger.Warn("script failed, rolling back", "script", name, "steps", d.steps, "err", runErr)
		// The run context may be the reason for failure
		if err := rec.Rollback(context.WithoutCancel(ctx)); err != nil {
			return res, fmt.Errorf("%w: %w (rollback: %w)", ErrRolledBack, runErr, err)
		}
		return res, fmt.Errorf("%w: %w", ErrRolledBack, runErr)
	}

	res.Command = rec.Commit()
	r.logger.Info("script finished", "script", name, "steps", d.steps, "duration", time.Since(start))
	return res, nil
}

// desk implements the Lua API of one run.
type desk struct {
	ctx    context.Context
	runner *Runner
	rec    *history.Recorder
	dir    string
	steps  int
	err    error
}

func (d *desk) funcs() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"import_config":     d.importConfig,
		"create_game":       d.createGame,
		"update_game":       d.updateGame,
		"nominate":          d.nominate,
		"remove_nomination": d.removeNomination,
	}
}

// do executes cmd through the recorder or raises a Lua error.
func (d *desk) do(L *lua.LState, cmd history.Command) {
	if d.steps >= d.runner.maxSteps {
		d.fail(L, ErrStepLimit)
	}
	if err := d.rec.Do(d.ctx, cmd); err != nil {
		d.fail(L, fmt.Errorf("%s: %w", cmd.Name(), err))
	}
	d.steps++
}

// raisedBy reports whether the Lua error that ended a run carries the
// message of err. A desk error caught by pcall is not the cause of a
// later, unrelated error.
func raisedBy(runErr, err error) bool {
	var apiErr *lua.ApiError
	if !errors.As(runErr, &apiErr) || apiErr.Object == nil {
		return false
	}
	return strings.Contains(apiErr.Object.String(), err.Error())
}

func (d *desk) fail(L *lua.LState, err error) {
	d.err = err
	L.RaiseError("%s", err.Error())
}

func (d *desk) importConfig(L *lua.LState) int {
	path := L.CheckString(1)
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.dir, path)
	}
	cfg, err := resource.ReadVotingConfig(path)
	if err != nil {
		d.fail(L, err)
	}
	d.do(L, d.runner.factory.ImportVotingConfig(cfg))
	return 0
}

func (d *desk) createGame(L *lua.LState) int {
	in := gameInput(L, L.CheckTable(1))
	cmd := d.runner.factory.CreateGame(in)
	d.do(L, cmd)
	L.Push(lua.LString(cmd.GameID()))
	return 1
}

func (d *desk) updateGame(L *lua.LState) int {
	id := L.CheckString(1)
	changes := L.CheckTable(2)
	cmd, err := d.runner.factory.PatchGame(d.ctx, id, func(in *resource.GameInput) {
		// Fields left out keep their current value
		for name, dst := range map[string]*string{
			"title":       &in.Title,
			"description": &in.Description,
			"status":      &in.Status,
		} {
			if v := field(L, changes, name); v != "" {
				*dst = v
			}
		}
	})
	if err != nil {
		d.fail(L, err)
	}
	d.do(L, cmd)
	return 0
}

func (d *desk) nominate(L *lua.LState) int {
	cmd := d.runner.factory.AddNomination(resource.NominationInput{
		GameID:   L.CheckString(1),
		Category: L.CheckString(2),
		Nominee:  L.CheckString(3),
	})
	d.do(L, cmd)
	L.Push(lua.LString(cmd.NominationID()))
	return 1
}

func (d *desk) removeNomination(L *lua.LState) int {
	d.do(L, d.runner.factory.RemoveNomination(L.CheckString(1)))
	return 0
}

func gameInput(L *lua.LState, t *lua.LTable) resource.GameInput {
	return resource.GameInput{
		Title:       field(L, t, "title"),
		Description: field(L, t, "description"),
		Status:      field(L, t, "status"),
	}
}

// IsRolledBack reports whether err came from a script that was undone.
func IsRolledBack(err error) bool {
	return errors.Is(err, ErrRolledBack)
}
