package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"
)

// counterStore is a fake remote store holding a single integer.
type counterStore struct {
	value int
	calls []string
}

// addCommand adds delta to the store; undo subtracts it.
type addCommand struct {
	Base
	store *counterStore
	delta int

	failExecute error
	failUndo    error
	failRedo    error
}

func newAddCommand(store *counterStore, delta int) *addCommand {
	return &addCommand{
		Base:  NewBase(KindSaveGame, fmt.Sprintf("Add %d", delta)),
		store: store,
		delta: delta,
	}
}

func (c *addCommand) Execute(ctx context.Context) error {
	c.store.calls = append(c.store.calls, "execute "+c.Name())
	if c.failExecute != nil {
		return c.failExecute
	}
	c.store.value += c.delta
	return nil
}

func (c *addCommand) Undo(ctx context.Context) error {
	c.store.calls = append(c.store.calls, "undo "+c.Name())
	if c.failUndo != nil {
		return c.failUndo
	}
	c.store.value -= c.delta
	return nil
}

func (c *addCommand) Redo(ctx context.Context) error {
	c.store.calls = append(c.store.calls, "redo "+c.Name())
	if c.failRedo != nil {
		return c.failRedo
	}
	c.store.value += c.delta
	return nil
}

func (c *addCommand) Serialize() any {
	return map[string]int{"delta": c.delta}
}

func ids(cmds ...Command) []string {
	out := make([]string, len(cmds))
	for i, cmd := range cmds {
		out[i] = cmd.ID()
	}
	return out
}

func recordIDs(records []Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.ID
	}
	return out
}

// Kind Tests

func TestKindValid(t *testing.T) {
	for _, k := range Kinds() {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
		if k.Label() == string(k) {
			t.Errorf("%q has no label", k)
		}
	}
	if Kind("game.delete").Valid() {
		t.Error("unknown kind should not be valid")
	}
}

func TestNewBase(t *testing.T) {
	a := NewBase(KindSaveGame, "Save game")
	b := NewBase(KindSaveGame, "Save game")

	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("ids should be unique and non-empty: %q %q", a.ID(), b.ID())
	}
	if a.Kind() != KindSaveGame || a.Name() != "Save game" {
		t.Error("wrong identity fields")
	}
	if a.Timestamp().IsZero() {
		t.Error("timestamp not set")
	}
}

// History Tests

func TestHistoryRunAndUndo(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	if err := h.Run(ctx, newAddCommand(store, 5)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if store.value != 5 {
		t.Errorf("after run: got %d, want 5", store.value)
	}

	ok, err := h.Undo(ctx)
	if err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if store.value != 0 {
		t.Errorf("after undo: got %d, want 0", store.value)
	}

	ok, err = h.Redo(ctx)
	if err != nil || !ok {
		t.Fatalf("Redo = %v, %v", ok, err)
	}
	if store.value != 5 {
		t.Errorf("after redo: got %d, want 5", store.value)
	}

	want := []string{"execute Add 5", "undo Add 5", "redo Add 5"}
	if !slices.Equal(store.calls, want) {
		t.Errorf("calls = %v, want %v", store.calls, want)
	}
}

func TestHistoryRunFailureLeavesHistoryUntouched(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	first := newAddCommand(store, 1)
	if err := h.Run(ctx, first); err != nil {
		t.Fatal(err)
	}
	before := h.State()

	boom := errors.New("remote unavailable")
	failing := newAddCommand(store, 2)
	failing.failExecute = boom

	if err := h.Run(ctx, failing); !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}

	if got := h.State(); got.Cursor != before.Cursor || got.Size != before.Size {
		t.Errorf("state changed: got %+v, want %+v", got, before)
	}
	if got := recordIDs(h.Serialize(nil)); !slices.Equal(got, ids(first)) {
		t.Errorf("stack = %v, want %v", got, ids(first))
	}
}

func TestHistoryRunNil(t *testing.T) {
	h := New()
	if err := h.Run(context.Background(), nil); !errors.Is(err, ErrNilCommand) {
		t.Errorf("expected ErrNilCommand, got %v", err)
	}
}

func TestHistoryRedoTailTruncated(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	a := newAddCommand(store, 1)
	b := newAddCommand(store, 10)
	c := newAddCommand(store, 100)

	h.Run(ctx, a)
	h.Run(ctx, b)
	h.Undo(ctx)

	if !h.CanRedo() {
		t.Error("should be able to redo")
	}

	// New command clears redo tail
	h.Run(ctx, c)

	if h.CanRedo() {
		t.Error("redo should be cleared after new command")
	}
	if got := recordIDs(h.Serialize(nil)); !slices.Equal(got, ids(a, c)) {
		t.Errorf("stack = %v, want [A C]", got)
	}
	if store.value != 101 {
		t.Errorf("store = %d, want 101", store.value)
	}
}

func TestHistoryCursorAfterRun(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New(WithCapacity(4))

	for i := 0; i < 10; i++ {
		if err := h.Run(ctx, newAddCommand(store, i)); err != nil {
			t.Fatal(err)
		}
		state := h.State()
		if state.Size > 4 {
			t.Fatalf("size %d exceeds capacity", state.Size)
		}
		if state.Cursor != state.Size-1 {
			t.Fatalf("cursor = %d, want %d", state.Cursor, state.Size-1)
		}
	}
}

func TestHistoryCapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New(WithCapacity(3))

	var cmds []Command
	for i := 0; i < 4; i++ {
		cmd := newAddCommand(store, i)
		cmds = append(cmds, cmd)
		h.Run(ctx, cmd)
	}

	state := h.State()
	if state.Size != 3 {
		t.Errorf("size = %d, want 3", state.Size)
	}
	if state.Cursor < -1 || state.Cursor > state.Size-1 {
		t.Errorf("cursor %d out of range", state.Cursor)
	}
	if got := recordIDs(h.Serialize(nil)); !slices.Equal(got, ids(cmds[1:]...)) {
		t.Errorf("stack = %v, want %v", got, ids(cmds[1:]...))
	}

	// Only three undos are available
	for i := 0; i < 3; i++ {
		if ok, _ := h.Undo(ctx); !ok {
			t.Fatalf("undo %d should succeed", i)
		}
	}
	if ok, _ := h.Undo(ctx); ok {
		t.Error("evicted command should not be undoable")
	}
}

func TestHistoryEvictionAfterUndo(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New(WithCapacity(2))

	h.Run(ctx, newAddCommand(store, 1))
	h.Run(ctx, newAddCommand(store, 2))
	h.Undo(ctx)
	h.Undo(ctx)
	h.Run(ctx, newAddCommand(store, 3))

	state := h.State()
	if state.Size != 1 || state.Cursor != 0 {
		t.Errorf("state = %+v, want size 1 cursor 0", state)
	}
}

func TestHistoryUndoEmpty(t *testing.T) {
	h := New()

	var deliveries int
	h.Subscribe(OnChange(func(State) { deliveries++ }))

	ok, err := h.Undo(context.Background())
	if ok || err != nil {
		t.Errorf("Undo = %v, %v, want false, nil", ok, err)
	}
	if deliveries != 1 {
		t.Errorf("deliveries = %d, want only the initial one", deliveries)
	}
	if state := h.State(); state.Cursor != -1 || state.Size != 0 {
		t.Errorf("state changed: %+v", state)
	}
}

func TestHistoryRedoAtEnd(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()
	h.Run(ctx, newAddCommand(store, 1))

	before := h.State()
	ok, err := h.Redo(ctx)
	if ok || err != nil {
		t.Errorf("Redo = %v, %v, want false, nil", ok, err)
	}
	if after := h.State(); after.Cursor != before.Cursor || after.Size != before.Size {
		t.Errorf("state changed: %+v -> %+v", before, after)
	}
	if store.value != 1 {
		t.Errorf("store touched: %d", store.value)
	}
}

func TestHistoryCanUndoRedo(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	if h.CanUndo() {
		t.Error("should not be able to undo initially")
	}
	if h.CanRedo() {
		t.Error("should not be able to redo initially")
	}

	h.Run(ctx, newAddCommand(store, 1))

	if !h.CanUndo() {
		t.Error("should be able to undo after run")
	}
	if h.CanRedo() {
		t.Error("should not be able to redo after run")
	}

	h.Undo(ctx)

	if h.CanUndo() {
		t.Error("should not be able to undo after undoing single command")
	}
	if !h.CanRedo() {
		t.Error("should be able to redo after undo")
	}
}

func TestHistoryUndoFailureKeepsCursor(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	cmd := newAddCommand(store, 7)
	h.Run(ctx, cmd)

	boom := errors.New("network error")
	cmd.failUndo = boom

	ok, err := h.Undo(ctx)
	if ok || !errors.Is(err, boom) {
		t.Fatalf("Undo = %v, %v", ok, err)
	}

	state := h.State()
	if state.Cursor != 0 {
		t.Errorf("cursor = %d, want 0", state.Cursor)
	}
	if !state.Desynchronized {
		t.Error("history should be desynchronized")
	}
	if state.Suspect == nil || state.Suspect.ID != cmd.ID() {
		t.Errorf("suspect = %+v, want %s", state.Suspect, cmd.ID())
	}

	// A successful retry clears the flag
	cmd.failUndo = nil
	if ok, err := h.Undo(ctx); !ok || err != nil {
		t.Fatalf("retry Undo = %v, %v", ok, err)
	}
	state = h.State()
	if state.Desynchronized || state.Suspect != nil {
		t.Errorf("history should be back in sync: %+v", state)
	}
	if state.Cursor != -1 {
		t.Errorf("cursor = %d, want -1", state.Cursor)
	}
}

// A remote call that applied before failing leaves the store ahead of the
// cursor. The history reports it instead of guessing.
func TestHistoryPartialRemoteFailure(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	cmd := newAddCommand(store, 3)
	h.Run(ctx, cmd)

	cmd.failUndo = errors.New("timeout after commit")
	store.value -= cmd.delta // the server applied the undo anyway

	if _, err := h.Undo(ctx); err == nil {
		t.Fatal("expected error")
	}

	state := h.State()
	if state.Cursor != 0 || !state.CanUndo {
		t.Errorf("cursor should still point at the command: %+v", state)
	}
	if store.value != 0 {
		t.Errorf("store = %d, want 0", store.value)
	}
	if !state.Desynchronized {
		t.Error("mismatch should be flagged")
	}

	h.Reconcile(ctx)
	if h.State().Desynchronized {
		t.Error("Reconcile should clear the flag")
	}
}

func TestHistoryRedoFailureKeepsCursor(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	cmd := newAddCommand(store, 2)
	h.Run(ctx, cmd)
	h.Undo(ctx)

	cmd.failRedo = errors.New("conflict")
	ok, err := h.Redo(ctx)
	if ok || err == nil {
		t.Fatalf("Redo = %v, %v", ok, err)
	}
	if state := h.State(); state.Cursor != -1 || !state.CanRedo || !state.Desynchronized {
		t.Errorf("state = %+v", state)
	}
}

func TestHistoryClear(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	h.Run(ctx, newAddCommand(store, 1))
	h.Clear()

	if h.CanUndo() || h.CanRedo() {
		t.Error("history should be empty after clear")
	}
	if state := h.State(); state.Cursor != -1 || state.Size != 0 {
		t.Errorf("state = %+v", state)
	}
}

func TestHistorySetCapacity(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New(WithCapacity(10))

	for i := 0; i < 5; i++ {
		h.Run(ctx, newAddCommand(store, i))
	}
	h.Undo(ctx)

	h.SetCapacity(2)

	state := h.State()
	if state.Size != 2 || state.Capacity != 2 {
		t.Errorf("state = %+v", state)
	}
	if state.Cursor != 0 {
		t.Errorf("cursor = %d, want 0", state.Cursor)
	}

	h.SetCapacity(0)
	if h.Capacity() != DefaultCapacity {
		t.Errorf("capacity = %d, want default", h.Capacity())
	}
}

// Subscription Tests

func TestHistorySubscribe(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	var states []State
	unsubscribe := h.Subscribe(OnChange(func(s State) { states = append(states, s) }))

	if len(states) != 1 || states[0].Cursor != -1 {
		t.Fatalf("initial delivery = %+v", states)
	}

	h.Run(ctx, newAddCommand(store, 1))
	h.Undo(ctx)
	h.Redo(ctx)

	if len(states) != 4 {
		t.Fatalf("deliveries = %d, want 4", len(states))
	}
	want := []int{-1, 0, -1, 0}
	for i, s := range states {
		if s.Cursor != want[i] {
			t.Errorf("delivery %d cursor = %d, want %d", i, s.Cursor, want[i])
		}
	}
	if !states[1].CanUndo || states[1].CanRedo || states[1].Size != 1 {
		t.Errorf("state after run = %+v", states[1])
	}

	unsubscribe()
	unsubscribe()
	h.Undo(ctx)
	if len(states) != 4 {
		t.Error("listener should not be called after unsubscribe")
	}
}

func TestHistorySubscribeSameListenerOnce(t *testing.T) {
	ctx := context.Background()
	h := New()

	var calls int
	l := OnChange(func(State) { calls++ })
	h.Subscribe(l)
	h.Subscribe(l)
	calls = 0

	h.Run(ctx, newAddCommand(&counterStore{}, 1))
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// valueListener is a non-pointer listener with an uncomparable field.
type valueListener struct {
	fn func(State)
}

func (l valueListener) HistoryChanged(s State) { l.fn(s) }

func TestHistorySubscribeUncomparableListener(t *testing.T) {
	ctx := context.Background()
	h := New()

	var calls int
	l := valueListener{fn: func(State) { calls++ }}
	first := h.Subscribe(l)
	second := h.Subscribe(l)
	calls = 0

	h.Run(ctx, newAddCommand(&counterStore{}, 1))
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one per registration)", calls)
	}

	first()
	second()
	calls = 0
	h.Run(ctx, newAddCommand(&counterStore{}, 1))
	if calls != 0 {
		t.Errorf("calls = %d after unsubscribe, want 0", calls)
	}
}

// Serialization Tests

func TestHistorySerialize(t *testing.T) {
	ctx := context.Background()
	store := &counterStore{}
	h := New()

	var cmds []*addCommand
	for i := 1; i <= 3; i++ {
		cmd := newAddCommand(store, i)
		cmds = append(cmds, cmd)
		h.Run(ctx, cmd)
	}
	h.Undo(ctx)

	records := h.Serialize(RecordVisitor{})
	if len(records) != h.State().Size {
		t.Fatalf("got %d records, want %d", len(records), h.State().Size)
	}
	for i, rec := range records {
		cmd := cmds[i]
		if rec.ID != cmd.ID() || rec.Kind != cmd.Kind() || rec.Name != cmd.Name() || !rec.Timestamp.Equal(cmd.Timestamp()) {
			t.Errorf("record %d = %+v does not match command", i, rec)
		}
		var payload map[string]int
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload["delta"] != cmd.delta {
			t.Errorf("payload delta = %d, want %d", payload["delta"], cmd.delta)
		}
	}

	// Records are detached from live state
	records[0].Payload[0] = 'x'
	again := h.Serialize(nil)
	if again[0].Payload[0] == 'x' {
		t.Error("record payload aliases command state")
	}
}

func TestHistorySerializeCustomVisitor(t *testing.T) {
	ctx := context.Background()
	h := New()
	h.Run(ctx, newAddCommand(&counterStore{}, 1))

	records := h.Serialize(VisitorFunc(func(cmd Command) Record {
		return Record{ID: cmd.ID(), Name: "custom"}
	}))
	if len(records) != 1 || records[0].Name != "custom" {
		t.Errorf("records = %+v", records)
	}
}

func TestHistoryPeek(t *testing.T) {
	ctx := context.Background()
	h := New()

	if _, ok := h.PeekUndo(); ok {
		t.Error("PeekUndo should return false when empty")
	}

	cmd := newAddCommand(&counterStore{}, 1)
	h.Run(ctx, cmd)

	rec, ok := h.PeekUndo()
	if !ok || rec.ID != cmd.ID() {
		t.Errorf("PeekUndo = %+v, %v", rec, ok)
	}
	if _, ok := h.PeekRedo(); ok {
		t.Error("PeekRedo should return false at end")
	}

	// Stack should be unchanged
	if h.State().Cursor != 0 {
		t.Error("PeekUndo should not modify stack")
	}
}

// Observer Tests

type recordingObserver struct {
	ops []Op
}

func (o *recordingObserver) ObserveOperation(op Op, kind Kind, _ time.Duration, _ error) {
	o.ops = append(o.ops, op)
}

func TestHistoryObserver(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	h := New(WithObserver(obs))

	h.Run(ctx, newAddCommand(&counterStore{}, 1))
	h.Undo(ctx)
	h.Redo(ctx)
	h.Redo(ctx) // no-op, not observed

	want := []Op{OpRun, OpUndo, OpRedo}
	if !slices.Equal(obs.ops, want) {
		t.Errorf("ops = %v, want %v", obs.ops, want)
	}
}
