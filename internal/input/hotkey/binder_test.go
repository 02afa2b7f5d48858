package hotkey

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/dshills/ballotdesk/internal/input/key"
)

type fakeHistory struct {
	canUndo bool
	canRedo bool
	err     error
	calls   []string
}

func (f *fakeHistory) CanUndo() bool { return f.canUndo }
func (f *fakeHistory) CanRedo() bool { return f.canRedo }

func (f *fakeHistory) Undo(context.Context) (bool, error) {
	f.calls = append(f.calls, "undo")
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func (f *fakeHistory) Redo(context.Context) (bool, error) {
	f.calls = append(f.calls, "redo")
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func newTestBinder(h History, handled *[]Action) *Binder {
	return NewBinder(h,
		WithBindings(DefaultBindings("linux")),
		WithOnHandled(func(a Action) { *handled = append(*handled, a) }),
	)
}

func TestBinderDefaultChords(t *testing.T) {
	tests := []struct {
		name  string
		event key.Event
		want  string
	}{
		{"ctrl z", key.RuneEvent('z', key.ModCtrl), "undo"},
		{"ctrl y", key.RuneEvent('y', key.ModCtrl), "redo"},
		{"ctrl shift z", key.RuneEvent('z', key.ModCtrl|key.ModShift), "redo"},
		{"ctrl uppercase z", key.RuneEvent('Z', key.ModCtrl), "redo"},
	}

	for _, tt := range tests {
		h := &fakeHistory{canUndo: true, canRedo: true}
		var handled []Action
		b := newTestBinder(h, &handled)

		ok, err := b.Handle(context.Background(), tt.event, Passive)
		if err != nil || !ok {
			t.Errorf("%s: Handle() = %v, %v", tt.name, ok, err)
			continue
		}
		if !slices.Equal(h.calls, []string{tt.want}) {
			t.Errorf("%s: calls = %v, want [%s]", tt.name, h.calls, tt.want)
		}
		if !slices.Equal(handled, []Action{Action(tt.want)}) {
			t.Errorf("%s: handled = %v", tt.name, handled)
		}
	}
}

func TestBinderIgnoresEditableTarget(t *testing.T) {
	events := []key.Event{
		key.RuneEvent('z', key.ModCtrl),
		key.RuneEvent('y', key.ModCtrl),
		key.RuneEvent('z', key.ModCtrl|key.ModShift),
		key.RuneEvent('z', key.ModMeta),
		key.RuneEvent('a', key.ModNone),
	}

	h := &fakeHistory{canUndo: true, canRedo: true}
	var handled []Action
	b := newTestBinder(h, &handled)

	for _, ev := range events {
		ok, err := b.Handle(context.Background(), ev, Editable)
		if ok || err != nil {
			t.Errorf("Handle(%s) in editable target = %v, %v", ev, ok, err)
		}
	}
	if len(h.calls) != 0 {
		t.Errorf("history should not be touched, got %v", h.calls)
	}
	if len(handled) != 0 {
		t.Errorf("no action should be reported, got %v", handled)
	}
}

func TestBinderGuards(t *testing.T) {
	h := &fakeHistory{}
	var handled []Action
	b := newTestBinder(h, &handled)
	ctx := context.Background()

	if ok, _ := b.Handle(ctx, key.MustParse("Ctrl+Z"), Passive); ok {
		t.Error("undo should not run when CanUndo is false")
	}
	if ok, _ := b.Handle(ctx, key.MustParse("Ctrl+Y"), Passive); ok {
		t.Error("redo should not run when CanRedo is false")
	}
	if len(h.calls) != 0 || len(handled) != 0 {
		t.Errorf("calls = %v handled = %v", h.calls, handled)
	}
}

func TestBinderUnboundKey(t *testing.T) {
	h := &fakeHistory{canUndo: true, canRedo: true}
	var handled []Action
	b := newTestBinder(h, &handled)

	for _, spec := range []string{"z", "Alt+Z", "Meta+Z", "Enter"} {
		if ok, _ := b.Handle(context.Background(), key.MustParse(spec), nil); ok {
			t.Errorf("%s should not be handled", spec)
		}
	}
	if len(h.calls) != 0 {
		t.Errorf("calls = %v", h.calls)
	}
}

func TestBinderFailure(t *testing.T) {
	boom := errors.New("remote down")
	h := &fakeHistory{canUndo: true, err: boom}
	var handled []Action
	b := newTestBinder(h, &handled)

	ok, err := b.Handle(context.Background(), key.MustParse("Ctrl+Z"), Passive)
	if !ok || !errors.Is(err, boom) {
		t.Errorf("Handle() = %v, %v", ok, err)
	}
	if len(handled) != 0 {
		t.Errorf("failed action should not be reported, got %v", handled)
	}
}

func TestBinderDarwinChords(t *testing.T) {
	h := &fakeHistory{canUndo: true, canRedo: true}
	b := NewBinder(h, WithBindings(DefaultBindings("darwin")))
	ctx := context.Background()

	if ok, _ := b.Handle(ctx, key.MustParse("Meta+Z"), Passive); !ok {
		t.Error("Meta+Z should undo on darwin")
	}
	if ok, _ := b.Handle(ctx, key.MustParse("<D-S-z>"), Passive); !ok {
		t.Error("Meta+Shift+Z should redo on darwin")
	}
	if ok, _ := b.Handle(ctx, key.MustParse("Ctrl+Z"), Passive); ok {
		t.Error("Ctrl+Z should not be bound on darwin")
	}
	if !slices.Equal(h.calls, []string{"undo", "redo"}) {
		t.Errorf("calls = %v", h.calls)
	}
}

func TestBinderSetBindings(t *testing.T) {
	h := &fakeHistory{canUndo: true, canRedo: true}
	b := NewBinder(h, WithBindings(DefaultBindings("linux")))
	ctx := context.Background()

	custom, err := ParseBindings([]string{"F5"}, []string{"F6"})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetBindings(custom); err != nil {
		t.Fatal(err)
	}

	if ok, _ := b.Handle(ctx, key.MustParse("Ctrl+Z"), Passive); ok {
		t.Error("old chord should be unbound")
	}
	if ok, _ := b.Handle(ctx, key.SpecialEvent(key.KeyF5, key.ModNone), Passive); !ok {
		t.Error("F5 should undo")
	}

	if err := b.SetBindings(Bindings{Redo: custom.Redo}); !errors.Is(err, ErrNoChord) {
		t.Errorf("expected ErrNoChord, got %v", err)
	}
	if got := b.Bindings(); len(got.Undo) != 1 || got.Undo[0] != custom.Undo[0] {
		t.Errorf("bindings changed after rejected update: %v", got)
	}
}

func TestParseBindings(t *testing.T) {
	b, err := ParseBindings([]string{"<C-z>"}, []string{"Ctrl+Y", "Ctrl+Shift+Z"})
	if err != nil {
		t.Fatal(err)
	}
	undo, redo := b.Specs()
	if !slices.Equal(undo, []string{"Ctrl+Z"}) || !slices.Equal(redo, []string{"Ctrl+Y", "Ctrl+Shift+Z"}) {
		t.Errorf("specs = %v %v", undo, redo)
	}
	if b.String() != "undo=Ctrl+Z redo=Ctrl+Y,Ctrl+Shift+Z" {
		t.Errorf("String() = %q", b.String())
	}

	if _, err := ParseBindings([]string{"Bogus+Z"}, []string{"Ctrl+Y"}); !errors.Is(err, key.ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec, got %v", err)
	}
	if _, err := ParseBindings([]string{"Ctrl+Z"}, []string{"<C-z>"}); err == nil {
		t.Error("same chord for undo and redo should be rejected")
	}
	if _, err := ParseBindings(nil, []string{"Ctrl+Y"}); !errors.Is(err, ErrNoChord) {
		t.Errorf("expected ErrNoChord, got %v", err)
	}
}
