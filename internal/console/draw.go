package console

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/ballotdesk/internal/engine/history"
)

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Bold(true)
	styleCursor  = tcell.StyleDefault.Reverse(true)
	styleRedo    = tcell.StyleDefault.Dim(true)
	styleStatus  = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleDesync  = tcell.StyleDefault.Background(tcell.ColorMaroon).Foreground(tcell.ColorWhite).Bold(true)
	styleError   = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleFocused = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
)

// maxMessageLines caps how much of the screen a message may take.
const maxMessageLines = 12

func (c *Console) draw() {
	c.screen.Clear()
	w, h := c.screen.Size()
	if w <= 0 || h < 5 {
		c.screen.Show()
		return
	}

	state := c.historyState()
	records := c.session.History.Serialize(history.RecordVisitor{OmitPayload: true})

	msgLines := strings.Split(c.message, "\n")
	if len(msgLines) > maxMessageLines {
		msgLines = append(msgLines[:maxMessageLines-1], "...")
	}
	listTop, listBottom := 1, h-3-len(msgLines)

	// Title
	title := "ballotdesk history"
	titleStyle := styleTitle
	if c.focus == focusHistory {
		title += " [focused]"
		titleStyle = styleFocused
	}
	drawText(c.screen, 0, 0, w, titleStyle, title)

	// History list, newest at the bottom
	rows := listBottom - listTop + 1
	if rows > 0 {
		end := max(len(records)-c.scroll, 0)
		start := max(end-rows, 0)
		for i := start; i < end; i++ {
			y := listTop + i - start
			drawText(c.screen, 0, y, w, recordStyle(i, state.Cursor), formatRecord(i, state.Cursor, records[i]))
		}
		if len(records) == 0 {
			drawText(c.screen, 2, listTop, w-2, styleRedo, "(empty)")
		}
	}

	// Messages
	msgStyle := styleDefault
	if c.isError {
		msgStyle = styleError
	}
	for i, line := range msgLines {
		drawText(c.screen, 0, h-2-len(msgLines)+i, w, msgStyle, line)
	}

	// Status line
	statusStyle := styleStatus
	if state.Desynchronized {
		statusStyle = styleDesync
	}
	fill(c.screen, 0, h-2, w, statusStyle)
	drawText(c.screen, 0, h-2, w, statusStyle, formatStatus(state, c.busy))

	// Input
	prompt := "> "
	inputStyle := styleDefault
	if c.focus == focusInput {
		inputStyle = styleFocused
	}
	drawText(c.screen, 0, h-1, w, inputStyle, prompt)
	drawText(c.screen, len(prompt), h-1, w-len(prompt), styleDefault, string(c.input))
	if c.focus == focusInput {
		c.screen.ShowCursor(min(len(prompt)+len(c.input), w-1), h-1)
	} else {
		c.screen.HideCursor()
	}

	c.screen.Show()
}

func recordStyle(i, cursor int) tcell.Style {
	switch {
	case i == cursor:
		return styleCursor
	case i > cursor:
		return styleRedo
	}
	return styleDefault
}

func formatRecord(i, cursor int, rec history.Record) string {
	marker := "  "
	if i == cursor {
		marker = "> "
	}
	return fmt.Sprintf("%s%3d  %s  %-20s %s", marker, i, rec.Timestamp.Format("15:04:05"), rec.Kind, rec.Name)
}

func formatStatus(s history.State, busy int) string {
	var b strings.Builder
	fmt.Fprintf(&b, " cursor %d/%d  cap %d  undo:%s  redo:%s", s.Cursor, s.Size, s.Capacity, yesNo(s.CanUndo), yesNo(s.CanRedo))
	if s.Desynchronized {
		b.WriteString("  DESYNCHRONIZED")
		if s.Suspect != nil {
			fmt.Fprintf(&b, " (%s), check remote then reconcile", s.Suspect.Name)
		}
	}
	if busy > 0 {
		fmt.Fprintf(&b, "  working(%d)", busy)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// drawText writes s at (x, y), clipped to width.
func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	col := 0
	for _, r := range text {
		if col >= width {
			return
		}
		s.SetContent(x+col, y, r, nil, style)
		col++
	}
}

func fill(s tcell.Screen, x, y, width int, style tcell.Style) {
	for i := range width {
		s.SetContent(x+i, y, ' ', nil, style)
	}
}
