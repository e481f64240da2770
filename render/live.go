package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Live redraws a panel in place as frames arrive. When the output is not
// a terminal only the final frame is written, by Finish. On a terminal the
// live panel is cropped to the screen height, keeping its newest lines, and
// Finish replaces it with the full panel.
type Live struct {
	out    io.Writer
	tty    bool
	width  int
	height int // rows on screen; 0 means unknown and never crops
	delay  time.Duration
	sleep  func(time.Duration)

	drawn   int // lines occupied by the last drawn panel
	cropped bool
	last    Frame
	has     bool
}

// NewLive returns a Live writing to f, sized to the terminal when f is one.
// delay is paused after every answer frame.
func NewLive(f *os.File, delay time.Duration) *Live {
	fd := int(f.Fd())
	tty := term.IsTerminal(fd)
	width, height := defaultWidth, 0
	if tty {
		if w, h, err := term.GetSize(fd); err == nil {
			if w > 0 {
				width = w
			}
			height = h
		}
	}
	return NewLiveWriter(f, tty, width, height, delay)
}

// NewLiveWriter returns a Live writing to w with explicit terminal settings.
func NewLiveWriter(w io.Writer, tty bool, width, height int, delay time.Duration) *Live {
	return &Live{out: w, tty: tty, width: width, height: height, delay: delay, sleep: time.Sleep}
}

// Update shows f.
func (l *Live) Update(f Frame) {
	l.last = f
	l.has = true
	if !l.tty {
		return
	}
	l.draw(f)
	if f.State == Answering && l.delay > 0 {
		l.sleep(l.delay)
	}
}

// Finish writes the final frame: the whole panel when nothing was drawn
// live, or over the live panel when that one had to be cropped.
func (l *Live) Finish() {
	if !l.has {
		return
	}
	if !l.tty {
		io.WriteString(l.out, Panel(l.last, l.width)+"\n")
		return
	}
	if !l.cropped {
		return
	}
	var b strings.Builder
	l.rewind(&b)
	b.WriteString(Panel(l.last, l.width))
	b.WriteString("\n")
	io.WriteString(l.out, b.String())
	l.drawn, l.cropped = 0, false
}

func (l *Live) draw(f Frame) {
	lines := strings.Split(Panel(f, l.width), "\n")
	// One row stays free for the cursor, or the top line scrolls away.
	l.cropped = false
	if limit := l.height - 1; l.height > 0 && len(lines) > max(limit, 1) {
		lines = lines[len(lines)-max(limit, 1):]
		l.cropped = true
	}

	var b strings.Builder
	l.rewind(&b)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	io.WriteString(l.out, b.String())
	l.drawn = len(lines)
}

// rewind moves to the first line of the previous panel and clears below.
func (l *Live) rewind(b *strings.Builder) {
	if l.drawn > 0 {
		fmt.Fprintf(b, "\x1b[%dF\x1b[J", l.drawn)
	}
}
