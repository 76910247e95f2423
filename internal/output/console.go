package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ConsoleOutput renders poll frames as level meters on a terminal
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool
	barWidth      int
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// BarWidth is the width of the peak meter in characters (default: 50)
	BarWidth int

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives error messages (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	width := config.BarWidth
	if width <= 0 {
		width = 50
	}

	return &ConsoleOutput{
		writer:        writer,
		errWriter:     errWriter,
		showTimestamp: config.ShowTimestamp,
		barWidth:      width,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true})
}

// WriteFrame implements Formatter by redrawing the meter line
func (c *ConsoleOutput) WriteFrame(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.writer, "\r%s %s", Sparkline(frame.Levels), c.bar(Peak(frame.Levels)))
	return err
}

// WriteEvent implements Formatter
func (c *ConsoleOutput) WriteEvent(eventType, message string) error {
	c.Info(fmt.Sprintf("[%s] %s", eventType, message))
	return nil
}

// Flush implements Formatter
func (c *ConsoleOutput) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintln(c.writer)
	return err
}

// Close implements Formatter
func (c *ConsoleOutput) Close() error {
	return nil
}

// WriteAudioLevel writes a single level meter
func (c *ConsoleOutput) WriteAudioLevel(level float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.writer, "\r%s", c.bar(level))
	return err
}

func (c *ConsoleOutput) bar(level float64) string {
	level = min(max(level, 0), 1)
	filled := int(level * float64(c.barWidth))
	return fmt.Sprintf("Level: [%-*s] %5.1f%%", c.barWidth, strings.Repeat("=", filled), level*100)
}

// Clear clears the current line
func (c *ConsoleOutput) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.writer, "\r%*s\r", c.barWidth+80, " ")
	return err
}

// Info writes an informational message on its own line
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%s[INFO] %s\n", c.stamp(), msg)
}

// Error writes an error message to the error writer
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.errWriter, "%s[ERROR] %s\n", c.stamp(), msg)
}

// Status writes a status message (typically overwritten)
func (c *ConsoleOutput) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r[*] %s", msg)
}

func (c *ConsoleOutput) stamp() string {
	if !c.showTimestamp {
		return ""
	}
	return fmt.Sprintf("[%s] ", time.Now().Format("15:04:05"))
}

var sparkRunes = []rune(" ▁▂▃▄▅▆▇█")

// Sparkline renders levels in [0, 1] as block characters, one per value.
// Negative waveform values are drawn by magnitude.
func Sparkline(levels []float32) string {
	var sb strings.Builder
	top := len(sparkRunes) - 1
	for _, v := range levels {
		if v < 0 {
			v = -v
		}
		idx := int(min(v, 1) * float32(top))
		sb.WriteRune(sparkRunes[idx])
	}
	return sb.String()
}

// Peak returns the largest magnitude in levels
func Peak(levels []float32) float64 {
	var peak float32
	for _, v := range levels {
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	return float64(peak)
}
