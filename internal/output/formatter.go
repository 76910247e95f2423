package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Frame is one visualization snapshot
type Frame struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Levels    []float32 `json:"levels"`
	Peak      float64   `json:"peak"`
	Active    bool      `json:"active"`
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteFrame writes a visualization frame
	WriteFrame(frame Frame) error

	// WriteEvent writes a system event (e.g., capture state changes)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// NewFormatter returns the formatter for a format name: console, json or text
func NewFormatter(format string, writer io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true, Writer: writer}), nil
	case "json":
		return NewJSONFormatter(writer), nil
	case "text":
		return NewPlainTextFormatter(writer), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: console, json, text)", format)
	}
}

// JSONFormatter outputs frames as newline-delimited JSON
type JSONFormatter struct {
	encoder *json.Encoder
	frames  int
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{encoder: json.NewEncoder(writer)}
}

// WriteFrame writes a frame in JSON format
func (j *JSONFormatter) WriteFrame(frame Frame) error {
	j.frames++
	return j.encoder.Encode(frame)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	event := Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
	return j.encoder.Encode(event)
}

// Flush ensures all buffered output is written
func (j *JSONFormatter) Flush() error {
	// JSON encoder writes immediately, nothing to flush
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// FrameCount returns the number of frames written
func (j *JSONFormatter) FrameCount() int {
	return j.frames
}

// PlainTextFormatter outputs one line per frame
type PlainTextFormatter struct {
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
	}
}

// WriteFrame writes a frame as timestamp, peak and sparkline
func (p *PlainTextFormatter) WriteFrame(frame Frame) error {
	timestamp := frame.Timestamp.Format("15:04:05.000")
	text := fmt.Sprintf("[%s] #%d peak=%.3f %s\n", timestamp, frame.Index, frame.Peak, Sparkline(frame.Levels))

	_, err := p.writer.Write([]byte(text))
	return err
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	timestamp := time.Now().Format("15:04:05")
	text := fmt.Sprintf("[%s] [%s] %s\n", timestamp, eventType, message)
	_, err := p.writer.Write([]byte(text))
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}
