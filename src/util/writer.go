// writer.go provides a buffered text sink used by the assembly emitter and
// the optional debug logs (spec §6). Adapted from the teacher's channel
// based util.Writer: the backend core is single-threaded (spec §5), so this
// version flushes straight to an io.Writer instead of fanning writes through
// a listener goroutine.

package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer buffers output in a strings.Builder and flushes it to an underlying
// io.Writer on demand.
type Writer struct {
	sb  strings.Builder
	dst *bufio.Writer
	f   *os.File
}

// NewWriter returns a Writer that flushes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{dst: bufio.NewWriter(w)}
}

// CreateFile opens path for writing (truncating any existing file) and
// returns a Writer flushing to it. The caller must call Close when done.
func CreateFile(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Writer{dst: bufio.NewWriter(f), f: f}, nil
}

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString writes a plain string to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Ins1 writes a one-line instruction using the operator and single operand.
func (w *Writer) Ins1(op, rs1 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s\n", op, rs1))
}

// Ins2 writes a one-line instruction using the operator, destination
// register and single source register.
func (w *Writer) Ins2(op, rd, rs1 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %s\n", op, rd, rs1))
}

// Ins2imm writes a one-line instruction using the operator, destination
// register, single source register and a signed immediate.
func (w *Writer) Ins2imm(op, rd, rs1 string, imm int32) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %s, %d\n", op, rd, rs1, imm))
}

// Ins3 writes a one-line instruction using the operator, destination
// register and two source registers.
func (w *Writer) Ins3(op, rd, rs1, rs2 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %s, %s\n", op, rd, rs1, rs2))
}

// LoadStore writes a load or store instruction of register reg with offset
// to the pointer register (usually sp or a data label).
func (w *Writer) LoadStore(op, reg string, offset int32, pointer string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %d(%s)\n", op, reg, offset, pointer))
}

// Label writes a one-line label with the given name.
func (w *Writer) Label(name string) {
	w.sb.WriteString(fmt.Sprintf("%s:\n", name))
}

// Comment writes a one-line '#'-prefixed comment.
func (w *Writer) Comment(s string) {
	w.sb.WriteString(fmt.Sprintf("\t# %s\n", s))
}

// Flush empties the Writer's buffer into the underlying destination.
func (w *Writer) Flush() error {
	if _, err := w.dst.WriteString(w.sb.String()); err != nil {
		return err
	}
	w.sb.Reset()
	return w.dst.Flush()
}

// Close flushes the Writer and, if it owns a file, closes it.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.f != nil {
		return w.f.Close()
	}
	return nil
}
