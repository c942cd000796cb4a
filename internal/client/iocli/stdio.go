package iocli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyInput возвращается, если ввод закончился до перевода строки
var ErrEmptyInput = errors.New("no input")

// Stdio implements IO on top of a reader and a writer.
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // дескриптор терминала, -1 если ввод не терминал
}

// NewStdio returns IO bound to the process stdin and stdout.
func NewStdio() IO {
	s := NewStdioWith(os.Stdin, os.Stdout)
	s.fd = int(os.Stdin.Fd())
	return s
}

// NewStdioWith returns IO reading from in and writing to out.
// Passwords are read as plain lines.
func NewStdioWith(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(in), out: out, fd: -1}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// Interactive reports whether input comes from a terminal.
func (s *Stdio) Interactive() bool {
	return s.fd >= 0 && term.IsTerminal(s.fd)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	return s.readLine()
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if !s.Interactive() {
		return s.ReadInput(prompt)
	}

	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(s.fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

func (s *Stdio) readLine() (string, error) {
	input, err := s.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || input == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrEmptyInput
		}
		return "", err
	}
	return strings.TrimSpace(input), nil
}
