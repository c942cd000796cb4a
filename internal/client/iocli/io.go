// Package iocli abstracts the terminal for CLI commands.
package iocli

//go:generate moq -out io_mock.go . IO

// IO терминал, с которым работают команды
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Interactive() bool
	Write(p []byte) (n int, err error)
}
