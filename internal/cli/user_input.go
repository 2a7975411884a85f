package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter задаёт вопросы в терминале. Пароль читается без эха.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
}

func NewPrompter() *Prompter {
	return &Prompter{
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stderr,
		fd:     int(os.Stdin.Fd()),
	}
}

func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)

	answerChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		answer, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || answer == "") {
			errChan <- err
			return
		}
		answerChan <- strings.TrimSpace(answer)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errChan:
		return "", err
	case answer := <-answerChan:
		return answer, nil
	}
}

// AskPassword: в терминале ввод скрыт, из пайпа читается строка как есть.
func (p *Prompter) AskPassword(ctx context.Context, question string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.Ask(ctx, question)
	}

	fmt.Fprintf(p.out, "%s: ", question)
	password, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}
	return string(password), nil
}

// IsTerminal - stdout подключён к терминалу, можно раскрашивать вывод.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
}
