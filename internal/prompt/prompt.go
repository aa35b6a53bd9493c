// Package prompt asks the user for passwords and secrets on the terminal.
package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/seed"
	"golang.org/x/term"
	"io"
	"os"
	"strings"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// PasswordReader reads a line without echoing it.
type PasswordReader interface {
	ReadPassword(fd int) ([]byte, error)
}

type terminalReader struct{}

func (terminalReader) ReadPassword(fd int) ([]byte, error) {
	return term.ReadPassword(fd)
}

// Prompter asks its questions on out and reads answers from in. Secrets
// are read through pw when in is a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	pw  PasswordReader
}

// New prompts on stdin and stdout.
func New() *Prompter {
	return &Prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		fd:  int(os.Stdin.Fd()),
		pw:  terminalReader{},
	}
}

// NewWithReader prompts on out and reads every answer, secrets included,
// from in.
func NewWithReader(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
		fd:  -1,
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) readSecret(question string) ([]byte, error) {
	fmt.Fprint(p.out, question)

	if p.pw != nil && term.IsTerminal(p.fd) {
		secret, err := p.pw.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return nil, err
		}
		return bytes.TrimSpace(secret), nil
	}

	line, err := p.readLine()
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

// Password asks for a keystore password. A new password is asked twice and
// must not be empty.
func (p *Prompter) Password(confirm bool) ([]byte, error) {
	for {
		pass, err := p.readSecret("Enter the keystore password: ")
		if err != nil {
			return nil, err
		}
		if !confirm {
			return pass, nil
		}
		if len(pass) == 0 {
			fmt.Fprintln(p.out, "The password must not be empty")
			continue
		}

		again, err := p.readSecret("Confirm password: ")
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(pass, again) {
			return nil, ErrPasswordMismatch
		}
		return pass, nil
	}
}

// Mnemonic asks for a BIP39 phrase until a valid one is entered.
func (p *Prompter) Mnemonic() (string, error) {
	for {
		phrase, err := p.readSecret("Enter the mnemonic words: ")
		if err != nil {
			return "", err
		}

		mnemonic := seed.NormalizeMnemonic(string(phrase))
		if err := seed.ValidateMnemonic(mnemonic); err != nil {
			fmt.Fprintln(p.out, "Invalid mnemonic, check the words and their order")
			continue
		}
		return mnemonic, nil
	}
}

// PrivateKey asks for a WIF or hex encoded private key.
func (p *Prompter) PrivateKey() (string, error) {
	for {
		priv, err := p.readSecret("Enter the private key (WIF or hex): ")
		if err != nil {
			return "", err
		}
		if len(priv) != 0 {
			return string(priv), nil
		}
	}
}

// Bool asks a yes or no question.
func (p *Prompter) Bool(question string, defaultYes bool) (bool, error) {
	def := "no"
	if defaultYes {
		def = "yes"
	}

	for {
		fmt.Fprintf(p.out, "%s (n/no/y/yes) [%s]: ", question, def)
		reply, err := p.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(reply) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// Line asks a free form question.
func (p *Prompter) Line(question string) (string, error) {
	fmt.Fprint(p.out, question)
	return p.readLine()
}
