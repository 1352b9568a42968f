// Package commands implements the CLI subcommands of calgrid.
package commands

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"calgrid/internal/auth"
	"calgrid/internal/config"
)

// passwordReader reads one secret line after printing prompt.
type passwordReader func(prompt string) (string, error)

// HashPassword runs the hash-password subcommand and returns the exit code.
//
// It prompts for a password twice (without echo on a terminal) and prints a
// basic_auth block with an argon2id hash. With -config the block is written
// into that config file instead.
func HashPassword(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(stderr)
	username := fs.String("username", "admin", "Basic auth username")
	configPath := fs.String("config", "", "Write the credentials into this config file")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: calgrid hash-password [OPTIONS]\n\n")
		fmt.Fprintf(stderr, "Hashes a password (Argon2id) for basic_auth.password_hash.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*username) == "" {
		fmt.Fprintln(stderr, "Username cannot be empty")
		return 1
	}

	read := promptReader(stdin, stderr)
	password, err := read("Enter password:   ")
	if err != nil {
		fmt.Fprintf(stderr, "Error reading password: %v\n", err)
		return 1
	}
	if password == "" {
		fmt.Fprintln(stderr, "Password cannot be empty")
		return 1
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		fmt.Fprintf(stderr, "Error reading password confirmation: %v\n", err)
		return 1
	}
	if password != confirm {
		fmt.Fprintln(stderr, "Passwords do not match")
		return 1
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	creds := &config.BasicAuthConfig{Username: *username, PasswordHash: hash}

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading %s: %v\n", *configPath, err)
			return 1
		}
		cfg.BasicAuth = creds
		if err := cfg.Save(*configPath); err != nil {
			fmt.Fprintf(stderr, "Error saving %s: %v\n", *configPath, err)
			return 1
		}
		fmt.Fprintf(stdout, "basic_auth written to %s\n", *configPath)
		return 0
	}

	out, err := yaml.Marshal(struct {
		BasicAuth *config.BasicAuthConfig `yaml:"basic_auth"`
	}{creds})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	_, _ = stdout.Write(out)
	return 0
}

// promptReader reads without echo when stdin is a terminal and falls back
// to plain lines otherwise (pipes, tests).
func promptReader(stdin io.Reader, prompt io.Writer) passwordReader {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return func(p string) (string, error) {
			fmt.Fprint(prompt, p)
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(prompt)
			return string(b), err
		}
	}
	br := bufio.NewReader(stdin)
	return func(p string) (string, error) {
		fmt.Fprint(prompt, p)
		line, err := br.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
