// Package editor implements the interactive account-list manager: a fixed
// menu of list/add/remove/toggle operations over the account store, persisted
// after every successful mutation. Input errors abort the current operation
// without touching the store or its file.
package editor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"popsweep/internal/config"
)

// Editor drives the menu loop over an injected reader and writer so the
// shell around the command dispatch stays a thin adapter.
type Editor struct {
	store *config.Store
	in    *bufio.Scanner
	out   io.Writer
}

// New builds an editor over the given store and streams.
func New(store *config.Store, in io.Reader, out io.Writer) *Editor {
	return &Editor{
		store: store,
		in:    bufio.NewScanner(in),
		out:   out,
	}
}

// Run loops over the menu until the user selects exit or input ends. Only
// persistence failures are returned; per-operation input errors are printed
// and the loop continues.
func (e *Editor) Run() error {
	for {
		fmt.Fprintln(e.out, "\n=== Email Cleanup Account Manager ===")
		fmt.Fprintln(e.out, "1. List accounts")
		fmt.Fprintln(e.out, "2. Add account")
		fmt.Fprintln(e.out, "3. Remove account")
		fmt.Fprintln(e.out, "4. Enable/Disable account")
		fmt.Fprintln(e.out, "5. Exit")

		choice, ok := e.prompt("\nSelect option: ")
		if !ok {
			return nil
		}

		var err error
		switch choice {
		case "1":
			e.listAccounts()
		case "2":
			err = e.addAccount()
		case "3":
			err = e.removeAccount()
		case "4":
			err = e.toggleAccount()
		case "5":
			fmt.Fprintln(e.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(e.out, "Invalid option")
		}
		if err != nil {
			return err
		}
	}
}

func (e *Editor) listAccounts() {
	if len(e.store.Accounts) == 0 {
		fmt.Fprintln(e.out, "No accounts configured.")
		return
	}

	fmt.Fprintf(e.out, "\n%-3s %-35s %-25s %-10s %s\n", "#", "Email", "Server", "Status", "Description")
	fmt.Fprintln(e.out, strings.Repeat("-", 100))
	for i, account := range e.store.Accounts {
		status := "Enabled"
		if !account.Enabled {
			status = "Disabled"
		}
		fmt.Fprintf(e.out, "%-3d %-35s %-25s %-10s %s\n",
			i+1, account.Email, account.Server, status, account.Description)
	}
}

func (e *Editor) addAccount() error {
	fmt.Fprintln(e.out, "\n=== Add New Account ===")

	email, _ := e.prompt("Email address: ")
	password, _ := e.prompt("Password: ")
	server, _ := e.prompt("POP3 server: ")
	portInput, _ := e.prompt(fmt.Sprintf("POP3 port [%d]: ", config.DefaultPort))
	description, ok := e.prompt("Description (optional): ")
	if !ok {
		return nil
	}

	port, err := strconv.Atoi(portInput)
	if err != nil || port <= 0 {
		port = config.DefaultPort
	}

	account := config.Account{
		Email:       email,
		Password:    password,
		Server:      server,
		Port:        port,
		Enabled:     true,
		Description: description,
	}
	if err := e.store.Add(account); err != nil {
		fmt.Fprintf(e.out, "Invalid account: %v\n", err)
		return nil
	}
	if err := e.store.Save(); err != nil {
		return errors.Wrap(err, "saving account store")
	}
	fmt.Fprintf(e.out, "Configuration saved to %s\n", e.store.Path)
	fmt.Fprintf(e.out, "Added account: %s\n", email)
	return nil
}

func (e *Editor) removeAccount() error {
	e.listAccounts()
	if len(e.store.Accounts) == 0 {
		return nil
	}

	index, ok := e.selectAccount("\nEnter account number to remove: ")
	if !ok {
		return nil
	}

	removed, err := e.store.Remove(index)
	if err != nil {
		fmt.Fprintln(e.out, "Invalid account number")
		return nil
	}
	if err := e.store.Save(); err != nil {
		return errors.Wrap(err, "saving account store")
	}
	fmt.Fprintf(e.out, "Configuration saved to %s\n", e.store.Path)
	fmt.Fprintf(e.out, "Removed account: %s\n", removed.Email)
	return nil
}

func (e *Editor) toggleAccount() error {
	e.listAccounts()
	if len(e.store.Accounts) == 0 {
		return nil
	}

	index, ok := e.selectAccount("\nEnter account number to enable/disable: ")
	if !ok {
		return nil
	}

	toggled, err := e.store.Toggle(index)
	if err != nil {
		fmt.Fprintln(e.out, "Invalid account number")
		return nil
	}
	if err := e.store.Save(); err != nil {
		return errors.Wrap(err, "saving account store")
	}
	status := "disabled"
	if toggled.Enabled {
		status = "enabled"
	}
	fmt.Fprintf(e.out, "Configuration saved to %s\n", e.store.Path)
	fmt.Fprintf(e.out, "Account %s is now %s\n", toggled.Email, status)
	return nil
}

// selectAccount prompts for a 1-based account number and returns the 0-based
// index. Non-numeric input prints an error and reports not-ok; range
// checking is left to the store so both paths share one failure mode.
func (e *Editor) selectAccount(label string) (int, bool) {
	input, ok := e.prompt(label)
	if !ok {
		return 0, false
	}
	number, err := strconv.Atoi(input)
	if err != nil {
		fmt.Fprintln(e.out, "Invalid input")
		return 0, false
	}
	return number - 1, true
}

// prompt prints the label and reads one trimmed line. ok is false once input
// is exhausted.
func (e *Editor) prompt(label string) (string, bool) {
	fmt.Fprint(e.out, label)
	if !e.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(e.in.Text()), true
}
