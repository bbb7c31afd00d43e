package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
	code     string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Verify(ctx context.Context, code string) error {
	f.calls = append(f.calls, "verify")
	f.code = code
	return nil
}
func (f *fakeExec) Resend(ctx context.Context) error {
	f.calls = append(f.calls, "resend")
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return common.Unauthorized("Invalid refresh token")
}
func (f *fakeExec) Whoami(ctx context.Context) error {
	f.calls = append(f.calls, "whoami")
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"register",
		"verify abc123",
		"resend",
		"",
		"login",
		"help",
		"whoami",
		"refresh",
		"logout",
		"foobar",
		"exit",
		"login",
	}, "\n")

	exec := &fakeExec{}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)), &out)

	assert.Equal(t, []string{"register", "verify", "resend", "login", "whoami", "refresh", "logout"}, exec.calls)
	assert.Equal(t, "abc123", exec.code)

	s := out.String()
	assert.Contains(t, s, "Available commands: register, login")
	assert.Contains(t, s, "Available commands: whoami, refresh, logout")
	assert.Contains(t, s, "Error: Invalid refresh token")
	assert.Contains(t, s, "Unknown command: foobar")
	assert.Contains(t, s, "auth status> ")
	assert.True(t, strings.HasSuffix(s, "Bye!\n"))
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("verify")), &out)

	assert.Equal(t, []string{"verify"}, exec.calls)
	assert.Empty(t, exec.code)
}
