package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/api"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
)

// AuthAPI is the part of api.Client the CLI uses.
type AuthAPI interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	Login(ctx context.Context, username, password string) (*api.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyEmail(ctx context.Context, code string) (string, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	Whoami(ctx context.Context, accessToken string) (*api.Identity, error)
}

type session struct {
	userName     string
	accessToken  string
	refreshToken string
}

type App struct {
	config  *config.Config
	api     AuthAPI
	reader  *bufio.Reader
	out     io.Writer
	session session
}

func NewApp(c *config.Config) *App {
	return newApp(c, api.NewClient(c.ServerURL, c.RequestTimeout), os.Stdin, os.Stdout)
}

func newApp(c *config.Config, a AuthAPI, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: a, reader: bufio.NewReader(in), out: out}
}

func (a *App) isLoggedIn() bool {
	return a.session.refreshToken != ""
}

func (a *App) getStatus() string {
	if a.session.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.session.userName)
}

// Run starts the REPL and returns when the user exits.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "Welcome to authkeeper CLI, server %s (type 'help' for commands)\n", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
