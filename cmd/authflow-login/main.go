// Command authflow-login performs the authorization-code flow from a
// terminal. It opens the provider in the system browser, receives the
// redirect on a loopback listener and keeps the session in a file so that
// later runs can reuse it.
//
//	authflow-login [flags] login <provider>
//	authflow-login [flags] whoami
//	authflow-login [flags] logout
//	authflow-login [flags] providers
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lukaszraczylo/authflow"
	"github.com/lukaszraczylo/authflow/auth"
	"github.com/lukaszraczylo/authflow/config"
	"github.com/lukaszraczylo/authflow/session"
)

const (
	defaultListen  = "127.0.0.1:8765"
	defaultTimeout = 5 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "authflow-login: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("authflow-login", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "Path to authflow.yaml (defaults to the standard search paths)")
	sessionPath := fs.String("session", defaultSessionPath(), "File keeping the login session")
	listen := fs.String("listen", defaultListen, "Loopback address receiving the provider redirect")
	timeout := fs.Duration("timeout", defaultTimeout, "How long to wait for the browser login")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: authflow-login [flags] login <provider> | whoami | logout | providers")
	}

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithPaths(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	client, err := authflow.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := session.OpenFile(*sessionPath)
	if err != nil {
		return err
	}

	cmd := &command{
		client:  client,
		store:   store,
		nav:     printingNavigator(out, auth.BrowserNavigator{Quiet: true}),
		listen:  *listen,
		timeout: *timeout,
		out:     out,
	}
	return cmd.dispatch(ctx, fs.Args())
}

type command struct {
	client  *authflow.Client
	store   session.Store
	nav     auth.Navigator
	listen  string
	timeout time.Duration
	out     io.Writer
}

func (c *command) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "login":
		if len(args) < 2 {
			return errors.New("login needs a provider name")
		}
		result, err := c.login(ctx, args[1])
		if err != nil {
			return err
		}
		c.printUser(result)
		return nil
	case "whoami":
		result, err := c.whoami(ctx)
		if err != nil {
			return err
		}
		c.printUser(result)
		return nil
	case "logout":
		if err := c.client.NewController(c.store, c.nav).Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Logged out")
		return nil
	case "providers":
		for _, p := range c.client.Providers() {
			fmt.Fprintln(c.out, p.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type outcome struct {
	result *auth.Result
	err    error
}

// login starts the flow and serves the provider's redirect on the loopback
// listener until it arrives or the timeout expires.
func (c *command) login(ctx context.Context, provider string) (*auth.Result, error) {
	p, err := c.client.Registry().Get(provider)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", c.listen)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", c.listen, err)
	}
	base := "http://" + listener.Addr().String()
	ctrl := c.client.NewController(c.store, c.nav, auth.WithRedirectBase(base))

	done := make(chan outcome, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+p.CallbackPath(), func(w http.ResponseWriter, r *http.Request) {
		result, err := ctrl.Resume(r.Context(), r.URL)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "<h1>Login failed</h1><p>Return to the terminal for details.</p>")
		} else {
			fmt.Fprint(w, "<h1>Login successful</h1><p>You can close this window.</p>")
		}
		select {
		case done <- outcome{result: result, err: err}:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var res outcome
	g.Go(func() error {
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()

		if err := ctrl.StartLogin(ctx, provider); err != nil {
			return err
		}
		select {
		case res = <-done:
			return res.err
		case <-ctx.Done():
			return fmt.Errorf("login not completed: %w", ctx.Err())
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res.result, nil
}

// whoami resumes from the session file alone, reusing the cached provider
// token when it is still accepted.
func (c *command) whoami(ctx context.Context) (*auth.Result, error) {
	rec, err := session.Load(ctx, c.store)
	if err != nil {
		return nil, err
	}
	if rec.Empty() {
		return nil, errors.New("not logged in")
	}

	// The redirect_uri of the login is persisted; the base is only a fallback.
	ctrl := c.client.NewController(c.store, c.nav, auth.WithRedirectBase("http://"+c.listen))
	result, err := ctrl.Resume(ctx, &url.URL{})
	if err != nil {
		return nil, fmt.Errorf("not logged in: %w", err)
	}
	return result, nil
}

func (c *command) printUser(result *auth.Result) {
	u := result.User
	fmt.Fprintf(c.out, "Logged in with %s as %s <%s> (subject %s)\n", result.Provider, u.Name, u.Email, u.Subject)
}

// printingNavigator shows the URL before handing it to next, so the user
// can open it by hand when no browser is available.
func printingNavigator(out io.Writer, next auth.Navigator) auth.Navigator {
	return auth.NavigatorFunc(func(ctx context.Context, u string) error {
		fmt.Fprintf(out, "Opening %s\n", u)
		if err := next.Navigate(ctx, u); err != nil {
			fmt.Fprintf(out, "Could not open a browser (%v), open the URL above manually\n", err)
		}
		return nil
	})
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "authflow-session.yaml"
	}
	return filepath.Join(dir, "authflow", "session.yaml")
}
