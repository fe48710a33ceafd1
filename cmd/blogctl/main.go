// Command blogctl talks to the blog admin API with a persisted session.
//
//	blogctl [-url URL] [-token-file PATH] login -user NAME [-password PW]
//	blogctl verify
//	blogctl request METHOD PATH [JSON_BODY]
//	blogctl logout
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/Skotchmaster/polyglot_blog/internal/config"
	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/pkg/authclient"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "blogctl:", err)
		if errors.Is(err, authclient.ErrLoggedOut) {
			fmt.Fprintln(os.Stderr, "session expired, run: blogctl login")
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("blogctl", flag.ContinueOnError)
	baseURL := fs.String("url", config.EnvDefault("BLOG_API_URL", "http://localhost:8080"), "API base URL")
	tokenFile := fs.String("token-file", defaultTokenFile(), "where the access token is kept")
	logLevel := fs.String("log-level", config.EnvDefault("LOG_LEVEL", "warn"), "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logging.IntoContext(ctx, logging.NewWithWriter(os.Stderr, *logLevel))

	sess, err := authclient.NewSession(*baseURL)
	if err != nil {
		return err
	}
	sess.Store = &authclient.FileStore{Path: *tokenFile}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return login(ctx, sess, rest, out)
	case "logout":
		if err := sess.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "logged out")
		return nil
	case "verify":
		return request(ctx, sess, []string{http.MethodGet, "/api/admin/verify-token"}, out)
	case "request":
		return request(ctx, sess, rest, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func login(ctx context.Context, sess *authclient.Session, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("user", os.Getenv("BLOG_ADMIN_USER"), "admin username")
	password := fs.String("password", os.Getenv("BLOG_ADMIN_PASSWORD"), "admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" || *password == "" {
		return errors.New("login needs -user and -password (or BLOG_ADMIN_USER / BLOG_ADMIN_PASSWORD)")
	}
	if err := sess.Login(ctx, *user, *password); err != nil {
		return err
	}
	fmt.Fprintln(out, "logged in as", *user)
	return nil
}

func request(ctx context.Context, sess *authclient.Session, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errors.New("usage: request METHOD PATH [JSON_BODY]")
	}
	method, path := strings.ToUpper(args[0]), args[1]

	var body io.Reader
	if len(args) > 2 {
		body = strings.NewReader(args[2])
	}
	req, err := http.NewRequestWithContext(ctx, method, sess.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sess.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(out, resp.Status)
	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}

func defaultTokenFile() string {
	if v := os.Getenv("BLOGCTL_TOKEN_FILE"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".blogctl-token"
	}
	return filepath.Join(dir, "blogctl", "token")
}
