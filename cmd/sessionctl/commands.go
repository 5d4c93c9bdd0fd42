package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/transport"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSignInCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and persist the credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(envPrefix + "PASSWORD")
			}
			return a.withClient(cmd.Context(), func(ctx context.Context, c *goSession.Client) error {
				res, err := c.SignIn(ctx, email, password)
				if err != nil {
					return err
				}
				return printJSON(a, res.User)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (defaults to $SESSIONCTL_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRequestCmd(a *app) *cobra.Command {
	var data, email, password string
	cmd := &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Send an authenticated request and print the response body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := transport.NewRequest(strings.ToUpper(args[0]), args[1], nil)
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data is not valid JSON")
				}
				req.Body = []byte(data)
				req.Header.Set("Content-Type", "application/json")
			}
			return a.withClient(cmd.Context(), func(ctx context.Context, c *goSession.Client) error {
				if err := a.authenticate(ctx, c, email, password); err != nil {
					return err
				}
				res, err := c.Send(ctx, req)
				if err != nil {
					return describe(err)
				}
				return printJSON(a, res.Body)
			})
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVar(&email, "email", "", "Sign in first with this email")
	cmd.Flags().StringVar(&password, "password", "", "Password used with --email")
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *goSession.Client) error {
				if err := c.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "signed out")
				return nil
			})
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		count    int
		listen   string
	)
	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Poll a path, refreshing as tokens expire, optionally serving /metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			return a.withClient(cmd.Context(), func(ctx context.Context, c *goSession.Client) error {
				if _, err := c.Restore(ctx); err != nil {
					return notSignedIn(err)
				}
				if listen != "" {
					srv := &http.Server{Addr: listen, Handler: metricsRouter(c), ReadHeaderTimeout: 5 * time.Second}
					go func() {
						if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
							a.logger.Error("metrics listener stopped", zap.Error(err))
						}
					}()
					defer srv.Close()
				}
				return a.poll(ctx, c, args[0], interval, count)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Delay between requests")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many requests (0 runs until interrupted)")
	cmd.Flags().StringVar(&listen, "listen", "", "Serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func (a *app) poll(ctx context.Context, c *goSession.Client, path string, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		res, err := c.Get(ctx, path)
		if err != nil {
			err = describe(err)
			fmt.Fprintf(a.out, "%s GET %s: %v\n", time.Now().Format(time.RFC3339), path, err)
			if errors.Is(err, goSession.ErrRefreshFailed) || errors.Is(err, goSession.ErrNoCredential) {
				return err
			}
			continue
		}
		fmt.Fprintf(a.out, "%s GET %s: %d\n", time.Now().Format(time.RFC3339), path, res.StatusCode)
	}
	return nil
}

func metricsRouter(c *goSession.Client) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", prometheus.NewCollector(c).Handler())
	return r
}

// authenticate signs in when an email is given, otherwise restores the stored
// credential.
func (a *app) authenticate(ctx context.Context, c *goSession.Client, email, password string) error {
	if email != "" {
		if password == "" {
			password = os.Getenv(envPrefix + "PASSWORD")
		}
		_, err := c.SignIn(ctx, email, password)
		return err
	}
	if _, err := c.Restore(ctx); err != nil {
		return notSignedIn(err)
	}
	return nil
}

func notSignedIn(err error) error {
	if errors.Is(err, goSession.ErrNoCredential) {
		return fmt.Errorf("not signed in: run `sessionctl signin` first: %w", err)
	}
	return err
}

// describe keeps the server message of application errors front and center.
func describe(err error) error {
	var ce *goSession.ClientError
	if errors.As(err, &ce) && ce.Kind == goSession.KindApplication && ce.Message != "" {
		return fmt.Errorf("%s (status %d): %w", ce.Message, ce.StatusCode, err)
	}
	return err
}

func printJSON(a *app, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = fmt.Fprintln(a.out, string(raw))
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
