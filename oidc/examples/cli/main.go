// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/browser"

	"github.com/henrjk/connect-js/oidc"
	"github.com/henrjk/connect-js/oidc/callback"
	sdkHttp "github.com/henrjk/connect-js/sdk/http"
	"github.com/henrjk/connect-js/session"
	"github.com/henrjk/connect-js/storage"
	"github.com/henrjk/connect-js/storage/bolt"
)

const successHTML = `<!DOCTYPE html>
<html>
<head><title>Signed in</title></head>
<body><p>Signed in. You can close this window and return to the CLI.</p></body>
</html>
`

func main() {
	configPath := flag.String("config", "connect.yaml", "path of the YAML configuration")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		os.Exit(1)
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "connect-cli",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: os.Stderr,
	})

	// handle ctrl-c while waiting for the callback
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *cliConfig, logger hclog.Logger) error {
	const op = "run"
	ca, err := cfg.providerCA()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	store, err := bolt.New(cfg.StoragePath, bolt.WithLogger(logger.Named("storage")))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	httpAccess, err := sdkHttp.New(ca)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	jar, err := storage.NewCookieJar(cfg.origin())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	win := newBrowserWindow(cfg.origin()+"/", func(u string) error {
		fmt.Fprintf(os.Stderr, "Complete the login via your OIDC provider. Launching browser to:\n\n    %s\n\n\n", u)
		return browser.OpenURL(u)
	})

	pc, err := oidc.NewConfig(cfg.Issuer, cfg.ClientID, cfg.redirectURL(),
		oidc.WithScopes(cfg.Scopes...),
		oidc.WithResponseType(cfg.ResponseType),
		oidc.WithDisplay(oidc.DisplayPopup),
		oidc.WithProviderCA(ca),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	client, err := oidc.NewClient(ctx, pc, oidc.Capabilities{
		HTTP:     httpAccess,
		Location: location{path: "/"},
		DOM:      dom{win: win, doc: jar},
		Storage:  store,
	}, oidc.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer client.Done()

	if cfg.Discover {
		if _, err := client.Discover(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := client.PrepareAuthorization(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	handler, err := callback.Implicit(win, success, failed(logger))
	if err != nil {
		return fmt.Errorf("%s: error creating callback handler: %w", op, err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", handler)

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	srvCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	go func() {
		select {
		case err := <-srvCh:
			logger.Error("callback listener closed", "error", err)
			cancel()
		case <-authCtx.Done():
		}
	}()

	s, err := client.Authorize(authCtx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return printSession(s)
}

func success(state string, w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(successHTML))
}

func failed(logger hclog.Logger) callback.ErrorResponseFunc {
	return func(state string, r *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		switch {
		case e != nil:
			logger.Error("callback error", "error", e)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(e.Error()))
		case r != nil:
			logger.Error("callback error from oidc provider", "error", r.Error, "description", r.Description)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = fmt.Fprintf(w, "%s: %s", r.Error, r.Description)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

// printableSession redacts the tokens of a session.
type printableSession struct {
	IdToken      oidc.IdToken           `json:"id_token"`
	AccessToken  oidc.AccessToken       `json:"access_token,omitempty"`
	ExpiresIn    int64                  `json:"expires_in"`
	SessionState string                 `json:"session_state,omitempty"`
	IdClaims     map[string]interface{} `json:"id_claims"`
	AccessClaims map[string]interface{} `json:"access_claims,omitempty"`
	UserInfo     map[string]interface{} `json:"userInfo"`
}

func printSession(s *session.Session) error {
	const op = "printSession"
	data, err := json.MarshalIndent(printableSession{
		IdToken:      oidc.IdToken(s.IdToken),
		AccessToken:  oidc.AccessToken(s.AccessToken),
		ExpiresIn:    s.ExpiresIn,
		SessionState: s.SessionState,
		IdClaims:     s.IdClaims,
		AccessClaims: s.AccessClaims,
		UserInfo:     s.UserInfo,
	}, "", "    ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	fmt.Fprintf(os.Stderr, "Session:%s\n", data)
	return nil
}
