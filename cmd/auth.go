package main

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/desertthunder/fmbridge/internal/server"
	"github.com/desertthunder/fmbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultCallbackAddr = "localhost:3000"

// AuthStatus verifies the Firefly token against /api/v1/about and checks the Monarch session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.firefly == nil {
		return fmt.Errorf("%w: Firefly service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("checking auth status", "host", r.firefly.BaseURL())

	about, err := r.firefly.About(ctx)
	if err != nil {
		return fmt.Errorf("firefly token check failed: %w", err)
	}

	r.writePlain("✓ Firefly III is reachable\n")
	r.writePlain("Host: %s\n", r.firefly.BaseURL())
	r.writePlain("Version: %s (API %s)\n", about.Version, about.APIVersion)

	if r.source == nil {
		return r.writePlain("Monarch: ✗ Not configured\n")
	}
	if _, err := r.source.GetTags(ctx); err != nil {
		r.logger.Debug("monarch session check failed", "error", err)
		return r.writePlain("Monarch: ✗ %v\n", err)
	}
	return r.writePlain("Monarch: ✓ Authenticated\n")
}

// AuthToken opens the Firefly profile page where personal access tokens are created.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	if r.firefly == nil {
		return fmt.Errorf("%w: Firefly service not initialized", shared.ErrServiceUnavailable)
	}

	url := r.firefly.ProfileURL()
	r.writePlain("Create a personal access token under OAuth → Personal Access Tokens:\n%s\n", url)

	if cmd.Bool("no-browser") {
		return nil
	}
	if err := shared.OpenBrowser(url); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}

	r.writePlainln("Then run 'fmbridge setup config --firefly-token <token>'")
	return nil
}

// AuthLogin runs the OAuth2 authorization code flow against the Firefly instance with a local
// callback listener, then saves the access token as firefly.token.
//
// The client must be registered with the redirect URL http://<addr>/callback.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.firefly == nil {
		return fmt.Errorf("%w: Firefly service not initialized", shared.ErrServiceUnavailable)
	}

	clientID := firstNonEmpty(cmd.String("client-id"), r.config.Firefly.ClientID)
	if clientID == "" {
		return fmt.Errorf("%w: OAuth client id (--client-id or firefly.client_id)", shared.ErrMissingCredentials)
	}
	secret := firstNonEmpty(cmd.String("client-secret"), r.config.Firefly.ClientSecret)
	addr := firstNonEmpty(cmd.String("addr"), r.config.Firefly.CallbackAddr, defaultCallbackAddr)

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	conf := r.firefly.OAuthConfig(clientID, secret, "")
	handler := server.NewOAuthHandler(conf, state, oauth2.GenerateVerifier())
	listener, err := server.Listen(addr, handler, shared.WithLogger(r.logger, "component", "oauth"))
	if err != nil {
		return err
	}
	conf.RedirectURL = listener.RedirectURL()
	authURL := handler.AuthCodeURL()

	r.writePlain("→ Authorize fmbridge in Firefly III:\n%s\n", authURL)
	if !cmd.Bool("no-browser") {
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	timeout := cmd.Duration("timeout")
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := listener.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	config, err := r.loadOrCreateConfig()
	if err != nil {
		return err
	}
	config.Firefly.Token = token.AccessToken
	config.Firefly.ClientID = clientID
	config.Firefly.ClientSecret = secret
	config.Firefly.CallbackAddr = addr
	if err := shared.WriteConfigFile(r.configPath, config); err != nil {
		return err
	}
	r.config.Firefly.Token = token.AccessToken

	r.logger.Info("saved Firefly OAuth token", "path", r.configPath, "expires", token.Expiry)
	if !token.Expiry.IsZero() {
		r.writePlain("✓ Token saved to %s (expires %s)\n", r.configPath, token.Expiry.Format("2006-01-02"))
		return nil
	}
	return r.writePlain("✓ Token saved to %s\n", r.configPath)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
