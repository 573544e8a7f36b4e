package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/brizzai/agency-chat/internal/auth/constants"
	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const callbackPath = "/callback"

// URLOpener presents the consent URL to the user, typically by launching a browser.
type URLOpener func(url string) error

// GoogleProvider runs the installed-app flow: authorization code with PKCE
// on a loopback redirect. The credential it returns is the Google ID token.
type GoogleProvider struct {
	cfg    *config.GoogleConfig
	opener URLOpener
}

func NewGoogleProvider(cfg *config.GoogleConfig) *GoogleProvider {
	return &GoogleProvider{cfg: cfg, opener: OpenBrowser}
}

// SetOpener replaces how the consent URL is shown.
func (p *GoogleProvider) SetOpener(opener URLOpener) {
	p.opener = opener
}

func (p *GoogleProvider) Name() string {
	return "google"
}

type callbackResult struct {
	code string
	err  error
}

func (p *GoogleProvider) Credential(ctx context.Context) (string, error) {
	if p.cfg == nil || p.cfg.ClientID == "" {
		return "", fmt.Errorf("%w: google client id is not configured", ErrProviderUnavailable)
	}

	issuer, err := oidc.NewProvider(ctx, p.cfg.Issuer)
	if err != nil {
		return "", fmt.Errorf("%w: failed to load google OIDC configuration: %v", ErrProviderUnavailable, err)
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(p.cfg.RedirectHost, strconv.Itoa(p.cfg.RedirectPort)))
	if err != nil {
		return "", fmt.Errorf("failed to open loopback listener: %w", err)
	}

	scopes := p.cfg.Scopes
	if len(scopes) == 0 {
		scopes = constants.DefaultScopes
	}
	oauth2Cfg := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     issuer.Endpoint(),
		RedirectURL:  "http://" + listener.Addr().String() + callbackPath,
		Scopes:       scopes,
	}

	state := uuid.NewString()
	pkce := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           p.callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			results <- callbackResult{err: fmt.Errorf("loopback server: %w", err)}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to stop loopback server", zap.Error(err))
		}
	}()

	authURL := oauth2Cfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(pkce))
	logger.Info("Waiting for Google sign-in", zap.String("redirect_uri", oauth2Cfg.RedirectURL))
	if p.opener != nil {
		if err := p.opener(authURL); err != nil {
			logger.Warn("Failed to open consent page", zap.String("url", authURL), zap.Error(err))
		}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return "", res.err
	}

	token, err := oauth2Cfg.Exchange(ctx, res.code, oauth2.VerifierOption(pkce))
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", fmt.Errorf("no id_token in token response")
	}

	if !p.cfg.SkipVerify {
		verifier := issuer.Verifier(&oidc.Config{ClientID: p.cfg.ClientID})
		if _, err := verifier.Verify(ctx, rawIDToken); err != nil {
			return "", fmt.Errorf("failed to verify ID token: %w", err)
		}
	}

	return rawIDToken, nil
}

func (p *GoogleProvider) callbackHandler(state string, results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = fmt.Errorf("sign-in state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("google sign-in failed: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = fmt.Errorf("google sign-in returned no code")
		default:
			res.code = q.Get("code")
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, "<html><body><p>Sign-in failed. You can close this tab.</p></body></html>")
		} else {
			_, _ = fmt.Fprint(w, "<html><body><p>Signed in. You can close this tab and return to the terminal.</p></body></html>")
		}

		// only the first callback counts
		select {
		case results <- res:
		default:
		}
	})
	return mux
}
