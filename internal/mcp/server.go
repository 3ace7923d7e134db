// Package mcp exposes the cluster connection manager to the host UI over the
// Model Context Protocol.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	oauth "github.com/tuannvm/oauth-mcp-proxy"
	"github.com/tuannvm/oauth-mcp-proxy/mark3labs"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/config"
)

// NewServer creates the MCP server instance.
func NewServer(name, version string, opts ...server.ServerOption) *server.MCPServer {
	return server.NewMCPServer(name, version, opts...)
}

// CreateOAuthOption creates the OAuth server option when OAuth is enabled.
// Must be called before creating the MCPServer; mux is the pre-created HTTP
// mux where OAuth routes are registered.
func CreateOAuthOption(cfg config.Config, mux *http.ServeMux) (server.ServerOption, *oauth.Server, error) {
	if !cfg.OAuthEnabled {
		return nil, nil, nil
	}
	if mux == nil {
		return nil, nil, fmt.Errorf("mux is required when OAuth is enabled")
	}

	oauthConfig := &oauth.Config{
		Provider:  cfg.OAuthProvider,
		Mode:      cfg.OAuthMode,
		Issuer:    cfg.OIDCIssuer,
		Audience:  cfg.OIDCAudience,
		ServerURL: cfg.OAuthServerURL,
	}
	if cfg.OAuthProvider == "hmac" || cfg.OAuthMode == "proxy" {
		oauthConfig.JWTSecret = []byte(cfg.JWTSecret)
	}
	if cfg.OAuthMode == "proxy" {
		oauthConfig.ClientID = cfg.OIDCClientID
		oauthConfig.ClientSecret = cfg.OIDCClientSecret
		oauthConfig.RedirectURIs = cfg.OAuthRedirectURIs
	}

	oauthServer, oauthOption, err := mark3labs.WithOAuth(mux, oauthConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup OAuth: %w", err)
	}

	slog.Info("OAuth configured",
		"mode", cfg.OAuthMode,
		"provider", cfg.OAuthProvider,
		"issuer", cfg.OIDCIssuer)
	return oauthOption, oauthServer, nil
}

// Start runs the MCP server on the configured transport.
func Start(ctx context.Context, s *server.MCPServer, cfg config.Config, mux *http.ServeMux) error {
	slog.Info("Starting MCP server", "transport", cfg.Transport)

	switch cfg.Transport {
	case "stdio":
		return server.ServeStdio(s)
	case "http":
		return startHTTPServer(ctx, s, cfg, mux)
	default:
		return fmt.Errorf("unsupported MCP transport: %s", cfg.Transport)
	}
}

func startHTTPServer(ctx context.Context, s *server.MCPServer, cfg config.Config, mux *http.ServeMux) error {
	if mux == nil {
		return fmt.Errorf("mux is required for HTTP transport")
	}

	streamable := server.NewStreamableHTTPServer(
		s,
		server.WithHTTPContextFunc(oauth.CreateHTTPContextFunc()),
	)
	mux.Handle("/mcp", streamable)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "address", addr, "oauth_enabled", cfg.OAuthEnabled, "mcp_endpoint", "/mcp")
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
