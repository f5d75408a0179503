// Package cliutil holds helpers shared by the one-shot commands.
package cliutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/mediscan/internal/account"
	"github.com/tphakala/mediscan/internal/app"
	"github.com/tphakala/mediscan/internal/conf"
)

// OpenApp builds the services without event publishing.
func OpenApp(ctx context.Context, settings *conf.Settings) (*app.App, error) {
	return app.New(ctx, settings, app.Options{})
}

// Login opens a session, the caller must Logout.
func Login(ctx context.Context, a *app.App, email, password string) (*account.Session, error) {
	sess, err := a.Accounts.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return sess, nil
}

// Logout closes sess, ignoring errors.
func Logout(ctx context.Context, a *app.App, sess *account.Session) {
	_ = a.Accounts.Logout(ctx, sess.Token)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintYAML writes v as YAML.
func PrintYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
