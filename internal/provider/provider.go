// Package provider talks to the remote completion model that breaks goals
// down into tasks.
package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnauthorized  = errors.New("provider unauthorized")
	ErrTimeout       = errors.New("provider timeout")
	ErrRequestFailed = errors.New("provider request failed")
)

// Provider turns a prompt into the model's raw text reply.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CredentialSource supplies the API credential at call time, so a credential
// saved after startup is picked up by the next request.
type CredentialSource interface {
	LoadCredential(ctx context.Context) (string, bool, error)
}

// StatusError is a non-2xx reply other than an auth failure.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("provider returned status %d", e.Status)
}

func (e *StatusError) Unwrap() error { return ErrRequestFailed }
