package client

import (
	"strings"

	tgAuth "github.com/MrEthical07/tgAuth"
)

// Environment is the host client that launched the Mini App.
type Environment interface {
	// LaunchPayload returns the raw signed launch payload. It fails with
	// tgAuth.ErrMissingEnvironment when there is no host client and with
	// tgAuth.ErrMissingPayload when the host provided nothing.
	LaunchPayload() (string, error)
}

// StaticEnvironment serves a fixed payload.
type StaticEnvironment struct {
	// Present is false when the app runs outside a host client.
	Present bool
	Raw     string
}

// NewStaticEnvironment returns a present environment delivering raw.
func NewStaticEnvironment(raw string) StaticEnvironment {
	return StaticEnvironment{Present: true, Raw: raw}
}

// LaunchPayload implements [Environment].
func (e StaticEnvironment) LaunchPayload() (string, error) {
	if !e.Present {
		return "", tgAuth.ErrMissingEnvironment
	}
	if strings.TrimSpace(e.Raw) == "" {
		return "", tgAuth.ErrMissingPayload
	}
	return e.Raw, nil
}
