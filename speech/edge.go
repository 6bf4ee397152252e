package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// EdgeBackend drives the edge-tts CLI (free Microsoft TTS). Install
// with: pip install edge-tts
type EdgeBackend struct {
	// Binary overrides the executable name. Defaults to "edge-tts".
	Binary string
	// InsecureTLS passes certificate verification off to the CLI.
	InsecureTLS bool
}

func (b *EdgeBackend) binary() string {
	if b.Binary != "" {
		return b.Binary
	}
	return "edge-tts"
}

// Speak performs a single synthesis attempt. Failures are classified so
// the retry loop upstream only retries transient ones.
func (b *EdgeBackend) Speak(ctx context.Context, text, voice, rate, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return &SynthesisError{Kind: KindFatal, Err: fmt.Errorf("empty narration text")}
	}

	args := []string{
		"--voice", voice,
		"--rate", rate,
		"--text", text,
		"--write-media", outputPath,
	}
	if b.InsecureTLS {
		args = append(args, "--no-verify-ssl")
	}

	cmd := exec.CommandContext(ctx, b.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, lookErr := exec.LookPath(b.binary()); lookErr != nil {
			return &SynthesisError{
				Kind: KindFatal,
				Err:  fmt.Errorf("%s not found, install with: pip install edge-tts", b.binary()),
			}
		}
		// Exit failures are almost always the service throttling or
		// dropping the websocket, which clears up on retry.
		return &SynthesisError{
			Kind: KindNetwork,
			Err:  fmt.Errorf("%s: %v: %s", b.binary(), err, strings.TrimSpace(stderr.String())),
		}
	}
	return nil
}
