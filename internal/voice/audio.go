package voice

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// The realtime endpoint speaks raw PCM16, 24 kHz, mono. Capture and
// playback shell out to ALSA tools rather than binding an audio library;
// both ends are plain byte pipes.
const (
	sampleRate = 24000
	// captureChunk is sized for roughly 100ms of audio per append event.
	captureChunk = sampleRate * 2 / 10
)

var (
	captureArgs  = []string{"arecord", "-q", "-f", "S16_LE", "-r", "24000", "-c", "1", "-t", "raw"}
	playbackArgs = []string{"aplay", "-q", "-f", "S16_LE", "-r", "24000", "-c", "1", "-t", "raw"}
)

// startCapture launches the microphone reader. Chunks of raw PCM are
// delivered on the returned channel until ctx is cancelled or the
// process exits; the channel is closed on either.
func startCapture(ctx context.Context) (<-chan []byte, error) {
	cmd := exec.CommandContext(ctx, captureArgs[0], captureArgs[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", captureArgs[0], err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer cmd.Wait()
		for {
			chunk := make([]byte, captureChunk)
			n, err := io.ReadFull(stdout, chunk)
			if n > 0 {
				select {
				case out <- chunk[:n]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return out, nil
}

// startPlayback launches the speaker writer. Audio written to the
// returned channel is played in order; closing the channel or
// cancelling ctx stops the player.
func startPlayback(ctx context.Context) (chan<- []byte, error) {
	cmd := exec.CommandContext(ctx, playbackArgs[0], playbackArgs[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("playback pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", playbackArgs[0], err)
	}

	in := make(chan []byte, 16)
	go func() {
		defer cmd.Wait()
		defer stdin.Close()
		for {
			select {
			case chunk, ok := <-in:
				if !ok {
					return
				}
				if _, err := stdin.Write(chunk); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return in, nil
}
