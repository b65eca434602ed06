package play

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/audiolibrelab/jamscope/internal/wav"
)

// preferred audio players in order of preference
var players = []string{"vlc", "mpv", "ffplay", "aplay"}

type Player struct {
	lookPath func(string) (string, error)
	run      func(*exec.Cmd) error
}

func New() *Player {
	return &Player{
		lookPath: exec.LookPath,
		run:      (*exec.Cmd).Run,
	}
}

// Play plays a finished recording with the first available system player.
// Recordings whose header was never finalized are refused.
func (p *Player) Play(audioFile string) error {
	if _, err := os.Stat(audioFile); err != nil {
		return fmt.Errorf("audio file not found: %s", audioFile)
	}

	info, err := wav.Inspect(audioFile)
	if err != nil {
		return fmt.Errorf("cannot play %s: %w", audioFile, err)
	}
	if info.Corrupt {
		return fmt.Errorf("cannot play %s: %s", audioFile, info.Problem)
	}

	cmd, err := p.command(audioFile)
	if err != nil {
		return err
	}

	slog.Info("Playing", "file", audioFile, "player", cmd.Args[0], "duration", info.Duration)

	if err := p.run(cmd); err != nil {
		return fmt.Errorf("playback failed with %s: %w", cmd.Args[0], err)
	}

	slog.Info("Playback completed", "file", audioFile)
	return nil
}

func (p *Player) command(audioFile string) (*exec.Cmd, error) {
	player, err := p.findAudioPlayer()
	if err != nil {
		return nil, fmt.Errorf("no suitable audio player found: %w", err)
	}

	var cmd *exec.Cmd
	switch player {
	case "vlc":
		cmd = exec.Command("vlc", "--play-and-exit", audioFile)
	case "mpv":
		cmd = exec.Command("mpv", "--no-video", audioFile)
	case "ffplay":
		cmd = exec.Command("ffplay", "-nodisp", "-autoexit", audioFile)
	case "aplay":
		cmd = exec.Command("aplay", audioFile)
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

func (p *Player) findAudioPlayer() (string, error) {
	for _, player := range players {
		if _, err := p.lookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(players, ", "))
}
