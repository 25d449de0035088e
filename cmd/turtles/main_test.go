package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QEStudios/MusicTurtles/config"
	"github.com/QEStudios/MusicTurtles/music"
)

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		output, flag string
		want         music.Format
	}{
		{"", "", music.FormatJSON},
		{"song.msgpack", "", music.FormatMsgpack},
		{"song.JSON", "", music.FormatJSON},
		{"song.bin", "msgpack", music.FormatMsgpack},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.output, tt.flag)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := outputFormat("", "xml")
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	fs := pflag.NewFlagSet("play", pflag.ContinueOnError)
	addTempoFlags(fs)
	fs.Bool("loop", false, "")
	fs.String("player", "", "")
	fs.Int("tick", 0, "")
	require.NoError(t, fs.Parse([]string{"--bpm", "90", "--time-signature", "6/8", "--loop"}))

	c := config.Default()
	require.NoError(t, applyFlags(fs, &c))
	assert.Equal(t, 90.0, c.BPM)
	assert.Equal(t, [2]int{6, 8}, c.TimeSignature)
	assert.True(t, c.Looped)
	// Unset flags keep the config value.
	assert.Equal(t, config.PlayerSine, c.Player)
	assert.Equal(t, 50, c.SchedulerTickMs)

	require.NoError(t, fs.Set("tick", "0"))
	assert.Error(t, applyFlags(fs, &c))
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	song := filepath.Join(dir, "song.mt")
	require.NoError(t, os.WriteFile(song, []byte(":4c"), 0o644))

	assert.NoError(t, validatePath(song))
	assert.Error(t, validatePath(filepath.Join(dir, "missing.mt")))
	assert.Error(t, validatePath(filepath.Join(dir, "song.wav")))
}
