package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriterWritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcherd.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)
	defer rw.Close()

	n, err := rw.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, int64(6), rw.CurrentSize())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestRotatingWriterRotatesAtLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcherd.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	require.NoError(t, err)
	defer rw.Close()

	// Cross the 1MB threshold with two writes
	big := strings.Repeat("x", 600*1024)
	_, err = rw.Write([]byte(big))
	require.NoError(t, err)
	_, err = rw.Write([]byte(big))
	require.NoError(t, err)

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "first backup should exist after rotation")

	// Current file only holds the second write
	assert.Equal(t, int64(len(big)), rw.CurrentSize())
}

func TestRotatingWriterCompression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "launcherd.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 1, Compress: true})
	require.NoError(t, err)
	defer rw.Close()

	backup := filepath.Join(dir, "backup.log")
	require.NoError(t, os.WriteFile(backup, []byte("archived entry\n"), 0o644))

	rw.compressFile(backup)

	_, err = os.Stat(backup)
	assert.True(t, os.IsNotExist(err), "original should be removed after compression")

	gz, err := os.Open(backup + ".gz")
	require.NoError(t, err)
	defer gz.Close()

	reader, err := gzip.NewReader(gz)
	require.NoError(t, err)
	var out bytes.Buffer
	_, err = io.Copy(&out, reader)
	require.NoError(t, err)
	assert.Equal(t, "archived entry\n", out.String())
}

func TestRotatingWriterClosedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcherd.log")
	rw, err := NewRotatingWriter(path, DefaultRotationConfig())
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	_, err = rw.Write([]byte("late"))
	assert.Error(t, err)
}

func TestLoggerFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcherd.log")
	logger, err := New(Config{Level: "info", File: path, Rotation: RotationConfig{MaxSizeMB: 1}})
	require.NoError(t, err)

	logger.Component("test").Info("instance launched")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "instance launched")
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestLoggerRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
