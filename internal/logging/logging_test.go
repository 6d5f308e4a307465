package logging

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToInfoLevel(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNew_InvalidLevelFails(t *testing.T) {
	_, err := New(Config{Level: "not-a-level"})
	assert.Error(t, err)
}

func TestNew_ParsesDeclaredLevel(t *testing.T) {
	l, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestNew_JSONFormatterSelected(t *testing.T) {
	l, err := New(Config{JSON: true})
	require.NoError(t, err)
	_, ok := l.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNew_FileOutputWritesAlongsideStdout(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{File: &FileConfig{Path: filepath.Join(dir, "dispatcher.log")}})
	require.NoError(t, err)
	l.Info("hello")
}
