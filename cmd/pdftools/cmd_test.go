package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdf-tools/backend/internal/config"
	"github.com/pdf-tools/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestToolsCommand(t *testing.T) {
	out, err := execute(t, "tools")
	require.NoError(t, err)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Merge PDFs")
	assert.Contains(t, out, "Layout preservation")
}

func TestToolsCommandJSON(t *testing.T) {
	out, err := execute(t, "tools", "--json")
	require.NoError(t, err)

	var tools []models.Tool
	require.NoError(t, json.Unmarshal([]byte(out), &tools))
	require.Len(t, tools, 4)
	assert.Equal(t, models.ToolMerge, tools[0].ID)
}

func TestToolsCommandCustomCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`tools:
  - id: split
    title: Split Only
    description: One tool
    icon: scissors
    color: bg-accent
    features: [Page ranges]
`), 0644))

	out, err := execute(t, "tools", "--catalog", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Split Only")
	assert.NotContains(t, out, "Merge PDFs")
}

func TestToolsCommandBadCatalog(t *testing.T) {
	_, err := execute(t, "tools", "--catalog", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLoggerFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Advanced.LogFormat = "json"

	buf := new(bytes.Buffer)
	newLogger(cfg, buf).Info("hello", "k", "v")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "v", line["k"])
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Advanced.LogLevel = "warn"

	buf := new(bytes.Buffer)
	logger := newLogger(cfg, buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrintBanner(t *testing.T) {
	buf := new(bytes.Buffer)
	printBanner(buf, config.DefaultConfig(), "pdftools.config", 4, true)

	assert.Contains(t, buf.String(), "PDF Tools Server")
	assert.Contains(t, buf.String(), "0.0.0.0:8089")
	assert.Contains(t, buf.String(), "Embedded page")
}
