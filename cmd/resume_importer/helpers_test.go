package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const resumeText = "Jean Dupont\nBackend Engineer\njean@example.fr\n\nSkills: Go (expert), PostgreSQL, Kubernetes - advanced\nLanguages: French (native), English - fluent"

// getBinaryPath returns the path to the resume_importer binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "resume_importer"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/resume_importer ./cmd/resume_importer'", binaryPath)
	}

	return binaryPath
}

// writeDOCX writes a minimal DOCX with one paragraph per line of text into dir.
func writeDOCX(t *testing.T, dir, name, text string) string {
	t.Helper()
	var body bytes.Buffer
	for _, line := range strings.Split(text, "\n") {
		body.WriteString("<w:p><w:r><w:t>" + line + "</w:t></w:r></w:p>")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document><w:body>` + body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}
