package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/vibes-studio/internal/board"
	"github.com/mmeshcher/vibes-studio/internal/model"
)

const browserDump = `{"vibesProjects":"{\"past\":[{\"id\":\"1\",\"title\":\"Mood Music Generator\",\"tags\":[\"AI\"],\"votes\":0,\"status\":\"past\"}],\"current\":[],\"future\":[{\"id\":\"4\",\"title\":\"Ambient Workspace\",\"tags\":[],\"votes\":43,\"status\":\"current\"}],\"proposed\":[]}"}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestDecodeDocument(t *testing.T) {
	doc, err := decodeDocument([]byte(browserDump))
	require.NoError(t, err)
	require.Len(t, doc.Future, 1)
	assert.Equal(t, 43, doc.Future[0].Votes)

	plain, err := decodeDocument([]byte(`{"past":[],"current":[],"future":[],"proposed":[{"id":"7","title":"Emotional API","tags":[],"votes":5,"proposedBy":"jane@example.com"}]}`))
	require.NoError(t, err)
	require.NotNil(t, plain.Proposed[0].Proposal)
	assert.Equal(t, "jane@example.com", plain.Proposed[0].Proposal.ProposedBy)

	_, err = decodeDocument([]byte(`{"other":1}`))
	assert.Error(t, err)

	_, err = decodeDocument([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	out, err := runCmd(t, "validate", writeFile(t, "dump.json", browserDump))
	require.NoError(t, err)
	assert.Contains(t, out, "past=1 current=0 future=1 proposed=0")

	dup := `{"past":[{"id":"1"}],"current":[{"id":"1"}]}`
	_, err = runCmd(t, "validate", writeFile(t, "dup.json", dup))
	assert.ErrorIs(t, err, board.ErrDuplicateProject)

	negative := `{"future":[{"id":"4","votes":-3}]}`
	_, err = runCmd(t, "validate", writeFile(t, "negative.json", negative))
	assert.ErrorIs(t, err, board.ErrInvalidProject)
}

func TestImportExportCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "vibes.db")

	out, err := runCmd(t, "import", "--db", db, writeFile(t, "dump.json", browserDump))
	require.NoError(t, err)
	assert.Contains(t, out, "imported board, version 2")

	_, err = runCmd(t, "import", "--db", db, "--if-version", "1", writeFile(t, "dump.json", browserDump))
	assert.Error(t, err)

	exportPath := filepath.Join(t.TempDir(), "board.json")
	_, err = runCmd(t, "export", "--db", db, "-o", exportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)

	var b model.Board
	require.NoError(t, json.Unmarshal(data, &b))
	assert.Equal(t, int64(2), b.Version)
	require.Len(t, b.Future, 1)
	assert.Equal(t, "4", b.Future[0].ID)
	assert.Equal(t, model.StatusFuture, b.Future[0].Status)
	assert.Empty(t, b.Current)
}
