package analyze

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediscan/cmd/history"
	"github.com/tphakala/mediscan/cmd/user"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/datastore"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s := &conf.Settings{}
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = filepath.Join(t.TempDir(), "cli.db")
	s.Security.SessionSecret = "0123456789abcdef0123456789abcdef"
	s.Security.BcryptCost = 4
	s.Classifier.Mode = conf.ClassifierModeMock
	s.Classifier.MockSeed = 1
	return s
}

func TestAnalyzeThenHistory(t *testing.T) {
	t.Parallel()
	settings := testSettings(t)

	var out bytes.Buffer
	add := user.Command(settings)
	add.SetOut(&out)
	add.SetArgs([]string{"add", "--name", "CLI User", "--email", "cli@example.com", "--password", "secret1"})
	require.NoError(t, add.Execute())

	var created datastore.User
	require.NoError(t, json.Unmarshal(out.Bytes(), &created))
	assert.Equal(t, "cli@example.com", created.Email)

	image := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(image, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0}, 0o600))

	out.Reset()
	analyze := Command(settings)
	analyze.SetOut(&out)
	analyze.SetArgs([]string{"--email", "cli@example.com", "--password", "secret1", "--organ", "breast", "--image", image})
	require.NoError(t, analyze.Execute())

	var rec datastore.DiagnosisRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, created.ID, rec.UserID)
	assert.Equal(t, "breast", rec.OrganType)

	out.Reset()
	hist := history.Command(settings)
	hist.SetOut(&out)
	hist.SetArgs([]string{"--email", "cli@example.com", "--password", "secret1"})
	require.NoError(t, hist.Execute())

	var records []datastore.DiagnosisRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestAnalyzeRejectsWrongPassword(t *testing.T) {
	t.Parallel()
	settings := testSettings(t)

	add := user.Command(settings)
	add.SetOut(&bytes.Buffer{})
	add.SetArgs([]string{"add", "--name", "CLI User", "--email", "pw@example.com", "--password", "secret1"})
	require.NoError(t, add.Execute())

	image := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(image, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0}, 0o600))

	cmd := Command(settings)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--email", "pw@example.com", "--password", "wrong", "--organ", "brain", "--image", image})
	assert.Error(t, cmd.Execute())
}
