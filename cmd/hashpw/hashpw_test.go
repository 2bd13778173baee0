package hashpw

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnforge/trainingportal/internal/security"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := Command()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestHashFromStdin(t *testing.T) {
	t.Parallel()

	hash, err := run(t, "s3cret password\n")
	require.NoError(t, err)
	assert.True(t, security.CheckPassword(hash, "s3cret password"))
}

func TestHashFromFlag(t *testing.T) {
	t.Parallel()

	hash, err := run(t, "", "--password", "flagged")
	require.NoError(t, err)
	assert.True(t, security.CheckPassword(hash, "flagged"))
}

func TestEmptyPasswordIsRejected(t *testing.T) {
	t.Parallel()

	_, err := run(t, "\n")
	require.Error(t, err)
}
