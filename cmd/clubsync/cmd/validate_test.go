package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runOfflineValidate(t *testing.T, body string) (string, error) {
	t.Helper()
	origFile, origSkip := cfgFile, validateSkipConnect
	t.Cleanup(func() { cfgFile, validateSkipConnect = origFile, origSkip })

	cfgFile = writeConfig(t, body)
	validateSkipConnect = true

	var buf bytes.Buffer
	validateCmd.SetOut(&buf)
	t.Cleanup(func() { validateCmd.SetOut(nil) })

	err := runValidate(validateCmd, nil)
	return buf.String(), err
}

func TestValidate_Offline(t *testing.T) {
	out, err := runOfflineValidate(t, `
relational:
  host: localhost
  user: club
  database: club
`)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Configuration Validation ===")
	assert.Contains(t, out, "✓ configuration")
}

func TestValidate_OfflineInvalid(t *testing.T) {
	out, err := runOfflineValidate(t, `
relational:
  host: localhost
  user: club
  database: club
scheduler:
  enabled: true
  spec: "every now and then"
`)
	require.Error(t, err)
	assert.Contains(t, out, "✗ configuration")
	assert.Contains(t, out, "scheduler.spec")
}

func TestReportCheck(t *testing.T) {
	var buf bytes.Buffer
	reportCheck(&buf, "content store", errors.New("timeout"))
	reportCheck(&buf, "relational database", nil)

	assert.Equal(t, "✗ content store: timeout\n✓ relational database\n", buf.String())
}
