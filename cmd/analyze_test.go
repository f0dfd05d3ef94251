package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feever-health/feever/internal/config"
)

func TestAnalyzeLocal(t *testing.T) {
	withConfig(t, config.Config{Store: config.StoreConfig{Driver: "none"}})

	env, err := initEnv(context.Background())
	require.NoError(t, err)
	defer env.Close()

	path := filepath.Join(t.TempDir(), "bill.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"charges":[{"description":"CBC","amount":900},{"description":"CBC","amount":900}],"deductions":[{"description":"HMO Payment","amount":200}]}`,
	), 0o644))

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	rep, err := analyzeLocal(cmd, env, path)
	require.NoError(t, err)

	assert.Equal(t, "bill.json", rep.FileName)
	assert.Equal(t, 1800.0, rep.Summary.TotalCharges)
	assert.Equal(t, 200.0, rep.Summary.HMOCovered)
	require.Len(t, rep.Duplicates, 1)
}

func TestAnalyzeLocal_MissingFile(t *testing.T) {
	withConfig(t, config.Config{Store: config.StoreConfig{Driver: "none"}})

	env, err := initEnv(context.Background())
	require.NoError(t, err)
	defer env.Close()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	_, err = analyzeLocal(cmd, env, filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
