package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lang-learner-backend/internal/config"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"serve", "migrate"} {
		assert.Contains(t, buf.String(), sub, "Help missing %q command", sub)
	}
}

func TestServe_RefusesToStartWithoutKey(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "langlearner")
	t.Setenv("KEY", "")
	t.Setenv("LOG_FORMAT", "text")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.ErrorIs(t, err, config.ErrMissingSigningKey)
}

func TestServe_RejectsInvertedLifetimes(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "langlearner")
	t.Setenv("KEY", "k")
	t.Setenv("ACCESS_TOKEN_TTL", "200h")
	t.Setenv("REFRESH_TOKEN_TTL", "1h")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve"})

	require.Error(t, cmd.Execute())
}

func TestMigrate_RequiresDatabaseSettings(t *testing.T) {
	t.Setenv("DB_USER", "")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("POSTGRES_DB", "")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate"})

	require.Error(t, cmd.Execute())
}
