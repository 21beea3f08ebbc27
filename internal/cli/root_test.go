package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersGlobalFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("engine"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("language"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("output-dir"))
	require.Equal(t, "false", cmd.PersistentFlags().Lookup("verbose").DefValue)
	require.Equal(t, "", cmd.PersistentFlags().Lookup("engine").DefValue)
}

func TestRootHelpListsSubcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "transcribe")
	require.Contains(t, out.String(), "compose")
	require.Contains(t, out.String(), "batch")
	require.Contains(t, out.String(), "setup")
	require.Contains(t, out.String(), "version")
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "transcribe", args: []string{"transcribe", "--help"}, contains: "Recognize speech from an audio file"},
		{name: "compose", args: []string{"compose", "--help"}, contains: "recognizes speech from an audio file or a fresh microphone"},
		{name: "batch", args: []string{"batch", "--help"}, contains: "Process several recordings concurrently"},
		{name: "setup", args: []string{"setup", "--help"}, contains: "Download the whisper model"},
		{name: "version", args: []string{"version", "--help"}, contains: "Print version, commit and build date"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.NoError(t, err)
			require.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestRootWithoutArgsShowsHelp(t *testing.T) {
	t.Parallel()

	stdout, stderr, err := runCommand(t, []string{})
	require.NoError(t, err)
	require.Contains(t, stdout+stderr, "Available Commands")
	require.Contains(t, stdout+stderr, "compose")
}
