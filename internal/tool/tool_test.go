// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tool_test

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/aibor/bootforge/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRun(t *testing.T) {
	requireShell(t)

	t.Run("stdout", func(t *testing.T) {
		runner := &tool.Exec{}

		out, err := runner.Run(t.Context(), tool.Cmd{
			Name: "sh",
			Args: []string{"-c", "echo /dev/loop7"},
		})
		require.NoError(t, err)
		assert.Equal(t, "/dev/loop7\n", string(out))
	})

	t.Run("output copy", func(t *testing.T) {
		var output bytes.Buffer

		runner := &tool.Exec{Output: &output}

		_, err := runner.Run(t.Context(), tool.Cmd{
			Name: "sh",
			Args: []string{"-c", "echo out; echo err >&2"},
		})
		require.NoError(t, err)
		assert.Contains(t, output.String(), "out\n")
		assert.Contains(t, output.String(), "err\n")
	})

	t.Run("working dir", func(t *testing.T) {
		dir := t.TempDir()
		runner := &tool.Exec{}

		out, err := runner.Run(t.Context(), tool.Cmd{
			Name: "sh",
			Args: []string{"-c", "pwd -P"},
			Dir:  dir,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, out)
	})

	t.Run("nonzero exit", func(t *testing.T) {
		runner := &tool.Exec{}

		_, err := runner.Run(t.Context(), tool.Cmd{
			Name: "sh",
			Args: []string{"-c", "echo 'mkfs.ext2: bad blocks' >&2; exit 3"},
		})

		var toolErr *tool.ExternalToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "sh", toolErr.Tool)
		assert.Equal(t, 3, toolErr.ExitCode)
		assert.Equal(t, 3, tool.ExitCode(err))
		assert.Contains(t, err.Error(), "mkfs.ext2: bad blocks")
		assert.NotErrorIs(t, err, &tool.PrivilegeError{})
	})

	t.Run("privilege failure", func(t *testing.T) {
		runner := &tool.Exec{}

		_, err := runner.Run(t.Context(), tool.Cmd{
			Name: "sh",
			Args: []string{"-c", "echo 'losetup: /dev/loop0: failed to set up loop device: Permission denied' >&2; exit 1"},
		})
		require.ErrorIs(t, err, &tool.PrivilegeError{})
		assert.ErrorIs(t, err, &tool.ExternalToolError{})
		assert.Equal(t, 1, tool.ExitCode(err))
	})

	t.Run("not found", func(t *testing.T) {
		runner := &tool.Exec{}

		_, err := runner.Run(t.Context(), tool.Cmd{
			Name: "bootforge-does-not-exist",
		})
		require.ErrorIs(t, err, tool.ErrToolNotFound)
		assert.Equal(t, 127, tool.ExitCode(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		runner := &tool.Exec{}

		_, err := runner.Run(ctx, tool.Cmd{
			Name: "sh",
			Args: []string{"-c", "sleep 10"},
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRecorder(t *testing.T) {
	recorder := &tool.Recorder{}
	recorder.Handle("losetup", func(tool.Cmd) ([]byte, error) {
		return []byte("/dev/loop3\n"), nil
	})

	out, err := recorder.Run(t.Context(), tool.Cmd{Name: "losetup", Args: []string{"--find"}})
	require.NoError(t, err)
	assert.Equal(t, "/dev/loop3\n", string(out))

	out, err = recorder.Run(t.Context(), tool.Cmd{Name: "mount"})
	require.NoError(t, err)
	assert.Empty(t, out)

	assert.Equal(t, []string{"losetup", "mount"}, recorder.Names())
	assert.Equal(t, "losetup --find", recorder.Calls()[0].String())

	recorder.Reset()
	assert.Empty(t, recorder.Calls())
}

func TestExternalToolErrorMessage(t *testing.T) {
	err := &tool.ExternalToolError{
		Tool:     "xorriso",
		ExitCode: 5,
		Stderr:   "xorriso : NOTE : something\nxorriso : FAILURE : Cannot find path\n",
	}

	assert.Equal(t,
		"xorriso exited with code 5: xorriso : FAILURE : Cannot find path",
		err.Error(),
	)
}

func TestPrivilegeErrorIs(t *testing.T) {
	//nolint:testifylint
	assert.ErrorIs(t, error(&tool.PrivilegeError{Err: assert.AnError}), &tool.PrivilegeError{})
	assert.NotErrorIs(t, assert.AnError, &tool.PrivilegeError{})
}
