package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/ShawonAshraf/find-free-gpu/pkg/gpuinfo"
	"github.com/ShawonAshraf/find-free-gpu/pkg/nvsmi"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	out []byte
	err error
}

func (f *fakeQuerier) Query(ctx context.Context) ([]byte, error) {
	return f.out, f.err
}

const sampleOutput = `0, NVIDIA GeForce RTX 3080, 100, 10240
1, NVIDIA GeForce RTX 3080, 50, 10240
2, NVIDIA GeForce RTX 3080, 8000, 10240
`

func execute(t *testing.T, querier nvsmi.Querier, args ...string) (string, error) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cmd := NewRootCmd(log, querier)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestDefaultOutputListsFreeIndexes(t *testing.T) {
	out, err := execute(t, &fakeQuerier{out: []byte(sampleOutput)})
	require.NoError(t, err)
	require.Equal(t, "0 1\n", out)
}

func TestThresholdFlag(t *testing.T) {
	out, err := execute(t, &fakeQuerier{out: []byte(sampleOutput)}, "-t", "60")
	require.NoError(t, err)
	require.Equal(t, "1\n", out)
}

func TestNegativeThresholdRejected(t *testing.T) {
	_, err := execute(t, &fakeQuerier{out: []byte(sampleOutput)}, "-t", "-5")
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-negative")
}

func TestNoFreeGPUs(t *testing.T) {
	out, err := execute(t, &fakeQuerier{out: []byte(sampleOutput)}, "-t", "10")
	require.NoError(t, err)
	require.Equal(t, "No free GPUs found.\n", out)
}

func TestVerboseTable(t *testing.T) {
	color.NoColor = true

	out, err := execute(t, &fakeQuerier{out: []byte(sampleOutput)}, "-v")
	require.NoError(t, err)
	require.Contains(t, out, "INDEX")
	require.Contains(t, out, "STATUS")
	require.Contains(t, out, "NVIDIA GeForce RTX 3080")
	require.Contains(t, out, "100MiB")
	require.Contains(t, out, "10GiB")
	require.Contains(t, out, "free")
	require.Contains(t, out, "occupied")
}

func TestQuietModeWithFreeGPU(t *testing.T) {
	out, err := execute(t, &fakeQuerier{out: []byte(sampleOutput)}, "-q")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestQuietModeWithoutFreeGPU(t *testing.T) {
	originalOsExit := osExit
	exitCode := -1
	osExit = func(code int) { exitCode = code }
	defer func() { osExit = originalOsExit }()

	out, err := execute(t, &fakeQuerier{out: []byte(sampleOutput)}, "-q", "-t", "10")
	require.NoError(t, err)
	require.Empty(t, out)
	require.Equal(t, 1, exitCode)
}

func TestVerboseAndQuietAreExclusive(t *testing.T) {
	_, err := execute(t, &fakeQuerier{out: []byte(sampleOutput)}, "-v", "-q")
	require.Error(t, err)
}

func TestMalformedOutputAborts(t *testing.T) {
	out, err := execute(t, &fakeQuerier{out: []byte("abc,xyz\n")})
	require.Error(t, err)
	var parseErr *gpuinfo.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Empty(t, out)
}

func TestNoGPUsDetected(t *testing.T) {
	_, err := execute(t, &fakeQuerier{out: []byte("\n")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no GPUs detected")
}

func TestQueryFailurePropagates(t *testing.T) {
	queryErr := &nvsmi.ExecError{Stderr: "NVIDIA-SMI has failed", Err: errors.New("exit status 9")}

	out, err := execute(t, &fakeQuerier{err: queryErr})
	require.Error(t, err)
	var execErr *nvsmi.ExecError
	require.ErrorAs(t, err, &execErr)
	require.Empty(t, out)
}

func TestCommandNotFoundKeepsSentinel(t *testing.T) {
	notFound := fmt.Errorf("%w (nvidia-smi)", nvsmi.ErrCommandNotFound)

	_, err := execute(t, &fakeQuerier{err: notFound})
	require.Error(t, err)
	require.ErrorIs(t, err, nvsmi.ErrCommandNotFound)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	require.Contains(t, out, "find-free-gpu version")
}
