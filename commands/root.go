package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ShawonAshraf/find-free-gpu/pkg/gpuinfo"
	"github.com/ShawonAshraf/find-free-gpu/pkg/nvsmi"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// queryTimeout bounds the nvidia-smi call, which can hang when the driver is
// in a bad state.
const queryTimeout = 30 * time.Second

var osExit = os.Exit

// NewRootCmd builds the CLI. A nil querier means "shell out to nvidia-smi";
// tests inject a fake.
func NewRootCmd(log *logrus.Logger, querier nvsmi.Querier) *cobra.Command {
	var (
		thresholdMB int
		verbose     bool
		quiet       bool
		smiCommand  string
		debug       bool
	)
	c := &cobra.Command{
		Use:           "find-free-gpu",
		Short:         "Find GPUs that are currently not in use",
		Long:          "Find GPUs whose memory usage is below a threshold, by querying nvidia-smi.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				log.SetLevel(logrus.DebugLevel)
			}
			if thresholdMB < 0 {
				return fmt.Errorf("threshold must be non-negative, got %d", thresholdMB)
			}

			q := querier
			if q == nil {
				if smiCommand != "" {
					cli, err := nvsmi.NewWithCommand(log, smiCommand)
					if err != nil {
						return err
					}
					q = cli
				} else {
					q = nvsmi.New(log)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
			defer cancel()

			out, err := q.Query(ctx)
			if err != nil {
				if errors.Is(err, nvsmi.ErrCommandNotFound) {
					return notFoundHint(err)
				}
				return err
			}

			devices, err := gpuinfo.Parse(out)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				return errors.New("no GPUs detected")
			}
			log.Debugf("parsed %d devices", len(devices))

			free := gpuinfo.Free(devices, uint64(thresholdMB))

			switch {
			case quiet:
				if len(free) == 0 {
					osExit(1)
				}
			case verbose:
				cmd.Print(deviceTable(devices, uint64(thresholdMB)))
			default:
				if len(free) == 0 {
					cmd.Println("No free GPUs found.")
					return nil
				}
				indexes := make([]string, len(free))
				for i, d := range free {
					indexes[i] = strconv.Itoa(d.Index)
				}
				cmd.Println(strings.Join(indexes, " "))
			}
			return nil
		},
	}

	flags := c.Flags()
	flags.IntVarP(&thresholdMB, "threshold", "t", 300, "Memory usage threshold in MB to consider a GPU free")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show every device with its memory usage and status")
	flags.BoolVarP(&quiet, "quiet", "q", false, "No output; exit 0 only if a free GPU exists")
	flags.StringVar(&smiCommand, "nvidia-smi", "", "Override the query command, split with shell quoting rules")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	c.MarkFlagsMutuallyExclusive("verbose", "quiet")

	c.AddCommand(newVersionCmd())
	return c
}

// notFoundHint tells the user whether the machine has an NVIDIA GPU at all
// when nvidia-smi is missing.
func notFoundHint(err error) error {
	present, derr := gpuinfo.HasNVIDIAGPU()
	if derr != nil {
		return err
	}
	if present {
		return fmt.Errorf("%w; an NVIDIA GPU is present, make sure NVIDIA drivers are installed", err)
	}
	return fmt.Errorf("%w; no NVIDIA GPU detected on this machine", err)
}
