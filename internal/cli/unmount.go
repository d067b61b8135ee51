package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/system"
	"github.com/unitexe/skopos/internal/ui"
)

// UnmountCommand handles device unmounting
type UnmountCommand struct {
	ctx  *GlobalContext
	yes  bool
	json bool
}

// NewUnmountCommand creates the unmount command
func NewUnmountCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &UnmountCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "unmount [mount-point]",
		Short: "Unmount a removable device",
		Long: `Unmount the filesystem mounted at the given path. Without a path the
configured mount root is unmounted after confirmation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().BoolVarP(&cmd.yes, "yes", "y", false, "Do not ask for confirmation")
	cobraCmd.Flags().BoolVarP(&cmd.json, "json", "j", false, "JSON output")

	return cobraCmd
}

// Run executes the unmount command
func (c *UnmountCommand) Run(cmd *cobra.Command, args []string) error {
	var mountPoint string
	if len(args) > 0 {
		var err error
		if mountPoint, err = c.ctx.localPath(args[0]); err != nil {
			return err
		}
	} else if !c.yes {
		if !c.ctx.Prompter.Interactive {
			return fmt.Errorf("no mount point given; pass --yes to unmount the default mount point")
		}
		if !c.ctx.Prompter.PromptConfirm("Unmount the default mount point?") {
			c.ctx.Logger.Info("Aborted")
			return nil
		}
	}

	ops, err := c.ctx.Operations(system.CapabilityUnmount)
	if err != nil {
		return err
	}

	resp, err := ops.UnmountUsbDevice(cmd.Context(), &api.UnmountUsbDeviceRequest{MountPoint: mountPoint})
	if err != nil {
		return err
	}

	if c.json {
		if err := ui.FprintJSON(c.ctx.Out, resp); err != nil {
			return err
		}
	}
	if !resp.IsSuccess {
		return fmt.Errorf("failed to unmount%s: %s", kindSuffix(resp.ErrorKind), resp.ErrorMessage)
	}

	if resp.AlreadyInState {
		c.ctx.Logger.Success("Nothing mounted at %s", resp.MountPoint)
	} else {
		c.ctx.Logger.Success("Unmounted %s", resp.MountPoint)
	}
	return nil
}
