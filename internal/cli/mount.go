package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/system"
	"github.com/unitexe/skopos/internal/ui"
)

// MountCommand handles device mounting
type MountCommand struct {
	ctx  *GlobalContext
	json bool
}

// NewMountCommand creates the mount command
func NewMountCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &MountCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "mount <device> [mount-point]",
		Short: "Mount a removable device",
		Long: `Mount a removable device, creating the mount point if needed.
Without a mount point the configured mount root (default /mnt/usb) is used.`,
		Args: cobra.MaximumNArgs(2),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().BoolVarP(&cmd.json, "json", "j", false, "JSON output")

	return cobraCmd
}

// Run executes the mount command
func (c *MountCommand) Run(cmd *cobra.Command, args []string) error {
	devicePath, err := c.ctx.argOrPrompt(args, 0, "Device path")
	if err != nil {
		return err
	}
	var mountPoint string
	if len(args) > 1 {
		if mountPoint, err = c.ctx.localPath(args[1]); err != nil {
			return err
		}
	}

	ops, err := c.ctx.Operations(system.CapabilityMount)
	if err != nil {
		return err
	}

	c.ctx.Logger.Info("Mounting %s...", devicePath)
	resp, err := ops.MountUsbDevice(cmd.Context(), &api.MountUsbDeviceRequest{
		DevicePath: devicePath,
		MountPoint: mountPoint,
	})
	if err != nil {
		return err
	}

	if c.json {
		if err := ui.FprintJSON(c.ctx.Out, resp); err != nil {
			return err
		}
	}
	if !resp.IsSuccess {
		return fmt.Errorf("mount failed%s: %s", kindSuffix(resp.ErrorKind), resp.ErrorMessage)
	}

	if resp.AlreadyInState {
		c.ctx.Logger.Success("%s is already mounted at %s", devicePath, resp.MountPoint)
	} else {
		c.ctx.Logger.Success("Device mounted at: %s", resp.MountPoint)
	}
	return nil
}
