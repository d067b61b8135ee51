package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/device"
	"github.com/unitexe/skopos/internal/ui"
)

// DevicesCommand lists removable devices
type DevicesCommand struct {
	ctx  *GlobalContext
	json bool
}

// NewDevicesCommand creates the devices command
func NewDevicesCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &DevicesCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "List removable block devices",
		Long:    `List removable disks and their partitions together with their current mount state.`,
		Args:    cobra.NoArgs,
		RunE:    cmd.Run,
	}

	cobraCmd.Flags().BoolVarP(&cmd.json, "json", "j", false, "JSON output")

	return cobraCmd
}

// Run executes the devices command
func (c *DevicesCommand) Run(cmd *cobra.Command, args []string) error {
	ops, err := c.ctx.Operations()
	if err != nil {
		return err
	}

	resp, err := ops.ListUsbDevices(cmd.Context(), &api.ListUsbDevicesRequest{})
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	for _, w := range resp.Warnings {
		c.ctx.Logger.Warning("Skipped device: %s", w)
	}

	if c.json {
		return ui.FprintJSON(c.ctx.Out, resp)
	}

	if len(resp.Devices) == 0 {
		fmt.Fprintln(c.ctx.Out, "No removable devices found")
		return nil
	}
	c.printTable(resp.Devices)
	return nil
}

func (c *DevicesCommand) printTable(devices []device.Device) {
	table := ui.NewTable("DEVICE", "MOUNTED", "MOUNT POINT")
	for _, d := range devices {
		mountPoint := d.MountPoint
		if mountPoint == "" {
			mountPoint = "-"
		}
		table.AddRow(d.Path, ui.YesNo(d.Mounted), mountPoint)
	}
	table.Fprint(c.ctx.Out)
}
