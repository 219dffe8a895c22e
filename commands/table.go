package commands

import (
	"bytes"
	"strconv"

	"github.com/ShawonAshraf/find-free-gpu/pkg/gpuinfo"
	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

func deviceTable(devices []gpuinfo.Device, thresholdMB uint64) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)

	table.SetHeader([]string{"INDEX", "NAME", "MEMORY USED", "MEMORY TOTAL", "STATUS"})

	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, // INDEX
		tablewriter.ALIGN_LEFT, // NAME
		tablewriter.ALIGN_LEFT, // MEMORY USED
		tablewriter.ALIGN_LEFT, // MEMORY TOTAL
		tablewriter.ALIGN_LEFT, // STATUS
	})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, d := range devices {
		table.Append([]string{
			strconv.Itoa(d.Index),
			d.Name,
			units.BytesSize(float64(d.MemoryUsedMB) * units.MiB),
			units.BytesSize(float64(d.MemoryTotalMB) * units.MiB),
			statusLabel(d.MemoryUsedMB < thresholdMB),
		})
	}

	table.Render()
	return buf.String()
}

func statusLabel(free bool) string {
	if free {
		return color.GreenString("free")
	}
	return color.YellowString("occupied")
}
