package report

import (
	"fmt"
	"io"
)

// Print writes rpt to w in the original's print order: gateway workers,
// test workers, device summary, total.
func Print(w io.Writer, rpt Report) {
	printTable(w, "Gateway workers", rpt.GatewayWorkers)
	printTable(w, "Test workers", rpt.TestQueues)

	fmt.Fprintln(w, "Device summary:")
	fmt.Fprintf(w, "  s7:      %d\n", rpt.Devices.S7)
	fmt.Fprintf(w, "  pixel2:  %d\n", rpt.Devices.Pixel2)
	fmt.Fprintf(w, "  motog5:  %d\n", rpt.Devices.MotoG5)
	fmt.Fprintf(w, "Total devices: %d\n", rpt.Devices.Total)
}

func printTable(w io.Writer, title string, rows []GroupCount) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, r := range rows {
		fmt.Fprintf(w, "  %-30s %d\n", r.Name, r.Count)
	}
}
