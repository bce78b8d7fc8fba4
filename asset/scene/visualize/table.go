package visualize

import (
	"fmt"
	"io"
	"strings"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/olekukonko/tablewriter"
)

// Render a table with one row per node visited by walk. Rows are indented
// by node depth.
func DumpTable(w io.Writer, walk Walker) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Node", "Index", "Branch", "Min", "Max", "Area"})

	leafs := 0
	boxes := CollectBoxes(walk)
	for _, box := range boxes {
		kind := "node"
		if box.Leaf {
			kind = "leaf"
			leafs++
		}

		area := scene.BoundingBox{Min: box.Min, Max: box.Max}.Area()

		table.Append([]string{
			strings.Repeat("  ", box.Depth) + kind,
			fmt.Sprint(box.Index),
			box.Branch.String(),
			fmtVec3(box.Min),
			fmtVec3(box.Max),
			fmt.Sprintf("%.3f", area),
		})
	}

	table.SetFooter([]string{"Total", fmt.Sprint(len(boxes)), "", "", fmt.Sprintf("%d leafs", leafs), ""})
	table.Render()
}

func fmtVec3(v [3]float32) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}
