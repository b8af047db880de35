package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// describeEvent formats a progress event as one log line.
func describeEvent(e platesolve.Event) string {
	var b strings.Builder
	b.WriteString(e.Phase.String())
	if e.Attempt > 0 {
		fmt.Fprintf(&b, " attempt=%d", e.Attempt)
	}
	if e.Iteration > 0 {
		fmt.Fprintf(&b, " iteration=%d state=%s", e.Iteration, e.State)
	}
	if e.Image != nil {
		fmt.Fprintf(&b, " image=%s (%d bytes)", e.Image.Name, len(e.Image.Data))
	}
	if e.Statistics != nil {
		fmt.Fprintf(&b, " stars=%d hfr=%.2f", e.Statistics.StarCount, e.Statistics.HFR)
	}
	if e.Result != nil && e.Separation == nil {
		fmt.Fprintf(&b, " result=%q", e.Result.String())
	}
	if e.Separation != nil {
		fmt.Fprintf(&b, " separation=%.2f'", e.Separation.Distance.ArcMinutes())
	}
	if e.Message != "" {
		b.WriteString(" " + e.Message)
	}
	return b.String()
}

// writeSummary prints the final outcome as a plain key/value table.
func writeSummary(w io.Writer, title string, res platesolve.PlateSolveResult, err error) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("─", len([]rune(title))))

	if err != nil {
		fmt.Fprintf(w, "%-12s %s\n", "Status", "error")
		fmt.Fprintf(w, "%-12s %v\n", "Error", err)
		return
	}
	if !res.Success {
		fmt.Fprintf(w, "%-12s %s\n", "Status", "no solution")
		return
	}

	c := res.Coordinates.Transform(astro.J2000)
	fmt.Fprintf(w, "%-12s %s\n", "Status", "solved")
	fmt.Fprintf(w, "%-12s %s\n", "RA (J2000)", c.RA.HMS())
	fmt.Fprintf(w, "%-12s %s\n", "Dec (J2000)", c.Dec.String())
	fmt.Fprintf(w, "%-12s %.2f°\n", "Rotation", res.Orientation)
	fmt.Fprintf(w, "%-12s %.3f\"/px\n", "Scale", res.Pixscale)
	if res.Flipped {
		fmt.Fprintf(w, "%-12s %s\n", "Flipped", "yes")
	}
	if res.Separation != nil {
		fmt.Fprintf(w, "%-12s %.2f'\n", "Separation", res.Separation.Distance.ArcMinutes())
	}
}
