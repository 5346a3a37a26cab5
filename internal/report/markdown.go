package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
)

// Markdown renders the count table and the endpoint files as Markdown.
func Markdown(d *Data) string {
	var sb strings.Builder

	title := d.Title
	if d.DryRun {
		title += " (dry run)"
	}

	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Directory: `%s`\n\n", d.Dir)

	if d.RunID != "" {
		fmt.Fprintf(&sb, "Run `%s` took %s.\n\n", d.RunID, d.Duration().Round(time.Millisecond))
	}

	sb.WriteString("| TCK File | Fiber Count | Retention |\n")
	sb.WriteString("|---|---:|---:|\n")

	for i, row := range d.Rows {
		file := row.File
		if row.Note != "" {
			file += " (" + row.Note + ")"
		}

		fmt.Fprintf(&sb, "| %s | %s | %s |\n", escapeCell(file), FormatCount(row.Count), d.retention(i))
	}

	if len(d.ROIs) > 0 {
		sb.WriteString("\n## ROI masks\n\n")
		sb.WriteString("| Tract | Mask | Voxels | Volume (mm³) |\n")
		sb.WriteString("|---|---|---:|---:|\n")

		for _, roi := range d.ROIs {
			mask := roi.File
			if roi.Note != "" {
				mask += " (" + roi.Note + ")"
			}

			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				trimTck(roi.Tract), escapeCell(mask), printer.Sprintf("%d", roi.NonZero), printer.Sprintf("%.1f", roi.VolumeMM3))
		}
	}

	if len(d.Endpoints) > 0 {
		sb.WriteString("\n## Endpoint files\n\n")

		for _, path := range d.Endpoints {
			fmt.Fprintf(&sb, "- `%s`\n", path)
		}
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderTerminal renders markdown for a terminal of the given width.
func RenderTerminal(markdown string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", errors.Wrap(err, "unable to create markdown renderer")
	}

	out, err := r.Render(markdown)
	if err != nil {
		return "", errors.Wrap(err, "unable to render markdown")
	}

	return out, nil
}
