package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// printer writes status lines, colored when the terminal supports it.
type printer struct {
	out io.Writer
	err io.Writer
}

func newPrinter(out, errOut io.Writer) *printer {
	return &printer{out: out, err: errOut}
}

func (p *printer) Success(format string, args ...any) {
	if color.NoColor {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
		return
	}
	color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
}

func (p *printer) Warning(format string, args ...any) {
	if color.NoColor {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
		return
	}
	color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
}

func (p *printer) Error(format string, args ...any) {
	if color.NoColor {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
		return
	}
	color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
}

// renderTable writes rows under headers with borders off and left alignment.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
