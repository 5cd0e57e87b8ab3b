package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/forPelevin/autosub/internal/types"
)

// progress renders a bar on interactive terminals and does nothing elsewhere.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer) *progress {
	if !isInteractive(w) {
		return &progress{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("transcribing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &progress{bar: bar}
}

func (p *progress) Add(types.TranscriptionResult) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func isInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// RenderFailures lists failed regions with their timing and cause.
func RenderFailures(regions []types.Region, failures []types.TranscriptionResult) string {
	byIndex := make(map[int]types.Region, len(regions))
	for _, r := range regions {
		byIndex[r.Index] = r
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		r := byIndex[f.Index]
		rows = append(rows, []string{
			strconv.Itoa(f.Index),
			clock(r.Start),
			clock(r.End),
			f.Kind.String(),
			strconv.Itoa(f.Attempts),
			failureReason(f.Err),
		})
	}
	return renderTable(
		[]string{"Region", "Start", "End", "Kind", "Attempts", "Error"},
		rows,
		[]text.Align{text.AlignRight, text.AlignRight, text.AlignRight, text.AlignLeft, text.AlignRight, text.AlignLeft},
	)
}

// RenderRegions lists detected regions.
func RenderRegions(regions []types.Region) string {
	rows := make([][]string, 0, len(regions))
	for _, r := range regions {
		rows = append(rows, []string{
			strconv.Itoa(r.Index),
			clock(r.Start),
			clock(r.End),
			fmt.Sprintf("%.2fs", r.Duration().Seconds()),
		})
	}
	return renderTable(
		[]string{"Region", "Start", "End", "Length"},
		rows,
		[]text.Align{text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight},
	)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{
			Number:           i + 1,
			Align:            align,
			AlignHeader:      text.AlignLeft,
			WidthMax:         60,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func failureReason(err error) string {
	if err == nil {
		return ""
	}
	var se *types.ServiceError
	if errors.As(err, &se) && se.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d", se.Provider, se.StatusCode)
	}
	return err.Error()
}

func clock(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, d/time.Millisecond)
}
