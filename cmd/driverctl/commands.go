package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ogurasousui/driver-retention/internal/adapters/xlsx"
	"github.com/ogurasousui/driver-retention/internal/app"
	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/followup"
	"github.com/ogurasousui/driver-retention/internal/core/metrics"
	"github.com/ogurasousui/driver-retention/internal/platform/calendar"
	"github.com/olekukonko/tablewriter"
)

type command func(ctx context.Context, a *app.App, args []string, stdout io.Writer) error

var commands = map[string]command{
	"kpi":       runKPI,
	"followups": runFollowUps,
	"import":    runImport,
	"export":    runExport,
	"sync":      runSync,
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	return t
}

func runKPI(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	fs := newFlagSet("kpi")
	rangeFlag := fs.String("range", "", "1m, 3m, 6m, 12m or all (defaults to the saved setting)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var rg metrics.Range
	if strings.TrimSpace(*rangeFlag) == "" {
		prefs, err := a.Preferences.Get(ctx)
		if err != nil {
			return err
		}
		rg = prefs.Range
	} else {
		parsed, err := metrics.ParseRange(*rangeFlag)
		if err != nil {
			return err
		}
		rg = parsed
	}

	drivers, err := a.Drivers.Drivers(ctx)
	if err != nil {
		return err
	}
	today := a.Drivers.Today()
	all := metrics.MonthlyStats(drivers, today)
	summary := metrics.Summarize(drivers, all, today)

	fmt.Fprintf(stdout, "Month %s  Active %d  New hires %d  Leavers %d  Retention %s\n\n",
		summary.Month, summary.Active, summary.NewHiresMTD, summary.LeaversMTD, summary.FormatRetentionMTD())

	monthly := newTable(stdout, "Month", "HC Start", "HC End", "Avg HC", "Leavers", "Retention")
	for _, s := range metrics.Window(all, rg) {
		monthly.Append([]string{
			s.Month.String(),
			strconv.Itoa(s.HCStart),
			strconv.Itoa(s.HCEnd),
			metrics.FormatHeadcount(s.AvgHC),
			strconv.Itoa(s.Leavers),
			calendar.FormatPercent(s.RetentionPct),
		})
	}
	monthly.Render()

	board := metrics.Leaderboard(drivers)
	if len(board) == 0 {
		return nil
	}
	fmt.Fprintln(stdout)
	leaders := newTable(stdout, "Recruiter", "Drivers", "Follow-up completion")
	for _, s := range board {
		leaders.Append([]string{s.Recruiter, strconv.Itoa(s.Drivers), calendar.FormatPercent(s.Completion)})
	}
	leaders.Render()
	return nil
}

func runFollowUps(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	fs := newFlagSet("followups")
	overdueOnly := fs.Bool("overdue", false, "only drivers with an overdue check-in")
	showArchived := fs.Bool("archived", false, "include archived drivers")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	rows, err := a.FollowUps.Table(ctx)
	if err != nil {
		return err
	}

	table := newTable(stdout, "Name", "Recruiter", "Start", "Week 1", "Week 2", "Week 3", "Week 4", "Done")
	for _, r := range rows {
		if r.Driver.Archived && !*showArchived {
			continue
		}
		if *overdueOnly && !r.Overdue() {
			continue
		}
		cells := []string{r.Driver.Name, r.Driver.Recruiter, r.Driver.StartDate.String()}
		for w := 0; w < driver.Weeks; w++ {
			cells = append(cells, weekCell(r, w))
		}
		cells = append(cells, calendar.FormatPercent(r.Driver.Completion()))
		table.Append(cells)
	}
	table.Render()
	return nil
}

func weekCell(r followup.Row, w int) string {
	switch r.States[w] {
	case followup.StateNoSchedule:
		return ""
	case followup.StateDone:
		return "done"
	default:
		return fmt.Sprintf("%s (%s)", r.Due[w], strings.ReplaceAll(string(r.States[w]), "_", " "))
	}
}

func runImport(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	fs := newFlagSet("import")
	file := fs.String("file", "", "CSV file to import")
	mappingFlag := fs.String("map", "", "field=header pairs separated by commas (defaults to same-name headers)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *file == "" {
		return fmt.Errorf("%w: import requires -file", errUsage)
	}

	mapping, err := parseMapping(*mappingFlag)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}

	res, err := a.Drivers.ImportCSV(ctx, data, mapping)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Imported: %d new, %d updated\n", res.Inserted, res.Updated)

	if len(res.Warnings) > 0 {
		table := newTable(stdout, "Line", "Field", "Value", "Note")
		for _, w := range res.Warnings {
			table.Append([]string{strconv.Itoa(w.Line), w.Field, w.Value, w.Message})
		}
		table.Render()
	}
	return nil
}

// parseMapping は "name=Driver Name,startDate=Start" 形式を解釈します。空文字列は nil です。
func parseMapping(raw string) (driver.Mapping, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	m := make(driver.Mapping)
	for _, pair := range strings.Split(raw, ",") {
		key, header, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: mapping %q must be field=header", errUsage, pair)
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(header)
	}
	return m, m.Validate()
}

func runExport(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	fs := newFlagSet("export")
	format := fs.String("format", "csv", "csv or xlsx")
	dir := fs.String("dir", ".", "output directory")
	filtered := fs.Bool("filtered", false, "apply the saved filter")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	drivers, err := a.Drivers.Drivers(ctx)
	if err != nil {
		return err
	}
	today := a.Drivers.Today()
	if *filtered {
		f, err := a.Filters.Current(ctx)
		if err != nil {
			return err
		}
		drivers = f.Apply(drivers, today, nil)
	}

	var path string
	switch strings.ToLower(*format) {
	case "csv":
		text, err := driver.ExportCSV(drivers)
		if err != nil {
			return err
		}
		path = filepath.Join(*dir, driver.ExportFileName(today))
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	case "xlsx":
		all, err := a.Drivers.Drivers(ctx)
		if err != nil {
			return err
		}
		path = filepath.Join(*dir, xlsx.FileName(today))
		if err := writeXLSX(path, drivers, metrics.MonthlyStats(all, today)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, *format)
	}

	fmt.Fprintf(stdout, "Exported %d drivers to %s\n", len(drivers), path)
	return nil
}

func writeXLSX(path string, drivers []driver.Driver, stats []metrics.MonthlyStat) (err error) {
	if len(drivers) == 0 {
		return driver.ErrNothingToExport
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return xlsx.Write(f, drivers, stats)
}

func runSync(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	fs := newFlagSet("sync")
	url := fs.String("url", "", "CSV export URL (defaults to the saved setting)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	target := strings.TrimSpace(*url)
	if target == "" {
		prefs, err := a.Preferences.Get(ctx)
		if err != nil {
			return err
		}
		target = prefs.SheetURL
	}

	res, err := a.Sync.SyncNow(ctx, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Synced: %d new, %d updated\n", res.Inserted, res.Updated)
	return nil
}
