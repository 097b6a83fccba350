package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"restock-watcher/extractor"
	"restock-watcher/internal/config"
	"restock-watcher/internal/types"
	"restock-watcher/monitor"
	"restock-watcher/notify"
	"restock-watcher/utils"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Checks every target once and sends an alert for each available size.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}
}

func (a *app) run(ctx context.Context) (err error) {
	dispatcher, err := a.telegram()
	if err != nil {
		return err
	}

	m, statusStore, err := a.newMonitor(ctx, dispatcher, a.stateDSN)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore(statusStore)) }()

	_, err = m.RunCycle(ctx)
	return err
}

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch [--interval <duration>]",
		Short: "Runs a cycle every interval until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dispatcher, err := a.telegram()
			if err != nil {
				return err
			}

			// a long-running watcher keeps statuses in memory unless told otherwise
			dsn := a.stateDSN
			if dsn == "" {
				dsn = "memory"
			}
			m, statusStore, err := a.newMonitor(ctx, dispatcher, dsn)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, closeStore(statusStore)) }()

			a.logger.Infof("Watching every %v", interval)
			return m.Watch(ctx, interval, nil)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Time between cycles")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Dry run: prints the status of every target size without sending alerts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// no store: a dry run must not mark sizes as notified
			m, _, err := a.newMonitor(cmd.Context(), notify.LogDispatcher{Logger: a.logger}, "")
			if err != nil {
				return err
			}

			report, err := m.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			renderReport(report, m.Targets())
			return nil
		},
	}
}

func newInspectCmd(a *app) *cobra.Command {
	rules := types.DefaultSiteRules()
	rules.Strategy = types.StrategyEnumerate

	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Lists every size option found on a page, to help write target rules.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			target := types.MonitorTarget{URL: args[0], Sizes: []types.SizeKey{"-"}, Rules: rules}
			if err := config.Validate(target); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.config.CycleTimeout)
			defer cancel()

			loader, err := utils.NewPageLoader(ctx, a.config, a.logger)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, loader.Close()) }()

			page, err := loader.Open(ctx, target.URL)
			if err != nil {
				return err
			}

			container := rules.ContainerSelector
			if container == "" {
				container = rules.OptionSelector
			}
			if container != "" {
				if err := page.WaitFor(ctx, container, a.config.ElementTimeout); err != nil {
					a.logger.Warnf("Size block not found: %v", err)
				}
			}

			options, err := extractor.NewExtractor(a.logger).Options(ctx, page, rules)
			if err != nil {
				return err
			}
			renderOptions(target.URL, options)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&rules.OptionSelector, "option-selector", rules.OptionSelector, "CSS selector of one size option")
	flags.StringVar(&rules.ContainerSelector, "container-selector", rules.ContainerSelector, "CSS selector awaited before reading options")
	flags.StringVar(&rules.LabelAttribute, "label-attribute", rules.LabelAttribute, "Attribute holding the size label; empty reads the element text")
	return cmd
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderReport(report *monitor.CycleReport, targets []types.MonitorTarget) {
	t := newTable()
	t.AppendHeader(table.Row{"Target", "Size", "Status", "Note"})

	for i, res := range report.Targets {
		if res.Err != nil {
			t.AppendRow(table.Row{res.URL, "", "", fmt.Sprintf("failed while %s: %v", res.FailedIn, res.Err)})
			continue
		}
		for _, size := range targets[i].Sizes {
			status := res.Statuses[size]
			note := ""
			if status == types.StatusAvailable {
				note = "would alert"
			}
			t.AppendRow(table.Row{res.URL, size, status, note})
		}
	}

	t.AppendFooter(table.Row{"", "", "Alerts", len(report.Events())})
	t.Render()
}

func renderOptions(url string, options []extractor.SizeOption) {
	t := newTable()
	t.SetTitle(url)
	t.AppendHeader(table.Row{"#", "Label", "Key", "Status"})
	for i, opt := range options {
		t.AppendRow(table.Row{i + 1, opt.Label, opt.Key, opt.Status})
	}
	t.Render()
}
