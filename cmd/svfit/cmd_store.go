// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/curioloop/svfit/report"
	"github.com/curioloop/svfit/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var exportOutput string

// listCmd implements the 'svfit list' command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored datasets and runs",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// deleteCmd implements the 'svfit delete' command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete stored datasets or runs",
	Long:  `Delete datasets or runs by id. Deleting a dataset also deletes its runs.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

// exportCmd implements the 'svfit export' command
var exportCmd = &cobra.Command{
	Use:   "export <run>",
	Short: "Write the results table of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Results table, overrides report.table")
}

func runList(cmd *cobra.Command, _ []string) (err error) {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	datasets, err := s.Datasets()
	if err != nil {
		return err
	}
	runs, err := s.Runs()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tNAME\tITEMS\tCREATED")
	for _, d := range datasets {
		fmt.Fprintf(w, "dataset\t%s\t%s\t%d\t%s\n", d.ID, d.Name, d.Jets, d.Imported.Format(time.DateTime))
	}
	for _, r := range runs {
		fmt.Fprintf(w, "run\t%s\t%s\t%d\t%s\n", r.ID, r.Dataset, r.Records, r.Started.Format(time.DateTime))
	}
	return w.Flush()
}

func runDelete(_ *cobra.Command, args []string) (err error) {
	ids := make([]uuid.UUID, len(args))
	for i, arg := range args {
		if ids[i], err = uuid.Parse(arg); err != nil {
			return fmt.Errorf("%q: %w", arg, err)
		}
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	for _, id := range ids {
		if _, err = s.Dataset(id); err == nil {
			err = s.DeleteDataset(id)
		} else if errors.Is(err, store.ErrNotFound) {
			if _, err = s.Run(id); err == nil {
				err = s.DeleteRun(id)
			}
		}
		if err != nil {
			return err
		}
		log.Info().Stringer("id", id).Msg("deleted")
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	if cmd.Flags().Changed("output") {
		cfg.Report.Table = exportOutput
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	records, err := s.Records(id)
	if err != nil {
		return err
	}
	rows := report.Rows(records)
	if err = writeResults(cfg.Report.Table, rows); err != nil {
		return err
	}
	log.Info().Stringer("run", id).Int("records", len(rows)).Str("table", cfg.Report.Table).Msg("results written")
	return nil
}
