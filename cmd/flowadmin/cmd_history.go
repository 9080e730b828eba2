// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/flowadmin/flowadmin/pkg/client"
	"github.com/spf13/cobra"
)

var (
	historyUser   string
	historySource string
	historyCount  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent flow configuration changes",
	Example: `  flowadmin history
  flowadmin history --source env-provider --count 5`,
	Args: cobra.NoArgs,
	RunE: runSession("history", runHistory),
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyUser, "user", "", "only changes made by this identity")
	f.StringVar(&historySource, "source", "", "only changes to this component id")
	f.IntVar(&historyCount, "count", 20, "maximum number of changes to show")
}

func runHistory(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	if historyCount < 0 {
		return fmt.Errorf("--count must not be negative")
	}
	h, err := a.client.GetFlowHistory(ctx, client.HistoryQuery{
		UserIdentity: historyUser,
		SourceID:     historySource,
		Count:        historyCount,
	})
	if err != nil {
		return err
	}
	return a.emit("history", start, h, func() {
		a.out.Title("Flow History")
		if len(h.Actions) == 0 {
			a.out.Info("No changes recorded.")
			return
		}
		rows := make([][]string, 0, len(h.Actions))
		for _, act := range h.Actions {
			rows = append(rows, []string{
				act.Timestamp, act.UserIdentity, act.Operation, act.SourceType, act.SourceID, act.Outcome,
			})
		}
		a.out.Table([]string{"Time", "User", "Operation", "Type", "Id", "Outcome"}, rows)
		if h.Total > len(h.Actions) {
			a.out.Info(fmt.Sprintf("Showing %d of %d changes.", len(h.Actions), h.Total))
		}
	})
}
