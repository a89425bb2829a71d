package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/store"
)

var getCmd = &cobra.Command{
	Use:     "get <comment|submission> <id>",
	Short:   "Print a stored record as JSON",
	GroupID: "records",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := model.ParseRecordKind(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		var rec any
		switch kind {
		case model.KindComment:
			rec, err = st.GetComment(ctx, args[1])
		case model.KindSubmission:
			rec, err = st.GetSubmission(ctx, args[1])
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%s %s not found", kind, args[1])
		}
		if err != nil {
			return err
		}
		printJSON(rec)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:     "count",
	Short:   "Show how many records of each kind are stored",
	GroupID: "records",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		counts := make(map[string]int64, 2)
		for _, kind := range []model.RecordKind{model.KindComment, model.KindSubmission} {
			n, err := st.CountRecords(ctx, kind)
			if err != nil {
				return err
			}
			counts[kind.String()] = n
		}

		if jsonOutput {
			printJSON(counts)
			return nil
		}
		fmt.Printf("comments:     %d\n", counts[model.KindComment.String()])
		fmt.Printf("submissions:  %d\n", counts[model.KindSubmission.String()])
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Create or upgrade the store schema and indexes",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(context.Background(), cfg)
		if err != nil {
			return err
		}
		logger.Info("store is up to date", "backend", cfg.Backend)
		return st.Close()
	},
}
