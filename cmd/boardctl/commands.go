package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/vibes-studio/internal/board"
	"github.com/mmeshcher/vibes-studio/internal/model"
	"github.com/mmeshcher/vibes-studio/internal/repository"
	"github.com/mmeshcher/vibes-studio/internal/service"
)

// browserStorageKey: ключ, под которым сайт хранил доску в localStorage.
const browserStorageKey = "vibesProjects"

func openStore(cmd *cobra.Command) (repository.Store, error) {
	dsn, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	return repository.Open(dsn)
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current board document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			return exportBoard(cmd.Context(), store, out)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")

	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the board with a document or a browser localStorage dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var expected *int64
			if cmd.Flags().Changed("if-version") {
				v, _ := cmd.Flags().GetInt64("if-version")
				expected = &v
			}

			return importBoard(cmd.Context(), store, data, expected, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64("if-version", 0, "Only import if the stored board has this version")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a board document without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			doc, err := decodeDocument(data)
			if err != nil {
				return err
			}
			if err := board.Validate(doc); err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}

func exportBoard(ctx context.Context, store repository.Store, out io.Writer) error {
	b, err := store.LoadBoard(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func importBoard(ctx context.Context, store repository.Store, data []byte, expected *int64, out io.Writer) error {
	doc, err := decodeDocument(data)
	if err != nil {
		return err
	}

	svc := service.NewService(store, service.Options{Logger: zap.NewNop()})
	b, err := svc.ImportBoard(ctx, doc, expected)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "imported board, version %d\n", b.Version)
	printSummary(out, b)
	return nil
}

// decodeDocument принимает документ доски как есть или объект localStorage,
// где под ключом vibesProjects лежит строка с JSON.
func decodeDocument(data []byte) (*model.Board, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	if raw, ok := wrapper[browserStorageKey]; ok {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			data = []byte(inner)
		} else {
			data = raw
		}
	}

	var doc model.Board
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}

	if doc.Past == nil && doc.Current == nil && doc.Future == nil && doc.Proposed == nil {
		return nil, errors.New("document has no project lists")
	}
	return &doc, nil
}

func printSummary(out io.Writer, b *model.Board) {
	parts := make([]string, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		parts = append(parts, fmt.Sprintf("%s=%d", s, len(*b.List(s))))
	}
	fmt.Fprintln(out, strings.Join(parts, " "))
}
