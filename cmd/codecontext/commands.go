package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codecontext/internal/index"
	"github.com/dshills/codecontext/internal/mcp"
)

func serveCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("watch") {
				a.cfg.Watch = watch
			}
			server := mcp.NewServer(a.manager, mcp.WithLogger(a.logger), mcp.WithWatch(a.cfg.Watch))
			a.logger.Info("MCP server ready, listening on stdio", "version", version, "watch", a.cfg.Watch)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Serve(cmd.Context()) }()

			select {
			case <-cmd.Context().Done():
				a.logger.Info("shutting down")
				return server.Close()
			case err := <-errCh:
				return err
			}
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "invalidate a project's index when its files change")
	return cmd
}

func indexCmd() *cobra.Command {
	var force, jsonOutput bool
	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Build or refresh the index of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.manager.Index(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(res)
			}
			source := "rebuilt"
			if res.FromCache {
				source = "reused cache"
			}
			fmt.Printf("Indexed %s (%s): %d files, %d fragments in %s\n",
				res.Root, source, res.Files, res.Fragments, res.Duration.Round(time.Millisecond))
			if st := res.Stats; st != nil && st.FilesFailed > 0 {
				fmt.Printf("%d files failed:\n", st.FilesFailed)
				for _, msg := range st.ErrorMessages {
					fmt.Printf("  %s\n", msg)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even when the cached index is fresh")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		limit       int
		currentFile string
		showContent bool
	)
	cmd := &cobra.Command{
		Use:   "search <path> <query>",
		Short: "Rank code fragments against a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			query := strings.Join(args[1:], " ")
			resp, err := a.manager.Search(cmd.Context(), args[0], query, limit, currentFile)
			if err != nil {
				return err
			}
			if len(resp.Results) == 0 {
				fmt.Println("No results.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tSCORE\tLOCATION\tKIND\tDESCRIPTION")
			for _, r := range resp.Results {
				f := r.Fragment
				fmt.Fprintf(tw, "%d\t%.3f\t%s:%d-%d\t%s\t%s\n",
					r.Rank, r.Score, f.FilePath, f.StartLine+1, f.EndLine+1, f.Kind, f.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if showContent {
				for _, r := range resp.Results {
					fmt.Printf("\n--- %s:%d-%d\n%s\n", r.Fragment.FilePath, r.Fragment.StartLine+1, r.Fragment.EndLine+1, r.Fragment.Content)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "k", 10, "number of results")
	cmd.Flags().StringVar(&currentFile, "current-file", "", "file being edited; its fragments rank higher")
	cmd.Flags().BoolVar(&showContent, "content", false, "print fragment contents")
	return cmd
}

func contextCmd() *cobra.Command {
	var (
		currentFile string
		maxTokens   int
		jsonOutput  bool
	)
	cmd := &cobra.Command{
		Use:   "context <path> <query>",
		Short: "Assemble a token-bounded context bundle for a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			query := strings.Join(args[1:], " ")
			bundle, err := a.manager.GetContext(cmd.Context(), args[0], query, currentFile, maxTokens)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(bundle)
			}
			for _, path := range bundle.FilePaths {
				fmt.Printf("=== %s\n%s\n", path, bundle.FileContents[path])
			}
			m := bundle.Metadata
			fmt.Fprintf(os.Stderr, "%d files (%d full, %d partial), %d fragments, %d chars, ~%d tokens\n",
				len(bundle.FilePaths), len(m.FullFiles), len(m.PartialFiles), m.TotalFragments, bundle.TotalChars(), m.EstimatedTokens)
			return nil
		},
	}
	cmd.Flags().StringVar(&currentFile, "current-file", "", "file being edited")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "token budget; 0 uses the configured default")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func invalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <path>",
		Short: "Delete a project's index so the next query rebuilds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.Invalidate(args[0]); err != nil {
				return err
			}
			fmt.Printf("Invalidated index of %s\n", args[0])
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var (
		jsonOutput bool
		file       string
	)
	cmd := &cobra.Command{
		Use:   "status <path>",
		Short: "Show whether a project is indexed and fresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if file != "" {
				outline, err := a.manager.Outline(cmd.Context(), args[0], file)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(outline)
				}
				return printOutline(outline)
			}

			st, err := a.manager.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(st)
			}
			printStatus(st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&file, "file", "", "outline one indexed file instead")
	return cmd
}

func printOutline(o *index.FileOutline) error {
	fmt.Printf("File:      %s (%s, ~%d tokens)\n", o.Path, o.Language, o.Tokens)
	if len(o.Exports) > 0 {
		fmt.Printf("Exports:   %s\n", strings.Join(o.Exports, " "))
	}
	for _, d := range o.Dependencies {
		if len(d.Symbols) > 0 {
			fmt.Printf("Imports:   %s (%s)\n", d.File, strings.Join(d.Symbols, ", "))
		} else {
			fmt.Printf("Imports:   %s\n", d.File)
		}
	}
	for _, d := range o.Dependents {
		fmt.Printf("Used by:   %s\n", d)
	}

	fmt.Println()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINES\tKIND\tTOKENS\tDESCRIPTION")
	for _, f := range o.Fragments {
		fmt.Fprintf(tw, "%d-%d\t%s\t%d\t%s\n", f.StartLine+1, f.EndLine+1, f.Kind, f.Tokens, f.Description)
	}
	return tw.Flush()
}

func printStatus(st *index.Status) {
	fmt.Printf("Project:   %s\n", st.Root)
	fmt.Printf("Cache:     %s\n", st.CacheDir)
	if !st.Cached && !st.Loaded {
		fmt.Println("Status:    not indexed")
		return
	}
	state := "fresh"
	if st.Stale {
		state = "stale"
	}
	fmt.Printf("Status:    %s\n", state)
	fmt.Printf("Files:     %d\n", st.Files)
	fmt.Printf("Fragments: %d\n", st.Fragments)
	if st.Provider != "" {
		fmt.Printf("Embedding: %s/%s\n", st.Provider, st.Model)
	}
	if !st.BuiltAt.IsZero() {
		fmt.Printf("Built:     %s\n", st.BuiltAt.Format(time.RFC3339))
	}
	if len(st.Languages) > 0 {
		langs := make([]string, 0, len(st.Languages))
		for lang, n := range st.Languages {
			langs = append(langs, fmt.Sprintf("%s=%d", lang, n))
		}
		sort.Strings(langs)
		fmt.Printf("Languages: %s\n", strings.Join(langs, " "))
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
