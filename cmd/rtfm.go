package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/arcward/infobot/infobot"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rtfmLimit int
	rtfmJSON  bool
)

var (
	setColor   = color.New(color.FgCyan, color.Bold)
	keyColor   = color.New(color.FgGreen)
	urlColor   = color.New(color.Faint)
	errorColor = color.New(color.FgRed)
)

var rtfmCmd = &cobra.Command{
	Use:   "rtfm [set] [query]",
	Short: "Search a documentation set from the terminal",
	Long: `Search a documentation set from the terminal.

With no arguments, lists the configured documentation sets. With only
a set, prints the set's base URL.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		docSets, err := infobot.LoadDocSetConfig(cfg.RTFM.DocSetsFile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			return printDocSets(out, docSets)
		}

		cache := infobot.NewIndexCache(
			docSets,
			&infobot.HTTPFetcher{Client: cfg.HTTPClient, UserAgent: cfg.UserAgent},
			cfg.RTFM.FetchTimeout,
			cliLogger(cfg.RTFM.LogLevel),
		)

		var query *string
		if len(args) == 2 {
			q := strings.TrimSpace(args[1])
			if q != "" {
				query = &q
			}
		}

		result, err := cache.Resolve(cmd.Context(), args[0], query, rtfmLimit)
		if err != nil {
			return err
		}

		if rtfmJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printRTFMResult(out, result, cache.Status())
		return nil
	},
}

func printDocSets(w io.Writer, docSets *infobot.DocSetConfig) error {
	if rtfmJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docSets.Sets)
	}
	for _, s := range docSets.Sets {
		setColor.Fprint(w, s.ID)
		if s.Title != "" {
			fmt.Fprintf(w, " (%s)", s.Title)
		}
		fmt.Fprintf(w, "  %s\n", urlColor.Sprint(s.BaseURL))
	}
	return nil
}

func printRTFMResult(w io.Writer, result *infobot.RTFMResult, status []infobot.IndexStatus) {
	if !result.Searched {
		fmt.Fprintln(w, result.Set.BaseURL)
		return
	}

	setColor.Fprintf(w, "%s: %s\n", result.Set.ID, result.Query)
	if len(result.Matches) == 0 {
		fmt.Fprintln(w, "No results found.")
		for _, st := range status {
			if st.SetID == result.Set.ID && st.Error != "" {
				errorColor.Fprintf(w, "Index unavailable: %s\n", st.Error)
			}
		}
		return
	}

	width := 0
	for _, m := range result.Matches {
		width = max(width, len(m.Key))
	}
	for _, m := range result.Matches {
		fmt.Fprintf(
			w,
			"%s%s  %s\n",
			keyColor.Sprint(m.Key),
			strings.Repeat(" ", width-len(m.Key)),
			urlColor.Sprint(m.URL),
		)
	}
}

func init() {
	rtfmCmd.Flags().IntVarP(
		&rtfmLimit,
		"limit",
		"n",
		infobot.DefaultRTFMLimit,
		"Maximum number of results",
	)
	rtfmCmd.Flags().BoolVar(&rtfmJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(rtfmCmd)
}
