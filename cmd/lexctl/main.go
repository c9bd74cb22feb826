package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/lexledger/lexledger/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL   string
	cfgFile     string
	adminSecret string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lexctl",
	Short: "LexLedger CLI",
	Long: `lexctl is the command-line interface for a LexLedger server.

It reads and verifies the tamper-evident amendment ledger, and with the
admin secret appends amendments and ingests legal act XML documents.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.lexledger")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("lexledger")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if adminSecret == "" {
			adminSecret = viper.GetString("admin_secret")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.lexledger/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "LexLedger server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&adminSecret, "secret", "", "admin secret for mutating commands (env LEXLEDGER_ADMIN_SECRET)")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	var opts []client.Option
	if adminSecret != "" {
		opts = append(opts, client.WithAdminSecret(adminSecret))
	}
	return client.New(serverURL, opts...)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyIncremental bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Walk the hash chain and report its integrity",
	Long: `Verify asks the server to re-derive every record hash and link in the
amendment chain. A valid result means no stored record has been altered,
reordered, or removed since it was appended.

  lexctl verify
  lexctl verify --incremental   # only records since the last clean run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Verify(context.Background(), verifyIncremental)
		if err != nil {
			return err
		}
		if res.Valid {
			fmt.Printf("chain OK (%d records checked)\n", res.Checked)
			return nil
		}
		fmt.Printf("chain CORRUPT: %s at seq %d (%d records checked)\n",
			res.Defect, res.FirstBadSeq, res.Checked)
		os.Exit(2)
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyIncremental, "incremental", false, "Verify only records appended since the last successful run")
}

// ── stats ────────────────────────────────────────────────────────────────────

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show chain statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		stats, err := c.Stats(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "records\t%d\n", stats.Count)
		fmt.Fprintf(w, "last verified seq\t%d\n", stats.LastVerifiedSeq)
		if stats.Count > 0 {
			fmt.Fprintf(w, "first timestamp\t%s\n", stats.FirstTimestamp.Format(time.RFC3339))
			fmt.Fprintf(w, "last timestamp\t%s\n", stats.LastTimestamp.Format(time.RFC3339))
			fmt.Fprintf(w, "span\t%s\n", stats.Span)
		}
		return w.Flush()
	},
}

// ── history ──────────────────────────────────────────────────────────────────

var (
	historyOffset int
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List amendments in chain order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		entries, total, err := c.List(context.Background(), historyOffset, historyLimit)
		if err != nil {
			return err
		}

		if historyFormat == "json" {
			return printJSON(entries)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tTIMESTAMP\tACT\tTYPE\tAUTHOR\tSUMMARY")
		for _, e := range entries {
			a := e.Amendment
			if a == nil {
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.Seq, e.Timestamp.Format(time.RFC3339),
				a.ActID, a.ChangeType, a.Author, truncate(a.Summary, 60))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("showing %d of %d\n", len(entries), total)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Skip the first N records")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum records to return")
	historyCmd.Flags().StringVar(&historyFormat, "format", "text", "Output format: text or json")
}

// truncate shortens s to at most n runes; byte slicing would cut Polish
// diacritics in half.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// ── get ──────────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get <seq>",
	Short: "Show one amendment with its full ledger record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("seq must be a non-negative integer: %q", args[0])
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		entry, err := c.Get(context.Background(), seq)
		if err != nil {
			return err
		}
		return printJSON(entry)
	},
}

// ── append ───────────────────────────────────────────────────────────────────

var (
	appendActID      string
	appendActTitle   string
	appendContent    string
	appendChangeType string
	appendAuthor     string
	appendSummary    string
	appendTimestamp  string
)

var appendCmd = &cobra.Command{
	Use:   "append",
	Short: "Append one amendment to the ledger (admin)",
	Long: `Append records a single amendment. Requires the admin secret.

  lexctl append --secret $SECRET \
      --act ACT-2024-001 --author "Sejm RP" --type substantive \
      --content "Artykuł 5 otrzymuje brzmienie ..."

The summary is auto-generated from the content when omitted. The timestamp
defaults to server time; a supplied one must not precede the chain head.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		var ts *time.Time
		if appendTimestamp != "" {
			parsed, err := time.Parse(time.RFC3339, appendTimestamp)
			if err != nil {
				return fmt.Errorf("parse --timestamp: %w", err)
			}
			ts = &parsed
		}

		result, err := c.Submit(context.Background(), client.Amendment{
			ActID:      appendActID,
			ActTitle:   appendActTitle,
			Content:    appendContent,
			ChangeType: appendChangeType,
			Author:     appendAuthor,
			Summary:    appendSummary,
		}, ts)
		if err != nil {
			return err
		}
		fmt.Printf("appended seq %d\nhash      %s\nprev_hash %s\n",
			result.Seq, result.Hash, result.PrevHash)
		return nil
	},
}

func init() {
	appendCmd.Flags().StringVar(&appendActID, "act", "", "Legal act identifier (required)")
	appendCmd.Flags().StringVar(&appendActTitle, "title", "", "Legal act title")
	appendCmd.Flags().StringVar(&appendContent, "content", "", "Full amendment text (required)")
	appendCmd.Flags().StringVar(&appendChangeType, "type", "substantive", "Change type: substantive or editorial")
	appendCmd.Flags().StringVar(&appendAuthor, "author", "", "Amendment author (required)")
	appendCmd.Flags().StringVar(&appendSummary, "summary", "", "Plain-language summary; auto-generated when empty")
	appendCmd.Flags().StringVar(&appendTimestamp, "timestamp", "", "RFC 3339 timestamp; server time when empty")
	appendCmd.MarkFlagRequired("act")     //nolint:errcheck
	appendCmd.MarkFlagRequired("content") //nolint:errcheck
	appendCmd.MarkFlagRequired("author")  //nolint:errcheck
}

// ── ingest ───────────────────────────────────────────────────────────────────

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.xml>",
	Short: "Ingest a legal act XML document (admin)",
	Long: `Ingest parses a LegalAct XML document and appends its amendments to the
chain in document order. Entries that fail validation are skipped and
reported; a persistence failure aborts the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		c, err := newClient()
		if err != nil {
			return err
		}
		report, err := c.IngestXML(context.Background(), f)
		if err != nil {
			return err
		}

		fmt.Printf("run %s: parsed %d, appended %d\n", report.RunID, report.Parsed, report.Appended)
		for _, e := range report.Errors {
			fmt.Printf("  skipped: %s\n", e)
		}
		return nil
	},
}

// ── token ────────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange the admin secret for a bearer token",
	Long: `Token prints a bearer token for use outside lexctl, e.g. with curl:

  curl -H "Authorization: Bearer $(lexctl token --secret $SECRET)" ...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		token, err := c.FetchToken(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lexctl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lexctl", version)
	},
}
