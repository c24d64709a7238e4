package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/gojournal/internal/usecase"
)

var (
	baseURL string
	token   string
	timeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gojournal-cli",
		Short:         "GoJournal CLI tool",
		Long:          `A command line interface for operating the GoJournal ledger and its API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the GoJournal API")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("GOJOURNAL_TOKEN"), "Bearer token for the API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		ledgerCmd(),
		entriesCmd(),
		reportsCmd(),
		migrateCmd(),
		outboxCmd(),
		tokenCmd(),
	)
	return rootCmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check that total debits equal total credits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConsistency(cmd.Context(), newAPIClient())
		},
	}

	var (
		repair    bool
		accountID string
	)
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored balances with the posting log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reconcile(cmd.Context(), newAPIClient(), accountID, repair)
		},
	}
	reconcileCmd.Flags().BoolVar(&repair, "repair", false, "Rewrite mismatched balances from the posting log")
	reconcileCmd.Flags().StringVar(&accountID, "account", "", "Reconcile a single account")

	cmd.AddCommand(consistencyCmd, reconcileCmd)
	return cmd
}

func entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Journal entry operations",
	}

	postCmd := &cobra.Command{
		Use:   "post <id>",
		Short: "Post a draft entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return entryAction(cmd.Context(), newAPIClient(), args[0], "post")
		},
	}

	reverseCmd := &cobra.Command{
		Use:   "reverse <id>",
		Short: "Reverse a posted entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return entryAction(cmd.Context(), newAPIClient(), args[0], "reverse")
		},
	}

	cmd.AddCommand(postCmd, reverseCmd)
	return cmd
}

func reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Aggregate reports",
	}

	var from, to string
	trialBalanceCmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if from != "" {
				q.Set("from", from)
			}
			if to != "" {
				q.Set("to", to)
			}
			path := "/api/v1/reports/trial-balance"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			body, status, err := newAPIClient().do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return apiError("trial balance", status, body)
			}
			printRaw(body)
			return nil
		},
	}
	trialBalanceCmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	trialBalanceCmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")

	cmd.AddCommand(trialBalanceCmd)
	return cmd
}

func checkConsistency(ctx context.Context, client *apiClient) error {
	body, status, err := client.do(ctx, http.MethodGet, "/api/v1/ledger/consistency", nil)
	if err != nil {
		return err
	}

	var report usecase.ConsistencyReport
	if status == http.StatusOK || status == http.StatusConflict {
		if err := json.Unmarshal(body, &report); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	switch status {
	case http.StatusOK:
		fmt.Printf("Consistency check PASSED\n")
		fmt.Printf("Debits: %s Credits: %s\n", report.TotalDebits, report.TotalCredits)
		return nil
	case http.StatusConflict:
		fmt.Printf("Consistency check FAILED\n")
		fmt.Printf("Debits: %s Credits: %s Difference: %s\n", report.TotalDebits, report.TotalCredits, report.Difference)
		return fmt.Errorf("ledger is inconsistent")
	default:
		return apiError("consistency check", status, body)
	}
}

func reconcile(ctx context.Context, client *apiClient, accountID string, repair bool) error {
	if accountID != "" {
		method, path := http.MethodGet, "/api/v1/accounts/"+url.PathEscape(accountID)+"/reconcile"
		if repair {
			method, path = http.MethodPost, "/api/v1/accounts/"+url.PathEscape(accountID)+"/repair"
		}
		body, status, err := client.do(ctx, method, path, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return apiError("reconcile", status, body)
		}
		printRaw(body)
		return nil
	}

	body, status, err := client.do(ctx, http.MethodGet, "/api/v1/ledger/reconciliation", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError("reconciliation report", status, body)
	}

	var report usecase.ReconciliationReport
	if err := json.Unmarshal(body, &report); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Accounts: %d reconciled: %d ledger consistent: %v\n",
		report.TotalAccounts, report.ReconciledAccounts, report.LedgerConsistent)
	for _, d := range report.Discrepancies {
		fmt.Printf("  %-12s %-12s recorded=%s calculated=%s diff=%s\n",
			truncate(d.AccountCode, 12), truncate(d.AccountID, 12), d.RecordedBalance, d.CalculatedBalance, d.Difference)
	}

	if !repair || len(report.Discrepancies) == 0 {
		return nil
	}

	for _, d := range report.Discrepancies {
		body, status, err := client.do(ctx, http.MethodPost, "/api/v1/accounts/"+url.PathEscape(d.AccountID)+"/repair", nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return apiError("repair "+d.AccountID, status, body)
		}
		fmt.Printf("Repaired %s\n", d.AccountID)
	}
	return nil
}

func entryAction(ctx context.Context, client *apiClient, id, action string) error {
	body, status, err := client.do(ctx, http.MethodPost, "/api/v1/journal-entries/"+url.PathEscape(id)+"/"+action, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return apiError(action+" entry", status, body)
	}
	printRaw(body)
	return nil
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func apiError(op string, status int, body []byte) error {
	return fmt.Errorf("%s failed (status %d): %s", op, status, strings.TrimSpace(string(body)))
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// printRaw pretty-prints a JSON response body.
func printRaw(body []byte) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	printJSON(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
