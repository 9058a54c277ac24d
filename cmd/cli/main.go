package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
	token   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fundledger-cli",
		Short: "FundLedger CLI tool",
		Long:  `A command line interface for interacting with the FundLedger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the FundLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token for authenticated endpoints")

	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(fundCmd())
	rootCmd.AddCommand(capitalCallCmd())
	rootCmd.AddCommand(distributionCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API health",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, status, err := get("/ready")
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("not ready (status %d): %s", status, truncate(string(body), 200))
			}
			fmt.Println("API is ready")
			return nil
		},
	}
}

func fundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Fund operations",
	}

	var nav string
	perfCmd := &cobra.Command{
		Use:   "performance <fund-id>",
		Short: "Show fund performance measures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"nav": {nav}}
			return getAndPrint("/api/v1/funds/" + args[0] + "/performance?" + q.Encode())
		},
	}
	perfCmd.Flags().StringVar(&nav, "nav", "0", "Current net asset value of the fund")

	ownershipCmd := &cobra.Command{
		Use:   "ownership <fund-id>",
		Short: "List investor ownership for a fund",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/funds/" + args[0] + "/ownership")
		},
	}

	cmd.AddCommand(perfCmd, ownershipCmd)
	return cmd
}

func capitalCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capital-call",
		Short: "Capital call operations",
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a capital call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/capital-calls/" + args[0])
		},
	}

	allocationsCmd := &cobra.Command{
		Use:   "allocations <id>",
		Short: "List per-investor allocations for a capital call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/capital-calls/" + args[0] + "/allocations")
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show the approval trail of a capital call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/capital-calls/" + args[0] + "/history")
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Verify the approval trail replays to the current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyHistory("/api/v1/capital-calls/" + args[0] + "/history/verify")
		},
	}

	cmd.AddCommand(getCmd, allocationsCmd, historyCmd, verifyCmd)
	return cmd
}

func distributionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Distribution operations",
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/distributions/" + args[0])
		},
	}

	waterfallCmd := &cobra.Command{
		Use:   "waterfall <id>",
		Short: "Preview the waterfall split for a distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/distributions/" + args[0] + "/waterfall/preview")
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Verify the approval trail replays to the current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyHistory("/api/v1/distributions/" + args[0] + "/history/verify")
		},
	}

	cmd.AddCommand(getCmd, waterfallCmd, verifyCmd)
	return cmd
}

func historyCmd() *cobra.Command {
	var entityType, actorID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the approval history log",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if entityType != "" {
				q.Set("entity_type", entityType)
			}
			if actorID != "" {
				q.Set("actor_id", actorID)
			}
			q.Set("limit", fmt.Sprintf("%d", limit))
			return getAndPrint("/api/v1/history?" + q.Encode())
		},
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "", "Filter by entity type (capital_call or distribution)")
	cmd.Flags().StringVar(&actorID, "actor", "", "Filter by actor ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to return")
	return cmd
}

func get(path string) ([]byte, int, error) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}

func getAndPrint(path string) error {
	body, status, err := get(path)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("request failed (status %d): %s", status, truncate(string(body), 200))
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	printJSON(result)
	return nil
}

func verifyHistory(path string) error {
	body, status, err := get(path)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("request failed (status %d): %s", status, truncate(string(body), 200))
	}

	var result struct {
		CurrentStatus  string `json:"current_status"`
		ReplayedStatus string `json:"replayed_status"`
		Consistent     bool   `json:"consistent"`
		Error          string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.Consistent {
		fmt.Printf("History check FAILED\nCurrent: %s\nReplayed: %s\n", result.CurrentStatus, result.ReplayedStatus)
		if result.Error != "" {
			fmt.Printf("Error: %s\n", result.Error)
		}
		os.Exit(1)
	}

	fmt.Printf("History check PASSED\nStatus: %s\n", result.CurrentStatus)
	return nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
