package cli

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(buyCmd)

	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskAssignCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCreateCmd.Flags().Int64("reward", 0, "Point reward paid on completion")
	taskCreateCmd.Flags().String("desc", "", "Task description")
	taskCreateCmd.Flags().String("category", "junior", "Minimum member category (junior, pleno, senior)")

	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountEnsureCmd)
	accountCmd.AddCommand(accountPromoteCmd)
	accountCmd.AddCommand(accountDemoteCmd)
	accountCmd.AddCommand(accountAdjustCmd)
	accountEnsureCmd.Flags().String("name", "", "Display name")
	accountEnsureCmd.Flags().String("role", "member", "Role (member, admin, client, partner)")
	accountEnsureCmd.Flags().String("category", "junior", "Member category")
	accountAdjustCmd.Flags().String("note", "", "Reason recorded on the ledger entry")
}

// ─── balance ────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance ACCOUNT_ID",
	Short: "Show an account's point balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := apiCall(cmd, http.MethodGet, "/api/v1/accounts/"+args[0]+"/balance", nil)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %v pts\n", args[0], out["balance"])
		return nil
	},
}

// ─── board ──────────────────────────────────────────────────────────────────

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the task board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := apiCall(cmd, http.MethodGet, "/api/v1/tasks", nil)
		if err != nil {
			return err
		}
		return printJSON(out["tasks"])
	},
}

// ─── catalog / buy ──────────────────────────────────────────────────────────

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List active shop products, cheapest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := apiCall(cmd, http.MethodGet, "/api/v1/products", nil)
		if err != nil {
			return err
		}
		return printJSON(out["products"])
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy PRODUCT_ID",
	Short: "Buy one unit of a product with points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := apiCall(cmd, http.MethodPost, "/api/v1/products/"+args[0]+"/purchase", nil)
		if err != nil {
			return err
		}
		if ok, _ := out["success"].(bool); !ok {
			return fmt.Errorf("purchase failed: %v", out["message"])
		}
		fmt.Println("Purchased.")
		return nil
	},
}

// ─── task ───────────────────────────────────────────────────────────────────

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks on the board",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create an open task (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reward, _ := cmd.Flags().GetInt64("reward")
		desc, _ := cmd.Flags().GetString("desc")
		category, _ := cmd.Flags().GetString("category")
		out, err := apiCall(cmd, http.MethodPost, "/api/v1/tasks", map[string]any{
			"title":             args[0],
			"description":       desc,
			"points_reward":     reward,
			"category_required": category,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created task %v\n", out["id"])
		return nil
	},
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign TASK_ID ACCOUNT_ID",
	Short: "Assign a task to a member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := apiCall(cmd, http.MethodPost, "/api/v1/tasks/"+args[0]+"/assign",
			map[string]any{"account_id": args[1]})
		if err != nil {
			return err
		}
		fmt.Println("Assigned.")
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move TASK_ID STATUS",
	Short: "Move a task between open and in_progress",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := apiCall(cmd, http.MethodPost, "/api/v1/tasks/"+args[0]+"/transition",
			map[string]any{"status": args[1]})
		if err != nil {
			return err
		}
		fmt.Println("Moved.")
		return nil
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete TASK_ID",
	Short: "Complete a task and pay its reward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := apiCall(cmd, http.MethodPost, "/api/v1/tasks/"+args[0]+"/complete", nil)
		if err != nil {
			return err
		}
		if entry, ok := out["entry"].(map[string]any); ok {
			fmt.Printf("Completed. %v pts paid to %v\n", entry["amount"], entry["account_id"])
		} else {
			fmt.Println("Completed.")
		}
		return nil
	},
}

// ─── account ────────────────────────────────────────────────────────────────

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

var accountEnsureCmd = &cobra.Command{
	Use:   "ensure ACCOUNT_ID",
	Short: "Register an account if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		role, _ := cmd.Flags().GetString("role")
		category, _ := cmd.Flags().GetString("category")
		if name == "" {
			name = args[0]
		}
		out, err := apiCall(cmd, http.MethodPost, "/api/v1/accounts", map[string]any{
			"id": args[0], "name": name, "role": role, "category": category,
		})
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var accountPromoteCmd = &cobra.Command{
	Use:   "promote ACCOUNT_ID",
	Short: "Promote an account to admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := apiCall(cmd, http.MethodPost, "/api/v1/accounts/"+args[0]+"/promote", nil); err != nil {
			return err
		}
		fmt.Println("Promoted.")
		return nil
	},
}

var accountDemoteCmd = &cobra.Command{
	Use:   "demote ACCOUNT_ID",
	Short: "Demote an admin back to member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := apiCall(cmd, http.MethodPost, "/api/v1/accounts/"+args[0]+"/demote", nil); err != nil {
			return err
		}
		fmt.Println("Demoted.")
		return nil
	},
}

var accountAdjustCmd = &cobra.Command{
	Use:   "adjust ACCOUNT_ID DELTA",
	Short: "Manually credit or debit points (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("delta must be an integer: %w", err)
		}
		note, _ := cmd.Flags().GetString("note")
		out, err := apiCall(cmd, http.MethodPost, "/api/v1/accounts/"+args[0]+"/adjust",
			map[string]any{"delta": delta, "note": note})
		if err != nil {
			return err
		}
		fmt.Printf("Adjusted by %v pts (entry %v)\n", out["amount"], out["id"])
		return nil
	},
}
