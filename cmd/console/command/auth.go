package command

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the back-office API",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Print("Username: ")
		username, _ := reader.ReadString('\n')
		fmt.Print("Password: ")
		password, _ := reader.ReadString('\n')

		username = strings.TrimSpace(username)
		password = strings.TrimSpace(password)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		resp, err := newAPIClient().Login(ctx, username, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		if err := saveSession(resp.Token); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		token = resp.Token

		color.Green("Logged in as %s (%s)", resp.User.Username, resp.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the saved session",
	Run: func(cmd *cobra.Command, args []string) {
		clearSession()
		color.Yellow("Session cleared")
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the current operator profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		user, err := newAPIClient().Profile(ctx)
		if err != nil {
			return fmt.Errorf("profile fetch failed: %w", err)
		}

		fmt.Printf("%-10s %s\n", "ID:", user.ID)
		fmt.Printf("%-10s %s\n", "Username:", user.Username)
		fmt.Printf("%-10s %s\n", "Name:", user.FullName)
		fmt.Printf("%-10s %s\n", "Email:", user.Email)
		fmt.Printf("%-10s %s\n", "Role:", user.Role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(profileCmd)
}
