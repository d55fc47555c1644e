package main

import (
	"fmt"

	"folio/internal/app"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create EMAIL",
	Short: "Create an account; the first one becomes admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := app.UserInput{Email: args[0]}
		in.ID, _ = cmd.Flags().GetString("id")
		in.Name, _ = cmd.Flags().GetString("name")
		in.Role, _ = cmd.Flags().GetString("role")
		in.Language, _ = cmd.Flags().GetString("language")

		a, err := newApp(cmd, "CreateUser")
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.CreateUser(in)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s <%s> as %s\n", u.ID(), u.Email(), u.RoleName())
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete ID|EMAIL",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(cmd, "delete user "+args[0]); err != nil {
			return err
		}

		a, err := newApp(cmd, "DeleteUser")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteUser(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListUsers")
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.ListUsers()
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Println("No accounts.")
			return nil
		}
		for _, u := range users {
			fmt.Printf("%-12s %-30s %-10s %s\n", u.ID(), u.Email(), u.RoleName(), u.Name())
		}
		return nil
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().String("id", "", "Account id; generated when empty")
	userCreateCmd.Flags().String("name", "", "Display name")
	userCreateCmd.Flags().String("role", "", "Role name")
	userCreateCmd.Flags().String("language", "", "Interface language")

	userCmd.AddCommand(userDeleteCmd)
	userDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	userCmd.AddCommand(userListCmd)
}
