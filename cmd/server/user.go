package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/auth"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/config"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Create a user account directly in the database.

Registering through the API needs an admin token, so use this to create the
first admin. The password is read from stdin when --password is omitted.`,
	Example: `  homeinv user create --username admin --role admin
  homeinv user create --username jdoe --role viewer --directory`,
	RunE: runUserCreate,
}

var userCreateFlags struct {
	username    string
	password    string
	role        string
	email       string
	displayName string
	directory   bool
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userCreateFlags.username, "username", "", "account username (required)")
	f.StringVar(&userCreateFlags.password, "password", "", "account password (local accounts)")
	f.StringVar(&userCreateFlags.role, "role", domain.RoleAdmin, "account role")
	f.StringVar(&userCreateFlags.email, "email", "", "email address")
	f.StringVar(&userCreateFlags.displayName, "display-name", "", "display name")
	f.BoolVar(&userCreateFlags.directory, "directory", false, "verify the password against the directory instead")
	_ = userCreateCmd.MarkFlagRequired("username")

	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	db, store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	password := userCreateFlags.password
	if password == "" && !userCreateFlags.directory {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	users := service.NewUserService(repository.NewUserRepository(store), auth.DefaultPasswordCost)
	user, err := users.Register(cmd.Context(), service.Registration{
		Username:    userCreateFlags.username,
		Password:    password,
		Role:        userCreateFlags.role,
		Email:       userCreateFlags.email,
		DisplayName: userCreateFlags.displayName,
		Local:       !userCreateFlags.directory,
	})
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		return fmt.Errorf("user %q already exists", userCreateFlags.username)
	case err != nil:
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s with role %s\n", user.AuthMode, user.Username, user.Role)
	return nil
}
