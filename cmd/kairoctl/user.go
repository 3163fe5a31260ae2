package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kairo-backend/internal/auth"
	"kairo-backend/internal/config"
	"kairo-backend/internal/db"
	"kairo-backend/internal/users"
	"kairo-backend/internal/validation"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage back-office users",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserPasswordCmd())
	return cmd
}

func withUsers(cmd *cobra.Command, fn func(ctx context.Context, svc *users.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	return fn(ctx, users.NewService(users.NewRepository(cols.Users), cfg.Timezone))
}

func newUserAddCmd() *cobra.Command {
	var req users.CreateRequest

	c := &cobra.Command{
		Use:   "add",
		Short: "Create an admin or editor account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.New().Struct(req); err != nil {
				return err
			}
			return withUsers(cmd, func(ctx context.Context, svc *users.Service) error {
				u, err := svc.Create(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (%s)\n", u.Role, u.Username, u.ID)
				return nil
			})
		},
	}

	c.Flags().StringVar(&req.Username, "username", "", "username")
	c.Flags().StringVar(&req.Email, "email", "", "email")
	c.Flags().StringVar(&req.Password, "password", "", "password (10 to 72 characters)")
	c.Flags().StringVar(&req.Role, "role", auth.RoleAdmin, "admin or editor")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}

func newUserPasswordCmd() *cobra.Command {
	var login, password string

	c := &cobra.Command{
		Use:   "password",
		Short: "Reset the password of an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n := len(password); n < 10 || n > 72 {
				return fmt.Errorf("password must be 10 to 72 characters")
			}
			return withUsers(cmd, func(ctx context.Context, svc *users.Service) error {
				u, err := svc.GetByLogin(ctx, login)
				if err != nil {
					return err
				}
				if err := svc.SetPassword(ctx, u.ID, password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %q\n", u.Username)
				return nil
			})
		},
	}

	c.Flags().StringVar(&login, "login", "", "username or email")
	c.Flags().StringVar(&password, "password", "", "new password")
	_ = c.MarkFlagRequired("login")
	_ = c.MarkFlagRequired("password")
	return c
}
