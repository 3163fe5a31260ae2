package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kairo-backend/internal/blog"
	"kairo-backend/internal/config"
	"kairo-backend/internal/db"
	"kairo-backend/internal/portfolio"
	"kairo-backend/internal/settings"
	"kairo-backend/internal/users"
)

func ptr[T any](v T) *T { return &v }

var seedPosts = []blog.UpsertRequest{
	{
		Title:       "Why we start every project with a discovery call",
		Excerpt:     "Thirty minutes that save weeks of rework.",
		Content:     "## Listening first\n\nBefore any estimate we book a short call to understand the *problem*, not the requested feature.\n\n- goals\n- constraints\n- deadlines\n",
		Category:    "process",
		Tags:        []string{"discovery", "consulting"},
		IsPublished: ptr(true),
	},
	{
		Title:       "Shipping a static site that still feels dynamic",
		Excerpt:     "Edge caching, small APIs and a booking widget.",
		Content:     "Static pages do not mean a static business. A tiny API covers bookings, contact forms and site settings.",
		Category:    "engineering",
		Tags:        []string{"go", "performance"},
		IsPublished: ptr(true),
	},
	{
		Title:       "Draft: pricing our maintenance plans",
		Content:     "Work in progress.",
		Category:    "business",
		IsPublished: ptr(false),
	},
}

var seedProjects = []portfolio.UpsertRequest{
	{
		Title:        "Atelier Lumen booking platform",
		Category:     "web",
		ClientName:   "Atelier Lumen",
		Summary:      "Online booking and payments for a photography studio.",
		Problem:      "Appointments were handled by phone and email.",
		Solution:     "A calendar-driven booking flow with automatic confirmations.",
		Result:       "Half of all sessions are now booked online.",
		Technologies: []string{"go", "postgres", "react"},
		IsPublished:  ptr(true),
		IsFeatured:   ptr(true),
		SortOrder:    ptr(1),
	},
	{
		Title:        "Nordlys inventory dashboard",
		Category:     "data",
		ClientName:   "Nordlys",
		Summary:      "Real-time stock levels across three warehouses.",
		Technologies: []string{"go", "nats", "redis"},
		IsPublished:  ptr(true),
		SortOrder:    ptr(2),
	},
}

func newSeedCmd() *cobra.Command {
	var withContent bool

	c := &cobra.Command{
		Use:   "seed",
		Short: "Create the bootstrap admin, default settings and optional demo content",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())

			if err := db.EnsureIndexes(ctx, cols); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			userService := users.NewService(users.NewRepository(cols.Users), cfg.Timezone)
			created, err := userService.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminEmail, cfg.AdminPassword)
			if err != nil {
				return fmt.Errorf("admin user: %w", err)
			}
			switch {
			case created:
				fmt.Fprintf(out, "admin %q created\n", cfg.AdminUser)
			case cfg.AdminPassword == "":
				fmt.Fprintln(out, "ADMIN_PASSWORD not set, skipping admin user")
			default:
				fmt.Fprintf(out, "admin %q already exists\n", cfg.AdminUser)
			}

			settingsRepo := settings.NewRepository(cols.Settings)
			if _, found, err := settingsRepo.Load(ctx); err != nil {
				return fmt.Errorf("settings: %w", err)
			} else if !found {
				if _, err := settings.NewService(settingsRepo, cfg.Timezone).Replace(ctx, settings.Default()); err != nil {
					return fmt.Errorf("settings: %w", err)
				}
				fmt.Fprintln(out, "default settings stored")
			}

			if !withContent {
				return nil
			}

			posts := blog.NewService(blog.NewRepository(cols.Posts), cfg.Timezone)
			for _, req := range seedPosts {
				p, err := posts.Create(ctx, req)
				if errors.Is(err, blog.ErrSlugExists) {
					continue
				}
				if err != nil {
					return fmt.Errorf("post %q: %w", req.Title, err)
				}
				fmt.Fprintf(out, "post %s\n", p.Slug)
			}

			projects := portfolio.NewService(portfolio.NewRepository(cols.Projects), cfg.Timezone)
			for _, req := range seedProjects {
				p, err := projects.Create(ctx, req)
				if errors.Is(err, portfolio.ErrSlugExists) {
					continue
				}
				if err != nil {
					return fmt.Errorf("project %q: %w", req.Title, err)
				}
				fmt.Fprintf(out, "project %s\n", p.Slug)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&withContent, "demo", false, "also insert demo blog posts and portfolio projects")
	return c
}
