package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kairo-backend/internal/availability"
	"kairo-backend/internal/config"
	"kairo-backend/internal/reservationclient"
	"kairo-backend/internal/wizard"
)

func newBookCmd() *cobra.Command {
	var (
		apiURL, date, at string
		details          wizard.Details
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Walk through the booking wizard against a running API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			day, err := availability.ParseDate(date, cfg.Timezone)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			client := reservationclient.New(apiURL, cfg.Timezone)
			w := wizard.New(client, client, cfg.Timezone)

			if err := w.SelectDate(ctx, day); err != nil {
				return err
			}
			offered := w.State().Offered
			if at == "" {
				printSlots(out, offered, cfg.Timezone)
				return nil
			}

			var picked *availability.Slot
			for i := range offered {
				if offered[i].Start.In(cfg.Timezone).Format("15:04") == at {
					picked = &offered[i]
					break
				}
			}
			if picked == nil {
				return fmt.Errorf("%s is not free on %s", at, date)
			}
			if err := w.SelectSlot(*picked); err != nil {
				return err
			}
			if err := w.SetDetails(details); err != nil {
				return err
			}

			res, err := w.Submit(ctx)
			if err != nil {
				var fe wizard.FieldErrors
				if errors.As(err, &fe) {
					for field, msg := range fe {
						fmt.Fprintf(out, "%s: %s\n", field, msg)
					}
				}
				if reservationclient.IsConflict(err) {
					return fmt.Errorf("slot was taken meanwhile: %w", err)
				}
				return err
			}
			fmt.Fprintf(out, "booked %s on %s at %s\n", res.ID, availability.DateOf(res.StartTime, cfg.Timezone), res.StartTime.In(cfg.Timezone).Format("15:04"))
			if res.CancellationToken != "" {
				fmt.Fprintf(out, "cancellation token: %s\n", res.CancellationToken)
			}
			return nil
		},
	}

	c.Flags().StringVar(&apiURL, "api", "http://localhost:8080/api", "base URL of the API")
	c.Flags().StringVar(&date, "date", "", "day to book (YYYY-MM-DD)")
	c.Flags().StringVar(&at, "time", "", "slot start (HH:MM); omit to list the free slots")
	c.Flags().StringVar(&details.Name, "name", "", "client name")
	c.Flags().StringVar(&details.Email, "email", "", "client email")
	c.Flags().StringVar(&details.Phone, "phone", "", "client phone")
	c.Flags().StringVar(&details.Type, "type", "", "discovery, consultation, presentation or follow-up")
	c.Flags().StringVar(&details.Method, "method", "", "video or phone")
	c.Flags().StringVar(&details.Description, "description", "", "project description")
	_ = c.MarkFlagRequired("date")
	return c
}
