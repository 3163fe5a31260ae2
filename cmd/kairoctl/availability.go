package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kairo-backend/internal/availability"
	"kairo-backend/internal/config"
	"kairo-backend/internal/reservationclient"
	"kairo-backend/internal/wizard"
)

func newAvailabilityCmd() *cobra.Command {
	var date, apiURL string

	c := &cobra.Command{
		Use:   "availability",
		Short: "List the slots of a day, from the running API or the local business hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			day, err := parseDay(date, cfg.Timezone)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if apiURL != "" {
				res, err := reservationclient.New(apiURL, cfg.Timezone).Availability(cmd.Context(), day)
				if err != nil {
					return err
				}
				if !res.Available {
					fmt.Fprintf(out, "%s: closed (%s)\n", res.Date, res.Reason)
					return nil
				}
				printSlots(out, res.Slots, cfg.Timezone)
				return nil
			}

			if !availability.IsDayEligible(day, cfg.Timezone, time.Now()) {
				fmt.Fprintf(out, "%s: not bookable\n", availability.DateOf(day, cfg.Timezone))
				return nil
			}
			local := wizard.LocalSlots{Hours: cfg.Hours(), Location: cfg.Timezone}
			slots, err := local.Slots(cmd.Context(), day)
			if err != nil {
				return err
			}
			printSlots(out, slots, cfg.Timezone)
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", "", "day to inspect (YYYY-MM-DD, default today)")
	c.Flags().StringVar(&apiURL, "api", "", "base URL of the API, e.g. http://localhost:8080/api")
	return c
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return availability.StartOfDay(time.Now(), loc), nil
	}
	return availability.ParseDate(raw, loc)
}

func printSlots(w io.Writer, slots []availability.Slot, loc *time.Location) {
	if len(slots) == 0 {
		fmt.Fprintln(w, "no free slots")
		return
	}
	for _, s := range slots {
		fmt.Fprintf(w, "%s-%s\n", s.Start.In(loc).Format("15:04"), s.End.In(loc).Format("15:04"))
	}
}
