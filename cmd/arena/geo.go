package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dakheel-code/arena-run-sub001/internal/config"
	"github.com/Dakheel-code/arena-run-sub001/internal/geo"
	"github.com/Dakheel-code/arena-run-sub001/internal/tools/common"
	"github.com/Dakheel-code/arena-run-sub001/internal/tools/ui"
)

func newGeoCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "geo", Short: "Geo lookup helpers"}
	var ci bool
	probe := &cobra.Command{
		Use:   "probe <ip>",
		Short: "Resolve an address through the configured geo lookup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := geo.NewClient(geo.Options{
				BaseURL: cfg.GeoLookupBaseURL,
				Timeout: cfg.GeoLookupTimeout,
			}, geo.NewNoopCache(), slog.New(slog.NewTextHandler(io.Discard, nil)))
			fn := func(ctx context.Context) ([]string, error) {
				return probeGeo(ctx, client, args[0])
			}
			title := "geo probe " + args[0]
			if ci {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GeoLookupTimeout+time.Second)
				defer cancel()
				details, err := fn(ctx)
				if common.PrintCIResult(title, details, err) != 0 {
					os.Exit(4)
				}
				return nil
			}
			_, err = ui.Run(title, fn)
			return err
		},
	}
	probe.Flags().BoolVar(&ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(probe)
	return cmd
}

func probeGeo(ctx context.Context, client *geo.Client, ip string) ([]string, error) {
	start := time.Now()
	loc, err := client.Lookup(ctx, ip)
	if err != nil {
		return []string{fmt.Sprintf("elapsed=%s", time.Since(start).Round(time.Millisecond))}, err
	}
	return []string{
		"country=" + loc.Country,
		"city=" + loc.City,
		"isp=" + loc.ISP,
		fmt.Sprintf("vpn=%t", loc.IsVPN),
		fmt.Sprintf("elapsed=%s", time.Since(start).Round(time.Millisecond)),
	}, nil
}
