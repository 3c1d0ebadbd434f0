package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/rebalancer/internal/config"
	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/export"
)

var callerFlag = &cli.StringFlag{
	Name:     "caller",
	Usage:    "identity performing the operation",
	EnvVars:  []string{"REBALANCER_CALLER"},
	Required: true,
}

// requireDatabase rejects administration commands that would only touch an
// in-memory store and exit.
func requireDatabase(cfg config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for this command")
	}
	return nil
}

// withRegistry opens the persistent dependencies for one command run.
func withRegistry(c *cli.Context, fn func(ctx context.Context, d *deps) error) error {
	cfg := config.Load()
	if err := requireDatabase(cfg); err != nil {
		return err
	}
	d, err := openDeps(c.Context, cfg)
	if err != nil {
		return err
	}
	defer d.close()
	return fn(c.Context, d)
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "record the administrator and oracle address",
		Flags: []cli.Flag{
			callerFlag,
			&cli.StringFlag{Name: "admin", Usage: "administrator identity (defaults to --caller)"},
			&cli.StringFlag{Name: "oracle", Usage: "oracle address: a Horizon URL, \"fallback\" or \"coingecko\"", Value: "fallback"},
		},
		Action: func(c *cli.Context) error {
			admin := c.String("admin")
			if admin == "" {
				admin = c.String("caller")
			}
			return withRegistry(c, func(ctx context.Context, d *deps) error {
				return d.registry.Initialize(ctx, c.String("caller"), admin, c.String("oracle"))
			})
		},
	}
}

func addAssetCommand() *cli.Command {
	return &cli.Command{
		Name:  "add-asset",
		Usage: "register a supported asset",
		Flags: []cli.Flag{
			callerFlag,
			&cli.StringFlag{Name: "id", Usage: "asset ID: \"native\" or CODE:ISSUER", Required: true},
			&cli.StringFlag{Name: "symbol", Usage: "display symbol (defaults to the asset code)"},
			&cli.UintFlag{Name: "decimals", Usage: "decimal precision", Value: domain.StellarPrecision},
		},
		Action: func(c *cli.Context) error {
			asset, err := domain.ParseAssetID(c.String("id"))
			if err != nil {
				return err
			}
			if s := c.String("symbol"); s != "" {
				asset.Symbol = s
			}
			asset.Decimals = uint32(c.Uint("decimals"))

			return withRegistry(c, func(ctx context.Context, d *deps) error {
				if err := d.registry.AddSupportedAsset(ctx, c.String("caller"), asset); err != nil {
					return err
				}
				slog.Info("asset registered", "id", asset.ID, "symbol", asset.Symbol)
				return nil
			})
		},
	}
}

func setOracleCommand() *cli.Command {
	return &cli.Command{
		Name:  "set-oracle",
		Usage: "change the oracle address",
		Flags: []cli.Flag{
			callerFlag,
			&cli.StringFlag{Name: "address", Usage: "a Horizon URL, \"fallback\" or \"coingecko\"", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withRegistry(c, func(ctx context.Context, d *deps) error {
				return d.registry.UpdateOracleAddress(ctx, c.String("caller"), c.String("address"))
			})
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "write the status of every active portfolio to a workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "XLSX output path", Value: "rebalancer-status.xlsx"},
			&cli.BoolFlag{Name: "sheets", Usage: "also write to the configured Google spreadsheet"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if c.Bool("sheets") && !cfg.SheetsEnabled() {
				return errors.New("--sheets needs SHEETS_SPREADSHEET_ID and GOOGLE_CREDENTIALS_JSON")
			}

			return withRegistry(c, func(ctx context.Context, d *deps) error {
				xlsx := export.NewXLSXWriter(c.String("out"))
				report, err := export.NewService(d.registry, xlsx).Build(ctx, nil)
				if err != nil {
					return err
				}
				if err := xlsx.Write(ctx, report); err != nil {
					return err
				}
				slog.Info("report written", "path", c.String("out"), "rows", len(report.Status))

				if !c.Bool("sheets") {
					return nil
				}
				writer, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.GoogleCredentialsJSON)
				if err != nil {
					return err
				}
				if err := writer.Write(ctx, report); err != nil {
					return fmt.Errorf("writing spreadsheet: %w", err)
				}
				return nil
			})
		},
	}
}
