// Package cli implements posctl, the operator command line for the catalog
// and the sales ledger.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/log"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/backend"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/imagestore"
	"github.com/tuanvumaihuynh/event-pos/pkg/validator"
)

// Deps are the services the commands operate on.
type Deps struct {
	Products service.ProductService
	Sales    service.SaleService
	Close    func()
}

// DepsFunc opens Deps lazily, once a command that needs them runs.
type DepsFunc func(ctx context.Context) (Deps, error)

// Config is read from the environment by the default DepsFunc.
type Config struct {
	Log      config.Log
	Storage  config.Storage
	Postgres config.Postgres
	Sale     config.Sale
	Image    config.Image
}

type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
)

type app struct {
	openDeps DepsFunc
	output   string
}

// NewRootCmd builds the command tree. Commands call openDeps when they run
// and release the result before returning.
func NewRootCmd(openDeps DepsFunc) *cobra.Command {
	a := &app{openDeps: openDeps}

	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Manage the point of sale catalog and sales ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch outputFormat(a.output) {
			case outputTable, outputJSON:
				return nil
			default:
				return fmt.Errorf("unknown output format %q", a.output)
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", string(outputTable), "output format: table|json")

	root.AddCommand(
		newMigrateCmd(),
		newProductsCmd(a),
		newSellCmd(a),
		newSalesCmd(a),
	)

	return root
}

func (a *app) open(ctx context.Context) (Deps, func(), error) {
	deps, err := a.openDeps(ctx)
	if err != nil {
		return Deps{}, nil, err
	}
	return deps, func() {
		if deps.Close != nil {
			deps.Close()
		}
	}, nil
}

func (a *app) json() bool {
	return outputFormat(a.output) == outputJSON
}

// OpenDepsFromEnv wires the services over the storage selected by the
// environment.
func OpenDepsFromEnv(ctx context.Context) (Deps, error) {
	cfg, err := config.New[Config]()
	if err != nil {
		return Deps{}, fmt.Errorf("load config: %w", err)
	}

	logger := log.NewLogger(cfg.Log, os.Stderr)

	b, err := backend.Open(ctx, cfg.Storage, cfg.Postgres)
	if err != nil {
		return Deps{}, fmt.Errorf("open storage: %w", err)
	}

	images, err := imagestore.NewOsFSStore(cfg.Image)
	if err != nil {
		b.Close()
		return Deps{}, fmt.Errorf("open image store: %w", err)
	}

	v, err := validator.NewDefaultValidator()
	if err != nil {
		b.Close()
		return Deps{}, fmt.Errorf("create validator: %w", err)
	}

	saleSvc, err := service.NewSaleService(cfg.Sale, logger, b.UnitOfWork, b.Products, b.Sales, v)
	if err != nil {
		b.Close()
		return Deps{}, fmt.Errorf("create sale service: %w", err)
	}

	return Deps{
		Products: service.NewProductService(logger, b.UnitOfWork, b.Products, images, v),
		Sales:    saleSvc,
		Close:    b.Close,
	}, nil
}

// Execute runs posctl against the environment and returns the exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd(OpenDepsFromEnv)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", describeError(err))
		return 1
	}
	return 0
}

var errAborted = errors.New("aborted")
