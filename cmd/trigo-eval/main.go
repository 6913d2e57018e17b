package main

import (
	"os"

	"github.com/aleksaelezovic/trigo-eval/internal/config"
	"github.com/aleksaelezovic/trigo-eval/internal/storage"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/processor"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the global flags and the state derived from them.
type rootOptions struct {
	configPath string

	cfg    config.Config
	logger logr.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "trigo-eval",
		Short:        "Evaluate SPARQL algebra over a badger triplestore",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if opts.configPath != "" {
				var err error
				if cfg, err = config.Load(opts.configPath); err != nil {
					return err
				}
			}
			opts.cfg = cfg
			opts.logger = cfg.Logger()
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(newDemoCommand(opts))
	cmd.AddCommand(newMatchCommand(opts))
	cmd.AddCommand(newDescribeCommand(opts))

	return cmd
}

// openStore opens the configured triplestore; the caller closes it
func (o *rootOptions) openStore() (*store.TripleStore, error) {
	var (
		backend *storage.BadgerStorage
		err     error
	)
	if o.cfg.Storage.InMemory {
		backend, err = storage.NewInMemoryBadgerStorage()
	} else {
		backend, err = storage.NewBadgerStorage(o.cfg.Storage.Path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}

	ts, err := store.NewTripleStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	o.logger.V(1).Info("storage opened", "path", o.cfg.Storage.Path, "inMemory", o.cfg.Storage.InMemory)
	return ts, nil
}

func (o *rootOptions) newProcessor(data store.Dataset) *processor.Processor {
	return processor.New(data,
		processor.WithOptions(o.cfg.Engine),
		processor.WithLogger(o.logger),
	)
}
