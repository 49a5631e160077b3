package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/insighted/schoolprofile/internal/logger"
	"github.com/insighted/schoolprofile/internal/reference"
)

// rootOptions holds the dataset settings shared by every subcommand.
// Flags win over environment variables.
type rootOptions struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "refdata",
		Short: "Inspect and query the school reference dataset",
		Long: "Loads the school reference dataset (CSV, XLSX or an s3:// object) the way the API does " +
			"and answers lookups offline: dataset status, school resolution, cascading options and hierarchy normalization.",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("source", "", "dataset location: a .csv/.xlsx path or s3://bucket/key (env REFERENCE_SOURCE)")
	flags.String("s3-region", "us-east-1", "S3 region (env REFERENCE_S3_REGION)")
	flags.String("s3-endpoint", "", "S3-compatible endpoint (env REFERENCE_S3_ENDPOINT)")
	flags.Bool("s3-path-style", false, "use path-style S3 addressing (env REFERENCE_S3_PATH_STYLE)")
	flags.Bool("verbose", false, "log loader progress to stderr")

	_ = opts.v.BindPFlag("REFERENCE_SOURCE", flags.Lookup("source"))
	_ = opts.v.BindPFlag("REFERENCE_S3_REGION", flags.Lookup("s3-region"))
	_ = opts.v.BindPFlag("REFERENCE_S3_ENDPOINT", flags.Lookup("s3-endpoint"))
	_ = opts.v.BindPFlag("REFERENCE_S3_PATH_STYLE", flags.Lookup("s3-path-style"))
	_ = opts.v.BindPFlag("VERBOSE", flags.Lookup("verbose"))
	opts.v.AutomaticEnv()

	cmd.AddCommand(
		newInspectCmd(opts),
		newResolveCmd(opts),
		newOptionsCmd(opts),
		newNormalizeCmd(opts),
	)
	return cmd
}

// load reads the dataset and builds its index.
func (o *rootOptions) load(cmd *cobra.Command) (*reference.Index, *reference.Loader, error) {
	location := o.v.GetString("REFERENCE_SOURCE")
	if location == "" {
		return nil, nil, fmt.Errorf("no dataset: pass --source or set REFERENCE_SOURCE")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	source, err := reference.NewSource(ctx, location, reference.S3Config{
		Region:    o.v.GetString("REFERENCE_S3_REGION"),
		Endpoint:  o.v.GetString("REFERENCE_S3_ENDPOINT"),
		PathStyle: o.v.GetBool("REFERENCE_S3_PATH_STYLE"),
	})
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if o.v.GetBool("VERBOSE") {
		level = "debug"
	}
	log := logger.New("development", logger.WithLevel(level), logger.WithOutput(cmd.ErrOrStderr()))

	loader := reference.NewLoader(source, log)
	ix, err := loader.Index(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ix, loader, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
