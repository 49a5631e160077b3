package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insighted/schoolprofile/internal/models"
	"github.com/insighted/schoolprofile/internal/reference"
)

// inspectReport is the output of the inspect command.
type inspectReport struct {
	Status  reference.Status `json:"status"`
	Regions []string         `json:"regions"`
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show dataset status, resolved headers and regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ix, loader, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd, inspectReport{
				Status:  loader.Status(),
				Regions: ix.OptionsFor(models.LevelRegion, models.Hierarchy{}),
			})
		},
	}
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var id, name string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a school by identifier or name",
		Long:  "Looks a school up by --id (a trailing \".0\" style suffix is ignored) or by exact --name, ignoring case. --id wins when both are set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id == "" && name == "" {
				return fmt.Errorf("one of --id or --name is required")
			}
			ix, _, err := opts.load(cmd)
			if err != nil {
				return err
			}

			var (
				candidate models.ResolvedCandidate
				found     bool
			)
			if id != "" {
				candidate, found = ix.ResolveByID(id)
			} else {
				candidate, found = ix.ResolveByName(name)
			}
			if !found {
				return fmt.Errorf("no school matches id=%q name=%q", id, name)
			}
			return printJSON(cmd, candidate)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "school identifier")
	cmd.Flags().StringVar(&name, "name", "", "school name")
	return cmd
}

func newOptionsCmd(opts *rootOptions) *cobra.Command {
	var (
		level   string
		parents models.Hierarchy
	)

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the options of one level given the chosen parents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, ok := models.ParseLevel(level)
			if !ok {
				return fmt.Errorf("unknown level %q", level)
			}
			ix, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd, ix.OptionsFor(l, parents))
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "region, province, municipality, barangay, division, district or legislative_district")
	cmd.Flags().StringVar(&parents.Region, "region", "", "chosen region")
	cmd.Flags().StringVar(&parents.Province, "province", "", "chosen province")
	cmd.Flags().StringVar(&parents.Municipality, "municipality", "", "chosen municipality")
	cmd.Flags().StringVar(&parents.Division, "division", "", "chosen division")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func newNormalizeCmd(opts *rootOptions) *cobra.Command {
	var raw models.Hierarchy

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Map raw hierarchy values onto their canonical spelling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ix, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd, ix.NormalizeHierarchy(raw))
		},
	}

	f := cmd.Flags()
	f.StringVar(&raw.Region, "region", "", "")
	f.StringVar(&raw.Province, "province", "", "")
	f.StringVar(&raw.Municipality, "municipality", "", "")
	f.StringVar(&raw.Barangay, "barangay", "", "")
	f.StringVar(&raw.Division, "division", "", "")
	f.StringVar(&raw.District, "district", "", "")
	f.StringVar(&raw.LegislativeDistrict, "legislative-district", "", "")
	return cmd
}
