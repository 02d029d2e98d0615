package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	"github.com/idlab-discover/nilmeval-cli/internal/builder"
	modelio "github.com/idlab-discover/nilmeval-cli/internal/io"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var bomCmd = &cobra.Command{
	Use:   "bom",
	Short: "Export a CycloneDX model card for a trained model",
	Long:  "Writes a CycloneDX ML-BOM whose model component describes the labels, bins, super-state count and folds of the model.",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logLevel("bom")
		if err != nil {
			return err
		}
		defer wireLogging(cmd.ErrOrStderr(), level)()

		modelPath := strings.TrimSpace(viper.GetString("bom.model"))
		output := strings.TrimSpace(viper.GetString("bom.output"))
		if modelPath == "" || output == "" {
			return apperr.Config("--model and --output are required")
		}
		models, err := modelio.LoadModel(modelPath, viper.GetString("bom.model-format"))
		if err != nil {
			return err
		}

		opts := builder.DefaultOptions()
		opts.IncludeBinProperties = !viper.GetBool("bom.no-bins")
		bom, err := builder.NewBOMBuilder(opts).Build(builder.BuildContext{
			Name:      viper.GetString("bom.name"),
			ModelPath: modelPath,
			Models:    models,
			Dataset:   viper.GetString("bom.dataset"),
		})
		if err != nil {
			return err
		}
		if err := modelio.WriteBOM(bom, output, viper.GetString("bom.format"), viper.GetString("bom.spec")); err != nil {
			return err
		}
		if level != "quiet" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.CheckMark+" model card written to "+ui.Secondary.Render(output))
		}
		return nil
	},
}

func init() {
	f := bomCmd.Flags()
	f.StringP("model", "m", "", "Trained model file (json|yaml)")
	f.String("model-format", "auto", "Model file format: json|yaml|auto")
	f.StringP("output", "o", "", "Output path (.json or .xml)")
	f.StringP("format", "f", "auto", "Output format: json|xml|auto")
	f.String("spec", "", "CycloneDX spec version (1.5|1.6)")
	f.String("name", "", "Model component name (default: model file name)")
	f.String("dataset", "", "Training dataset to reference from the card")
	f.Bool("no-bins", false, "Omit per-appliance bin properties")
	f.String("log-level", "", "Log level: quiet|standard|debug")

	bindFlags("bom", bomCmd)
}
