package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/nilmeval-cli/internal/apperr"
	modelio "github.com/idlab-discover/nilmeval-cli/internal/io"
	"github.com/idlab-discover/nilmeval-cli/internal/sshmm"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarise a model and map super-states to appliance bins",
	Long: "Prints the labels, bins and super-state count of every fold. --state decodes a super-state index " +
		"into per-appliance bins and power; --bins encodes a comma-separated bin vector into its index.",
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	level, err := logLevel("inspect")
	if err != nil {
		return err
	}
	defer wireLogging(cmd.ErrOrStderr(), level)()

	path := strings.TrimSpace(viper.GetString("inspect.model"))
	if path == "" {
		return apperr.Config("--model is required")
	}
	models, err := modelio.LoadModel(path, viper.GetString("inspect.model-format"))
	if err != nil {
		return err
	}
	fold := viper.GetInt("inspect.fold")
	m, err := models.Fold(fold)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if cmd.Flags().Changed("state") {
		return printDecoded(cmd, m, viper.GetInt("inspect.state"))
	}
	if raw := viper.GetString("inspect.bins"); raw != "" {
		bins, err := parseBins(raw)
		if err != nil {
			return err
		}
		k, err := m.Encode(bins)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, k)
		return nil
	}

	var b strings.Builder
	b.WriteString(ui.Title.Render("Model "+path) + "\n\n")
	b.WriteString(ui.FormatKeyValue("Folds", strconv.Itoa(models.Len())) + "\n")
	b.WriteString(ui.FormatKeyValue("Super-states", strconv.Itoa(m.SuperStates())) + "\n")
	b.WriteString(ui.FormatKeyValue("Sigma", strconv.FormatFloat(m.Sigma(), 'g', 6, 64)) + "\n")
	b.WriteString(ui.FormatKeyValue("Transitions", strconv.FormatBool(m.HasTransitions())))
	if p := m.Precision(); p > 0 {
		b.WriteString("\n" + ui.FormatKeyValue("Precision", strconv.FormatFloat(p, 'g', -1, 64)))
	}
	b.WriteString("\n\n" + ui.SectionHeader.Render(fmt.Sprintf("Bins (fold %d)", fold)))
	for i, label := range m.Labels() {
		b.WriteString(fmt.Sprintf("\n  %s %-14s %v", ui.Muted.Render("•"), label, m.Peaks(i)))
	}
	fmt.Fprintln(out, ui.Box.Render(b.String()))
	return nil
}

func printDecoded(cmd *cobra.Command, m *sshmm.Model, k int) error {
	bins, err := m.Decode(k)
	if err != nil {
		return err
	}
	parts, err := m.Breakdown(bins)
	if err != nil {
		return err
	}
	total, err := m.Estimate(bins)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, label := range m.Labels() {
		fmt.Fprintf(out, "%s\tbin=%d\tpower=%g\n", label, bins[i], parts[i])
	}
	fmt.Fprintf(out, "total\t\tpower=%g\n", total)
	return nil
}

func parseBins(raw string) ([]int, error) {
	fields := strings.Split(raw, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, apperr.Configf("invalid bin %q in --bins", f)
		}
		out[i] = v
	}
	return out, nil
}

func init() {
	f := inspectCmd.Flags()
	f.StringP("model", "m", "", "Trained model file (json|yaml)")
	f.String("model-format", "auto", "Model file format: json|yaml|auto")
	f.Int("fold", 0, "Fold to inspect")
	f.Int("state", 0, "Decode this super-state index")
	f.String("bins", "", "Encode this comma-separated bin vector (label order)")
	f.String("log-level", "", "Log level: quiet|standard|debug")

	bindFlags("inspect", inspectCmd)
}
