package cmd

import (
	"fmt"
	"os"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/PrincetonUniversity/prga-sub001/flow"
	"github.com/PrincetonUniversity/prga-sub001/internal/config"
	"github.com/PrincetonUniversity/prga-sub001/passes"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	archFile   string
	fcIn       float64
	fcOut      float64
	bitmapFile string
)

var elaborateCmd = &cobra.Command{
	Use:   "elaborate",
	Short: "Build and elaborate an architecture",
	Long: `Build the architecture described in a YAML file (or the built-in demo) and
run routing completion, finalization and configuration chain injection on it.

The --fc-in and --fc-out flags override the routing section of the file.
With --bitmap, the configuration map of the top array is written as YAML.`,
	Args: cobra.NoArgs,
	RunE: runElaborate,
}

func init() {
	elaborateCmd.Flags().StringVarP(&archFile, "config", "c", "", "architecture description (default: built-in demo)")
	elaborateCmd.Flags().Float64Var(&fcIn, "fc-in", -1, "fraction of tracks each block input connects to")
	elaborateCmd.Flags().Float64Var(&fcOut, "fc-out", -1, "fraction of tracks each block output connects to")
	elaborateCmd.Flags().StringVar(&bitmapFile, "bitmap", "", "write the configuration map to this file")
	rootCmd.AddCommand(elaborateCmd)
}

func loadConfig() (*config.Config, error) {
	if archFile == "" {
		return config.Default(), nil
	}
	return config.Load(archFile)
}

func runElaborate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("fc-in") {
		cfg.Routing.FcIn = fcIn
	}
	if cmd.Flags().Changed("fc-out") {
		cfg.Routing.FcOut = fcOut
	}

	ctx := prga.NewContext()
	ctx.SetLogger(logger())
	if err = cfg.Build(ctx); err != nil {
		return errors.Wrap(err, "build architecture")
	}
	f, err := newFlow(cfg)
	if err != nil {
		return err
	}
	if err = f.Run(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	top := ctx.Top()
	if top == nil {
		fmt.Fprintf(out, "%d modules\n", len(ctx.Modules()))
		return nil
	}
	bits, _ := top.Ext().Int(prga.ExtCfgBits)
	var cbs, sbs int
	for _, m := range ctx.Modules() {
		if b, ok := m.(*prga.Block); ok {
			switch b.BlockType() {
			case prga.ConnectionBlock:
				cbs++
			case prga.SwitchBlock:
				sbs++
			}
		}
	}
	fmt.Fprintf(out, "top %s: %dx%d tiles, %d modules (%d connection blocks, %d switch blocks), %d ports, %d configuration bits\n",
		top.Name(), top.Width(), top.Height(), len(ctx.Modules()), cbs, sbs, len(top.Ports(prga.PhysicalView)), bits)

	if bitmapFile == "" {
		return nil
	}
	fields, err := passes.ConfigMap(top)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "encode configuration map")
	}
	return errors.Wrap(os.WriteFile(bitmapFile, data, 0o644), "write configuration map")
}

func newFlow(cfg *config.Config) (*flow.Flow, error) {
	return flow.New(
		&passes.RoutingCompletion{FcIn: cfg.Routing.FcIn, FcOut: cfg.Routing.FcOut},
		passes.Finalization{},
		passes.Bitchain{},
	)
}
