package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagBinding maps a config key to a command flag.
type flagBinding struct {
	key  string
	flag string
}

// bindings holds the flag bindings of each command. Several commands share
// flag names, so the running command binds its own flags just before it
// executes.
var bindings = map[*cobra.Command][]flagBinding{}

func registerBindings(cmd *cobra.Command, b ...flagBinding) {
	bindings[cmd] = append(bindings[cmd], b...)
}

// bindFlags binds the flags of cmd and its parents to viper keys.
func bindFlags(cmd *cobra.Command) error {
	for c := cmd; c != nil; c = c.Parent() {
		for _, b := range bindings[c] {
			f := lookupFlag(cmd, b.flag)
			if f == nil {
				return fmt.Errorf("flag %s is not defined on %s", b.flag, cmd.Name())
			}
			if err := viper.BindPFlag(b.key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", b.flag, err)
			}
		}
	}
	return nil
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}

// addScannerFlags adds the decoding flags shared by image, pdf, batch and serve.
func addScannerFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "auto", "decoder backend: auto, zbar or gozxing")
	cmd.Flags().StringSlice("formats", nil, "symbologies to decode, e.g. qr,ean13,code128 (default: all)")
	cmd.Flags().Bool("try-harder", false, "retry rotated when nothing is found")
	cmd.Flags().Bool("multi", true, "report every symbol instead of the first")
	cmd.Flags().Int("x-density", 0, "horizontal scan density (0 = engine default)")
	cmd.Flags().Int("y-density", 0, "vertical scan density (0 = engine default)")
	cmd.Flags().StringArray("set", nil, "engine setting in zbar syntax, e.g. ean13.disable or *.x-density=2 (repeatable)")
	cmd.Flags().String("charset", "auto", "payload charset: auto, utf-8, iso-8859-1, shift_jis, gb18030, binary")
	cmd.Flags().Int("max-image-size", 4096, "downscale images larger than this many pixels per side")

	registerBindings(cmd,
		flagBinding{"scanner.backend", "backend"},
		flagBinding{"scanner.formats", "formats"},
		flagBinding{"scanner.try_harder", "try-harder"},
		flagBinding{"scanner.multi", "multi"},
		flagBinding{"scanner.x_density", "x-density"},
		flagBinding{"scanner.y_density", "y-density"},
		flagBinding{"scanner.configs", "set"},
		flagBinding{"scanner.charset", "charset"},
		flagBinding{"scanner.max_image_size", "max-image-size"},
	)
}

// addOutputFlags adds the output flags shared by image, pdf and batch.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format (text, json, csv, yaml)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	registerBindings(cmd,
		flagBinding{"output.format", "format"},
		flagBinding{"output.file", "output"},
	)
}

// addOverlayFlags adds the overlay image flags.
func addOverlayFlags(cmd *cobra.Command) {
	cmd.Flags().String("overlay-dir", "", "directory to write overlay images (drawn symbol outlines)")
	cmd.Flags().String("overlay-box-color", "#FF0000", "overlay box color (hex)")
	cmd.Flags().String("overlay-poly-color", "#00C800", "overlay outline color (hex)")

	registerBindings(cmd,
		flagBinding{"output.overlay_dir", "overlay-dir"},
		flagBinding{"output.overlay_box_color", "overlay-box-color"},
		flagBinding{"output.overlay_poly_color", "overlay-poly-color"},
	)
}
