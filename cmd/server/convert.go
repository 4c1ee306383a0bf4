package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/maauso/video2gif-api/internal/bootstrap"
	"github.com/maauso/video2gif-api/internal/conversion"
)

type convertOptions struct {
	fps   *int
	scale *float64
	out   string
}

func newConvertCommand() *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <video>",
		Short: "Convert a local video file once",
		Long: "Convert a local video file with the configured pipeline. In direct-stream " +
			"mode the GIF is written to --out; in hosted-url mode the hosted URL is printed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var err error
			if opts.fps, opts.scale, err = flagOverrides(cmd); err != nil {
				return err
			}
			return runConvert(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().Int("fps", 0, "Frames per second (default from DEFAULT_FPS)")
	cmd.Flags().Float64("scale", 0, "Scale factor in (0, 1] (default from DEFAULT_SCALE or the delivery mode)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output GIF path for direct-stream mode (default <video>.gif)")

	return cmd
}

// flagOverrides returns the --fps and --scale values given on the command
// line, or nil for flags left unset so the configured defaults apply.
func flagOverrides(cmd *cobra.Command) (*int, *float64, error) {
	var (
		fps   *int
		scale *float64
	)
	if cmd.Flags().Changed("fps") {
		v, err := cmd.Flags().GetInt("fps")
		if err != nil {
			return nil, nil, err
		}
		fps = &v
	}
	if cmd.Flags().Changed("scale") {
		v, err := cmd.Flags().GetFloat64("scale")
		if err != nil {
			return nil, nil, err
		}
		scale = &v
	}
	return fps, scale, nil
}

func runConvert(ctx context.Context, stdout io.Writer, videoPath string, opts convertOptions) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	f, err := os.Open(videoPath) // #nosec G304 - path is provided by the operator
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat video: %w", err)
	}

	out, err := deps.Converter.Convert(ctx, conversion.ConvertInput{
		Filename: filepath.Base(videoPath),
		Body:     f,
		Size:     info.Size(),
		FPS:      opts.fps,
		Scale:    opts.scale,
	})
	if err != nil {
		return err
	}

	if out.Mode == conversion.DeliveryHostedURL {
		_, err = fmt.Fprintln(stdout, out.URL)
		return err
	}

	dst := opts.out
	if dst == "" {
		dst = filepath.Join(filepath.Dir(videoPath), out.Filename)
	}
	if err := os.WriteFile(dst, out.GIF, 0644); err != nil { // #nosec G306 - output is meant to be shared
		return fmt.Errorf("write gif: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "%s (%s, %d attempt(s))\n", dst, humanize.IBytes(uint64(out.Size)), len(out.Attempts))
	return err
}
