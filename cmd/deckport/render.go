// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/deckport/deckport/internal/render"
	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <presentation>",
		Short: "Convert a presentation to PDF",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}

	cmd.Flags().StringP("output", "o", "", "destination PDF path (default: next to the source)")
	cmd.Flags().Bool("notes", false, "export the notes-pages layout")
	cmd.Flags().Bool("handout", false, "export the handout layout")
	cmd.Flags().String("range", "", "1-based slide ranges, e.g. \"1-3,5,7-\" (n means the last slide)")

	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	job := render.NewJob(args[0])
	job.OutputPath, _ = cmd.Flags().GetString("output")
	job.Notes, _ = cmd.Flags().GetBool("notes")
	job.Handout, _ = cmd.Flags().GetBool("handout")
	job.RangeSpec, _ = cmd.Flags().GetString("range")

	binding, err := a.selector.Select(cmd.Context(), render.Constraints{
		Operation: render.OpDocument,
	})
	if err != nil {
		return err
	}

	path, err := binding.RenderDocument(cmd.Context(), job)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func newImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images <presentation>",
		Short: "Convert a presentation to per-slide images",
		Args:  cobra.ExactArgs(1),
		RunE:  runImages,
	}

	cmd.Flags().StringP("out-dir", "d", "", "output directory (default: next to the source)")
	cmd.Flags().String("format", "", "image format: png, jpeg, or tiff (default jpeg)")
	cmd.Flags().Int("dpi", 0, "export resolution (default 96)")
	cmd.Flags().IntSlice("slides", nil, "explicit 1-based slides, output in the given order")
	cmd.Flags().String("range", "", "1-based slide ranges, e.g. \"1-3,5,7-\"")

	return cmd
}

func runImages(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	format, err := parseImageFormat(cmd)
	if err != nil {
		return err
	}

	job := render.NewJob(args[0])
	job.OutputDir, _ = cmd.Flags().GetString("out-dir")
	job.Format = format
	job.DPI, _ = cmd.Flags().GetInt("dpi")
	job.Slides, _ = cmd.Flags().GetIntSlice("slides")
	job.RangeSpec, _ = cmd.Flags().GetString("range")

	binding, err := a.selector.Select(cmd.Context(), render.Constraints{
		Operation: render.OpImages,
		Format:    job.ImageFormat(),
	})
	if err != nil {
		return err
	}

	paths, err := binding.RenderImages(cmd.Context(), job)
	if err != nil {
		return err
	}

	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func parseImageFormat(cmd *cobra.Command) (render.OutputKind, error) {
	raw, _ := cmd.Flags().GetString("format")
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "png":
		return render.OutputPNG, nil
	case "jpg", "jpeg":
		return render.OutputJPEG, nil
	case "tif", "tiff":
		return render.OutputTIFF, nil
	default:
		return "", deckerr.Errorf(deckerr.CodeCLIInputInvalid,
			"unsupported image format %q (expected png, jpeg, or tiff)", raw)
	}
}
