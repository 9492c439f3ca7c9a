package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/ratelimit"
)

var noInline bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Extract one post and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&noInline, "no-inline", false, "keep remote image URLs instead of data URIs")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()

	if err != nil {
		return err
	}

	s, err := build(cmd.Context(), cfg, false)

	if err != nil {
		return err
	}

	extract := s.extractor.Extract

	if noInline {
		extract = s.extractor.Resolve
	}

	res, err := extract(cmd.Context(), ratelimit.UnknownClient, args[0])

	if err != nil {
		return errors.New(entity.AsError(err).Message)
	}

	out, err := json.MarshalIndent(res.Post, "", "  ")

	if err != nil {
		return fmt.Errorf("could not encode post: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return err
}
