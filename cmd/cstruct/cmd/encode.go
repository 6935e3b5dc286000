/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/cstruct/pkg/schema"
)

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode <layout> <values.yaml>",
	Short: "Encode YAML values as a layout",
	Long: `Build a record of the layout from a YAML mapping of field values and
encode it. Without --out the bytes are printed as a hex dump. Missing
fields take their defaults; length fields are filled in.

Examples:
  cstruct encode Packet packet.yaml
  cstruct encode Packet packet.yaml --out packet.bin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		offset, _ := cmd.Flags().GetInt("offset")
		out, _ := cmd.Flags().GetString("out")

		data, err := encodeFile(s, args[0], args[1], cmd.InOrStdin(), offset)
		if err != nil {
			return err
		}

		if out == "" {
			fmt.Fprint(cmd.OutOrStdout(), hex.Dump(data))
			return nil
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		s.logger.Info("encoded", "layout", args[0], "bytes", len(data), "out", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().Int("offset", 0, "Offset the record is encoded at")
	encodeCmd.Flags().StringP("out", "o", "", "Write raw bytes to this file")
}

// encodeFile encodes the YAML values in path as a record of the named
// layout.
func encodeFile(s *settings, name, path string, stdin io.Reader, offset int) ([]byte, error) {
	reg, err := s.layouts()
	if err != nil {
		return nil, err
	}
	def, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}

	var values []byte
	if path == "-" {
		values, err = io.ReadAll(stdin)
	} else {
		values, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	rec, err := schema.UnmarshalRecord(def, values)
	if err != nil {
		return nil, err
	}
	data, err := rec.Encode(offset)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return data, nil
}
