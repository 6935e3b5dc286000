/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/ssargent/cstruct/pkg/schema"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <layout> <file>",
	Short: "Decode a binary file as a layout",
	Long: `Decode the bytes of a file as a record of the layout and print the
record as YAML. Use - to read standard input.

Examples:
  cstruct decode Packet packet.bin
  cstruct decode Packet --hex dump.txt --offset 16`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		asHex, _ := cmd.Flags().GetBool("hex")
		offset, _ := cmd.Flags().GetInt("offset")

		reg, err := s.layouts()
		if err != nil {
			return err
		}
		def, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}
		data, err := readInput(cmd, args[1], asHex)
		if err != nil {
			return err
		}

		rec, next, err := def.Decode(data, offset)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", args[0], err)
		}
		s.logger.Debug("decoded", "layout", args[0], "consumed", next-offset, "remaining", len(data)-next)

		out, err := schema.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().Bool("hex", false, "Input is hex text; whitespace is ignored")
	decodeCmd.Flags().Int("offset", 0, "Offset of the record in the input")
}

func readInput(cmd *cobra.Command, path string, asHex bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !asHex {
		return data, nil
	}
	return parseHex(string(data))
}

// parseHex decodes hex digits, ignoring whitespace.
func parseHex(text string) ([]byte, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}
