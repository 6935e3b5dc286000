/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/cstruct/pkg/schema"
)

// storeCmd groups the keyed record store subcommands
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Keep encoded records in the keyed store",
}

var storePutCmd = &cobra.Command{
	Use:   "put <layout> <values.yaml>",
	Short: "Encode values and store them under a new id",
	Long: `Encode a YAML mapping as a record of the layout and store it in the
record store under the data directory. The record id is printed.

Example:
  cstruct store put Packet packet.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		data, err := encodeFile(s, args[0], args[1], cmd.InOrStdin(), 0)
		if err != nil {
			return err
		}

		db, err := s.openRecords()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.Put(args[0], data)
		if err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
		return nil
	},
}

var storeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored record",
	Long: `Decode a stored record with the layout it was stored under and print
it as YAML.

Example:
  cstruct store get 2fJ1Qn0sGLqjJ9E3kXb6D4cOeWm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}

		reg, err := s.layouts()
		if err != nil {
			return err
		}
		db, err := s.openRecords()
		if err != nil {
			return err
		}
		defer db.Close()

		item, err := db.Get(id)
		if err != nil {
			return err
		}
		def, err := reg.Lookup(item.Type)
		if err != nil {
			return err
		}
		rec, _, err := def.Decode(item.Body, 0)
		if err != nil {
			return fmt.Errorf("failed to decode record %s: %w", id, err)
		}
		out, err := schema.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storePutCmd, storeGetCmd)
}
