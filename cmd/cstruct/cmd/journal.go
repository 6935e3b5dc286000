/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/cstruct/pkg/schema"
	"github.com/ssargent/cstruct/pkg/store"
)

// journalCmd groups the journal subcommands
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Append to or dump the record journal",
}

var journalAppendCmd = &cobra.Command{
	Use:   "append <layout> <values.yaml>",
	Short: "Encode values and append them to the journal",
	Long: `Encode a YAML mapping as a record of the layout and append it to the
journal under the data directory. The entry id is printed.

Example:
  cstruct journal append Packet packet.yaml`,
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

		j, err := s.openJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		entry, err := j.Append(args[0], data)
		if err != nil {
			return fmt.Errorf("failed to append: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), entry.ID.String())
		return nil
	},
}

var journalDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print journal entries",
	Long: `Print every journal entry in append order. Payloads of layouts known
to the schema are decoded as YAML, others are hex dumped.

Examples:
  cstruct journal dump
  cstruct journal dump --type Packet`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		typ, _ := cmd.Flags().GetString("type")

		reg, err := s.layouts()
		if err != nil {
			return err
		}
		j, err := s.openJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.Entries(typ)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		for _, e := range entries {
			if err := dumpEntry(cmd.OutOrStdout(), reg, e); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalAppendCmd, journalDumpCmd)
	journalDumpCmd.Flags().String("type", "", "Only entries of this layout")
}

func dumpEntry(w io.Writer, reg *schema.Registry, e *store.Entry) error {
	fmt.Fprintf(w, "--- # %s %s %s\n", e.ID, e.Type, e.Timestamp.UTC().Format(time.RFC3339Nano))

	def, err := reg.Lookup(e.Type)
	if err != nil {
		fmt.Fprint(w, hex.Dump(e.Payload))
		return nil
	}
	rec, _, err := def.Decode(e.Payload, 0)
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.ID, err)
	}
	out, err := schema.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
