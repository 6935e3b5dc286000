/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ssargent/cstruct/pkg/schema"
)

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe [layout]",
	Short: "List layouts or the fields of one layout",
	Long: `Without an argument, list the layouts in the schema. With a layout
name, print its fields with their constraints in the order they run.

Examples:
  cstruct describe
  cstruct describe Packet`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		reg, err := s.layouts()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			for _, name := range reg.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}

		def, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}
		renderLayout(cmd.OutOrStdout(), schema.Describe(def))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderLayout writes a table of fields. Nested fields are indented under
// their parent.
func renderLayout(w io.Writer, info schema.LayoutInfo) {
	var rows [][]string
	for _, f := range info.Fields {
		rows = appendFieldRows(rows, f, 0)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("Field", "Type", "Nullable", "Constraints").
		Rows(rows...)

	fmt.Fprintln(w, info.Name)
	fmt.Fprintln(w, t.Render())
}

func appendFieldRows(rows [][]string, f schema.FieldInfo, depth int) [][]string {
	name := strings.Repeat("  ", depth) + f.Name
	nullable := ""
	if f.Nullable {
		nullable = "yes"
	}
	rows = append(rows, []string{name, f.Type, nullable, strings.Join(f.Constraints, ", ")})
	if f.Element != nil {
		elem := *f.Element
		elem.Name = "[]"
		rows = appendFieldRows(rows, elem, depth+1)
	}
	for _, sub := range f.Fields {
		rows = appendFieldRows(rows, sub, depth+1)
	}
	return rows
}
