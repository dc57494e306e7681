package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/assetprep/internal/embed"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Write a file as a C byte array plus length constant",
	RunE:  runEmbed,
}

func init() {
	embedCmd.Flags().StringP("input", "i", "", "File to embed")
	embedCmd.Flags().String("name", "", "C variable name (default: prefix + file name)")
	embedCmd.Flags().String("prefix", "", "Prefix for the derived variable name")
	embedCmd.Flags().StringP("dir", "d", ".", "Output directory for <name>.c")
	embedCmd.Flags().Int("row-width", embed.DefaultRowWidth, "Byte literals per row")
	embedCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	name, _ := cmd.Flags().GetString("name")
	prefix, _ := cmd.Flags().GetString("prefix")
	dir, _ := cmd.Flags().GetString("dir")
	rowWidth, _ := cmd.Flags().GetInt("row-width")

	if name == "" {
		name = embed.NameFor(inputPath, prefix)
	}

	decl, err := embed.EmbedFile(inputPath, name, dir, embed.Options{RowWidth: rowWidth})
	if err != nil {
		return err
	}

	fmt.Printf("Generated %s (%d bytes)\n", embed.Path(dir, decl.Name), decl.Len)
	return nil
}
