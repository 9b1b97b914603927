package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terra-clan/scheme-connect/internal/catalog"
	"github.com/terra-clan/scheme-connect/internal/dialogue"
	"github.com/terra-clan/scheme-connect/internal/models"
)

var (
	askCategory string
	askAge      int
	askIncome   string
)

// askCmd runs one dialogue turn against the seed catalog
var askCmd = &cobra.Command{
	Use:   `ask "<text>"`,
	Short: "Ask the advisor a one-shot question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askCategory, "category", "", "Profile category, e.g. Student")
	askCmd.Flags().IntVar(&askAge, "age", 0, "Profile age")
	askCmd.Flags().StringVar(&askIncome, "income", "", "Profile income range, e.g. 3-8L")
}

func runAsk(cmd *cobra.Command, args []string) error {
	seed, err := catalog.DefaultSeed()
	if err != nil {
		return err
	}

	profile := models.UserProfile{
		Age:       askAge,
		Category:  askCategory,
		Income:    askIncome,
		Interests: []string{},
	}

	reply := dialogue.Respond(strings.Join(args, " "), profile, seed)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, reply.Content)
	if len(reply.Suggestions) > 0 {
		fmt.Fprintln(out)
		for _, s := range reply.Suggestions {
			fmt.Fprintf(out, "  > %s\n", s)
		}
	}
	return nil
}
