package cmd

import (
	"time"

	"github.com/spf13/cobra"

	invoicing "invoice-desk/internal/invoicing/domain"
)

func newNumberCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "number",
		Short: "Invoice number allocation",
	}

	var year int
	next := &cobra.Command{
		Use:   "next",
		Short: "Allocate the next invoice number",
		Long:  "Allocates and consumes the next number for the year. The number is never handed out again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			number, err := st.desk.Numbers.Allocate(cmd.Context(), yearOrCurrent(year))
			if err != nil {
				return err
			}
			st.printf("%s\n", number)
			return nil
		},
	}
	next.Flags().IntVar(&year, "year", 0, "allocation year (default current year)")

	var peekYear int
	peek := &cobra.Command{
		Use:   "peek",
		Short: "Show the last issued sequence and the number that would follow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			y := yearOrCurrent(peekYear)
			last, err := st.desk.Numbers.Peek(cmd.Context(), y)
			if err != nil {
				return err
			}
			following, err := st.desk.Numbers.Next(cmd.Context(), y)
			if err != nil {
				return err
			}
			st.printf("Jahr %d: zuletzt %d, nächste %s\n", y, last, following)
			return nil
		},
	}
	peek.Flags().IntVar(&peekYear, "year", 0, "year (default current year)")

	check := &cobra.Command{
		Use:   "check <number>",
		Short: "Report whether a number is attached to a stored invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := invoicing.ParseNumber(args[0]); err != nil {
				return err
			}
			exists, err := st.desk.Numbers.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if exists {
				st.printf("%s ist vergeben\n", args[0])
			} else {
				st.printf("%s ist frei\n", args[0])
			}
			return nil
		},
	}

	cmd.AddCommand(next, peek, check)
	return cmd
}

func yearOrCurrent(year int) int {
	if year > 0 {
		return year
	}
	return time.Now().Year()
}
