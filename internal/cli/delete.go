package cli

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [post_id...]",
	Short: "Remove posts from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			for _, id := range args {
				if err := rt.ingestion.Delete(cmd.Context(), id); err != nil {
					return err
				}
				cmd.Printf("deleted %s\n", id)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
