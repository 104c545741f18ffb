package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var askPostID string

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask a question about the indexed posts",
	Long:  `Runs the same pipeline as POST /ask and prints the structured answer as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askPostID, "post", "p", "", "id of the post the user is viewing")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(rt *runtime) error {
		ans, askErr := rt.ask.Ask(cmd.Context(), args[0], askPostID)
		if ans != nil {
			data, err := json.MarshalIndent(ans, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal answer: %w", err)
			}
			cmd.Println(string(data))
		}
		return askErr
	})
}
