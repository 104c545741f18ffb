package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/postbridge-backend/internal/app"
	"github.com/yungbote/postbridge-backend/internal/services"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "postbridge",
	Short:         "Post question answering backend",
	Long:          `Indexes posts into a vector store and answers questions about them with a language model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runtime is the slice of the application the commands need.
type runtime struct {
	ingestion services.IngestionService
	ask       services.AskService
	serve     func(ctx context.Context, addr string) error
	close     func()
}

var newRuntime = func(ctx context.Context) (*runtime, error) {
	a, err := app.New(ctx)
	if err != nil {
		return nil, err
	}
	return &runtime{
		ingestion: a.Services.Ingestion,
		ask:       a.Services.Ask,
		serve: func(ctx context.Context, addr string) error {
			a.Start()
			return a.Run(ctx, addr)
		},
		close: a.Close,
	}, nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func withRuntime(cmd *cobra.Command, fn func(rt *runtime) error) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	if rt.close != nil {
		defer rt.close()
	}
	return fn(rt)
}
