package genctl

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tabbas97/hf-codecomplete-server/pkg/types"
)

// BuildRootCmd constructs the genctl command tree.
func BuildRootCmd() *cobra.Command {
	server := envStr("GENCTL_SERVER", "http://127.0.0.1:8000")

	root := &cobra.Command{
		Use:           "genctl",
		Short:         "Client utilities for a running hfserve instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", server, "Base URL of the hfserve instance (defaults GENCTL_SERVER)")

	var (
		prompt       string
		model        string
		maxNewTokens int
		stream       bool
		fullText     bool
		noSample     bool
	)
	generateCmd := &cobra.Command{
		Use:     "generate",
		Short:   "Send one generation request and print the result",
		Example: "  genctl generate -p 'def fib(n):' -n 64 --stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}
			req := types.GenerateRequest{
				Inputs: prompt,
				Stream: stream,
				Parameters: types.GenerateParameters{
					MaxNewTokens:   maxNewTokens,
					ReturnFullText: fullText,
				},
			}
			if noSample {
				f := false
				req.Parameters.DoSample = &f
			}
			cli := NewClient(server)
			if stream {
				_, err := cli.Generate(cmd.Context(), model, req, func(chunk types.StreamChunk) error {
					for _, text := range chunk.Text {
						fmt.Fprintln(cmd.OutOrStdout(), text)
					}
					return nil
				})
				return err
			}
			resp, err := cli.Generate(cmd.Context(), model, req, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.GeneratedText)
			return nil
		},
	}
	generateCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Prompt text (required)")
	generateCmd.Flags().StringVar(&model, "model", "default", "Model name path segment")
	generateCmd.Flags().IntVarP(&maxNewTokens, "max-new-tokens", "n", 64, "Maximum new tokens to generate")
	generateCmd.Flags().BoolVar(&stream, "stream", false, "Stream chunks instead of waiting for the final result")
	generateCmd.Flags().BoolVar(&fullText, "full-text", false, "Echo the prompt ahead of the generated text")
	generateCmd.Flags().BoolVar(&noSample, "no-sample", false, "Send do_sample=false")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := NewClient(server).Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "state=%s engine=%s active_sessions=%d requests_total=%d aborts_total=%d uptime=%ds\n",
				st.State, st.Engine, st.ActiveSessions, st.RequestsTotal, st.AbortsTotal, st.UptimeSeconds)
			return nil
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Probe /healthz and /readyz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := NewClient(server)
			for _, path := range []string{"/healthz", "/readyz"} {
				out, err := cli.Health(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, out)
			}
			return nil
		},
	}

	root.AddCommand(generateCmd, statusCmd, healthCmd)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := BuildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
