// Package commands implements the resthttp command line.
package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// options holds the flags shared by every request command
type options struct {
	configPath string
	headers    []string
	params     []string
	token      string
	data       string
	retries    int
	retryDelay time.Duration
	noRetry    bool
	timeout    time.Duration
	verbose    bool
}

// NewRootCommand creates the root command with one subcommand per HTTP verb
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "resthttp",
		Short: "Send HTTP requests with automatic retries",
		Long: `resthttp sends a single HTTP request through the retrying REST client.

Failed attempts with no response, 5xx, 408 and 429 statuses are retried
with exponential backoff. Defaults come from the optional config file and
RESTHTTP_* environment variables; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "Request header as key=value (repeatable)")
	flags.StringArrayVarP(&opts.params, "param", "p", nil, "Query parameter as key=value (repeatable)")
	flags.StringVar(&opts.token, "token", "", "Bearer token for the Authorization header")
	flags.StringVarP(&opts.data, "data", "d", "", "Request body, or @file to read it from a file")
	flags.IntVar(&opts.retries, "retries", 0, "Maximum number of retries")
	flags.DurationVar(&opts.retryDelay, "retry-delay", 0, "Base delay before the first retry")
	flags.BoolVar(&opts.noRetry, "no-retry", false, "Disable retries")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Timeout of a single attempt")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every attempt to stderr")

	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		cmd.AddCommand(newRequestCommand(method, opts))
	}

	return cmd
}

func newRequestCommand(method string, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   strings.ToLower(method) + " URL",
		Short: "Send a " + method + " request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, opts, method, args[0])
		},
	}
}
