/*
Package cli provides command-line utilities for the warden command.

It includes output formatters for command results, a progress reporter for
long dataset loads, signal-aware contexts for the long-running commands,
and the error types commands return through cobra's RunE.

Output formatting:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Signal handling:

	ctx, stop := cli.SignalContext()
	defer stop()
	// ctx is canceled on SIGINT or SIGTERM
*/
package cli
