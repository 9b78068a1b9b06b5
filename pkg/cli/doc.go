/*
Package cli provides command-line interface utilities for Scruffy.

The cli package includes output formatters, exit code handling and signal
helpers used by the scruffy command.

Output Formatting:

Commands accept --format text|json. Results implementing Texter control
their text rendering; Table renders aligned columns:

	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Exit Codes:

A command that already printed its outcome returns NewExitError(code, nil)
to set the process exit code without printing the error again.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, cancel := cli.SetupSignalHandler(context.Background())
	defer cancel()
*/
package cli
