/*
Package cli provides command-line helpers for the iqanalyzer command.

Output Formatting:

Analysis results print as a styled report or as JSON:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Colors are applied only when the destination is a terminal.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

ExitCode maps command errors to 0 (ok), 1 (failure), 2 (invalid input)
and 3 (analysis failed).
*/
package cli
