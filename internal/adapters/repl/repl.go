// Package repl is the interactive stock console. Each line is one CLI command; a leading
// slash is optional.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"stock-engine/internal/adapters/cli"
	"stock-engine/internal/app"
)

// Run reads commands from in until EOF or /exit, executing each through cli.Run.
// Command errors are printed and the loop continues.
func Run(ctx context.Context, svc app.ApplicationService, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "Stock Engine")
	fmt.Fprintln(out, "Type /help for commands, /exit to leave.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, "\n> ")
		input, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read input: %w", readErr)
		}

		tokens, err := splitArgs(strings.TrimPrefix(strings.TrimSpace(input), "/"))
		switch {
		case err != nil:
			fmt.Fprintf(out, "Error: %v\n", err)
		case len(tokens) == 0:
		case isExit(tokens[0]):
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case tokens[0] == "help" || tokens[0] == "h":
			printHelp(out)
		default:
			if err := cli.Run(ctx, svc, tokens, out); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}
	}
}

func isExit(cmd string) bool {
	switch strings.ToLower(cmd) {
	case "exit", "quit", "e", "q":
		return true
	}
	return false
}

// splitArgs splits a command line on whitespace. Double or single quotes group words,
// so warehouse names with spaces can be passed.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintf(out, "  %-66s\n", "COMMANDS")
	fmt.Fprintln(out, strings.Repeat("=", 70))
	for _, line := range [][2]string{
		{"/import <file.csv>", "Import a stock snapshot"},
		{"/export [filters]", "Print the stock report as CSV"},
		{"/stats [filters]", "Print report totals"},
		{"/threshold <sku> <warehouse> <n>", "Set a reorder threshold"},
		{"/provision <sku> <qty>", "Give a product its own pool"},
		{"/merge <sku> <sku>...", "Merge products into one shared pool"},
		{"/split <sku>", "Detach a product from its shared pool"},
		{"/pool-qty <sku> <qty>", "Set a pool's physical quantity"},
		{"/pool <sku>", "Show a product's pool"},
		{"/map <external-code> <sku>", "Register an external code"},
		{"/exit", "Leave"},
	} {
		fmt.Fprintf(out, "  %-34s %s\n", line[0], line[1])
	}
	fmt.Fprintln(out, strings.Repeat("-", 70))
	fmt.Fprintln(out, "  Filters: -warehouse -department -sku -responsible -shop")
	fmt.Fprintln(out, "           -sort -order -low-stock -sluggish")
	fmt.Fprintln(out, strings.Repeat("=", 70))
}
