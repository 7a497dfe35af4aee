package main

import (
	"context"
	"fmt"
	"sort"
	"time"
)

func (cli *commandLine) allowListCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	switch args[0] {
	case "add":
		if len(args) != 2 {
			cli.printUsage()
			return errHelp
		}
		entry, err := cli.allowList.Add(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s allow-listed\n", entry.Email)
	case "remove":
		if len(args) != 2 {
			cli.printUsage()
			return errHelp
		}
		if err := cli.allowList.Remove(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s removed\n", args[1])
	case "list":
		entries, err := cli.allowList.List(ctx)
		if err != nil {
			return err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Email < entries[j].Email })
		for _, e := range entries {
			fmt.Fprintf(cli.out, "%s\t%s\n", e.Email, e.AddedAt.Format(time.RFC3339))
		}
	default:
		cli.printUsage()
		return errHelp
	}
	return nil
}
