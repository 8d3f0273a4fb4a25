package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/HerbHall/devicedesk/internal/version"
)

const usageText = `devicedesk - fleet tool execution engine

Usage:
  devicedesk [serve] [flags]          run the HTTP server (default)
  devicedesk mcp [flags]              serve the tools over MCP on stdio
  devicedesk call [flags] TOOL [ARGS] run one tool; ARGS is a JSON object
  devicedesk tools [flags]            print the tool catalog
  devicedesk seed [flags]             load fixtures into the database
  devicedesk backup [flags]           write a backup archive
  devicedesk restore [flags]          restore a backup archive
  devicedesk version                  print version information

Run "devicedesk <command> -h" for the flags of a command.
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 || strings.HasPrefix(args[0], "-") && args[0] != "-h" && args[0] != "--help" {
		runServe(args)
		return
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "serve":
		runServe(rest)
	case "mcp":
		runMCP(rest)
	case "call":
		runCall(rest)
	case "tools":
		runTools(rest)
	case "seed":
		runSeed(rest)
	case "backup":
		runBackup(rest)
	case "restore":
		runRestore(rest)
	case "version":
		fmt.Println(version.Info())
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}
}
