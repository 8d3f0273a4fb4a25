package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/HerbHall/devicedesk/internal/tools"
)

// runTools prints the catalog. It needs no database.
func runTools(args []string) {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the catalog with input schemas as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	catalog, err := tools.Catalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		type entry struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			InputSchema any    `json:"inputSchema"`
		}
		out := make([]entry, 0, len(catalog))
		for _, t := range catalog {
			out = append(out, entry{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema()})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"tools": out})
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tWRITE\tREQUIRED")
	for _, t := range catalog {
		required := ""
		for _, p := range t.Params {
			if p.Required {
				if required != "" {
					required += ", "
				}
				required += p.Name
			}
		}
		fmt.Fprintf(tw, "%s\t%v\t%s\n", t.Name, t.Write, required)
	}
	_ = tw.Flush()
}
