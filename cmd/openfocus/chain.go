package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/baiirun/openfocus/internal/archive"
)

// ArchiveJSON is the JSON shape of one link of the chain.
type ArchiveJSON struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Parent string `json:"parent"`
	ID     string `json:"id"`
	Root   bool   `json:"root"`
	Head   bool   `json:"head"`
}

func chainMarker(a archive.Archive, head string) string {
	switch {
	case a.IsRoot():
		return color.New(color.FgGreen).Sprint("ROOT")
	case a.ID == head:
		return color.New(color.FgHiMagenta).Sprint("HEAD")
	default:
		return color.New(color.FgBlue).Sprint("  ↑ ")
	}
}

// writeChain prints the archives from root to head.
func writeChain(w io.Writer, chain []archive.Archive, head string, asJSON bool) error {
	if asJSON {
		out := make([]ArchiveJSON, 0, len(chain))
		for _, a := range chain {
			out = append(out, ArchiveJSON{
				Name:   a.Name(),
				Date:   a.Date,
				Parent: a.ParentID,
				ID:     a.ID,
				Root:   a.IsRoot(),
				Head:   a.ID == head,
			})
		}
		return writeJSON(w, out)
	}

	for _, a := range chain {
		when := "-"
		if !a.IsRoot() {
			when = a.Time().Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s %s  %s\n", chainMarker(a, head), a.Name(), color.New(color.FgHiBlack).Sprint(when))
	}
	return nil
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show the archive chain from root to head",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, release, err := openDB()
		if err != nil {
			return err
		}
		defer release()

		return writeChain(cmd.OutOrStdout(), database.Archives(), database.Head(), flagJSON)
	},
}
