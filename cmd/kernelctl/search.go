package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

const previewLength = 240

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "Query a vector store collection",
	ArgsUsage: "<query>",
	Action:    searchAction,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "collection",
			Aliases:  []string{"c"},
			Usage:    "Collection to search",
			Required: true,
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"k"},
			Usage:   "Number of results",
			Value:   5,
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Only return chunks of this ingested file",
		},
	},
}

func searchAction(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a query is required")
	}
	a := appFrom(c)

	search, err := a.textSearch()
	if err != nil {
		return err
	}
	var filters *vectordb.FilterSet
	if src := c.String("source"); src != "" {
		filters = &vectordb.FilterSet{
			Must: &vectordb.ConditionSet{
				Conditions: []vectordb.FilterCondition{
					&vectordb.MatchCondition{Field: "source", Value: src},
				},
			},
		}
	}

	hits, err := search.Search(c.Context, c.String("collection"), query, c.Int("top"), filters)
	if err != nil {
		return err
	}
	printResults(c.App.Writer, hits, a.cfg.Ingest.TextField)
	return nil
}

func printResults(w io.Writer, hits []vectordb.SearchResult, textField string) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	for i, h := range hits {
		fmt.Fprintf(w, "%d. %s (score %.4f)\n", i+1, h.ID, h.Score)
		if text, ok := h.Payload[textField].(string); ok {
			fmt.Fprintf(w, "   %s\n", preview(text, previewLength))
		}
	}
}

// preview shortens text to n runes on a single line.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
