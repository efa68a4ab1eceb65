package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

const defaultChunkSize = 1000

var ingestCommand = &cli.Command{
	Name:      "ingest",
	Usage:     "Embed text files into a vector store collection",
	ArgsUsage: "<file>...",
	Action:    ingestAction,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "collection",
			Aliases:  []string{"c"},
			Usage:    "Collection to store the chunks in, created when missing",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum number of characters per chunk",
			Value: defaultChunkSize,
		},
		&cli.BoolFlag{
			Name:  "recreate",
			Usage: "Delete the collection before ingesting",
		},
	},
}

func ingestAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}
	size := c.Int("chunk-size")
	if size <= 0 {
		return errors.New("chunk-size must be greater than 0")
	}
	a := appFrom(c)
	ctx := c.Context
	collection := c.String("collection")

	var docs []vectordb.Document
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		docs = append(docs, documents(path, string(data), size)...)
	}
	if len(docs) == 0 {
		return errors.New("the files contain no text")
	}

	embedder, err := a.embedder()
	if err != nil {
		return err
	}
	store, err := a.vectorStore()
	if err != nil {
		return err
	}
	if a.cfg.VectorStore == backendMemory {
		a.log.Warn("the memory vector store is discarded when kernelctl exits", nil, nil)
	}

	// The vector size of the collection is the size the embedder produces.
	sample, err := embedder.GenerateEmbeddings(ctx, []string{docs[0].Text})
	if err != nil {
		return fmt.Errorf("sample embedding: %w", err)
	}
	if len(sample) != 1 || len(sample[0]) == 0 {
		return errors.New("sample embedding returned no vector")
	}

	if c.Bool("recreate") {
		exists, err := store.CollectionExists(ctx, collection)
		if err != nil {
			return err
		}
		if exists {
			if err := store.DeleteCollection(ctx, collection); err != nil {
				return err
			}
		}
	}
	if err := store.EnsureCollection(ctx, collection, uint64(len(sample[0]))); err != nil {
		return err
	}

	ingestor, err := vectordb.NewIngestor(embedder, store, a.cfg.Ingest,
		vectordb.WithIngestLogger(a.log),
		vectordb.WithIngestObserver(a.metrics),
	)
	if err != nil {
		return err
	}
	defer ingestor.Close()

	errs, err := ingestor.Ingest(ctx, collection, docs)
	if err != nil {
		return err
	}
	failed := 0
	for i, e := range errs {
		if e != nil {
			failed++
			a.log.Error("failed to ingest chunk", e, map[string]interface{}{"id": docs[i].ID})
		}
	}
	fmt.Fprintf(c.App.Writer, "ingested %d of %d chunks into %s\n", len(docs)-failed, len(docs), collection)
	if failed > 0 {
		return fmt.Errorf("%d chunks failed", failed)
	}
	return nil
}

// documents splits text into chunks and turns them into documents. Ids are
// the file name and the chunk number, so ingesting a file again replaces
// its chunks.
func documents(path, text string, size int) []vectordb.Document {
	chunks := chunk(text, size)
	name := filepath.Base(path)
	docs := make([]vectordb.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = vectordb.Document{
			ID:   fmt.Sprintf("%s#%d", name, i),
			Text: ch,
			Payload: vectordb.BuildPayload(map[string]any{
				"source": path,
				"chunk":  i,
			}, nil),
		}
	}
	return docs
}

// chunk splits text at blank lines and packs the paragraphs into chunks of
// at most size characters. Paragraphs longer than size are cut at the last
// space before the limit, or hard at the limit when there is none.
func chunk(text string, size int) []string {
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for utf8.RuneCountInString(para) > size {
			flush()
			head, tail := cut(para, size)
			chunks = append(chunks, head)
			para = tail
		}
		if para == "" {
			continue
		}
		if n := utf8.RuneCountInString(current.String()); n > 0 && n+2+utf8.RuneCountInString(para) > size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}

// cut returns the first size runes of s, ending at a space when possible,
// and the trimmed rest.
func cut(s string, size int) (string, string) {
	runes := []rune(s)
	end := size
	for i := size; i > 0; i-- {
		if runes[i] == ' ' {
			end = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:end])), strings.TrimSpace(string(runes[end:]))
}
