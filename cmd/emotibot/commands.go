package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/emotibot/emotibot/internal"
	"github.com/emotibot/emotibot/pkg/models"
)

var errNotPlainText = errors.New("not a plain-text file")

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// ingestFiles adds every file to the memory. A file that cannot be read or stored is
// reported and skipped; the returned error counts the failures.
func ingestFiles(ctx context.Context, appState *models.AppState, out io.Writer, paths []string) error {
	failed := 0
	for _, path := range paths {
		if err := ingestFile(ctx, appState, path); err != nil {
			log.Errorf("failed to ingest %s: %v", path, err)
			fmt.Fprintf(out, "FAILED %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "added %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(paths))
	}
	return nil
}

func ingestFile(ctx context.Context, appState *models.AppState, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return errNotPlainText
	}
	// line breaks become spaces so chunk boundaries can fall between words
	return appState.Memory.AddDocument(ctx, &models.DocumentInput{
		Text:       internal.CleanText(string(data)),
		SourcePath: path,
	})
}

type searchOptions struct {
	limit     int
	maxLength int
	mmr       bool
	mmrLambda float64
}

func search(
	ctx context.Context,
	appState *models.AppState,
	out io.Writer,
	query string,
	opts searchOptions,
) error {
	if query == "" {
		return models.NewValidationError("query", "query is empty")
	}

	var results []models.QueryResult
	if opts.mmr {
		results = appState.Memory.SearchMMR(ctx, query, opts.limit, nil, opts.mmrLambda)
	} else {
		results = appState.Memory.SearchSimilar(ctx, query, opts.limit, nil)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "no matching memories")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%s %.4f] %s\n", i+1, r.Kind, r.Distance, r.Source())
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, appState.Memory.GetRelevantContext(ctx, query, opts.maxLength))
	return nil
}

// chat runs a REPL over in, one turn per line, until EOF or "exit".
func chat(ctx context.Context, appState *models.AppState, in io.Reader, out io.Writer) error {
	session := appState.Sessions.GetOrCreate("")
	name := appState.Config.Memory.AssistantName
	if name == "" {
		name = "EmotiBot"
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		message := internal.CleanText(scanner.Text())
		if message == "exit" || message == "quit" {
			break
		}
		if message != "" {
			reply := appState.Assistant.Respond(ctx, session, message)
			if reply.Emotions != nil {
				fmt.Fprintf(out, "(%s, %.2f)\n", reply.Emotions.DominantEmotion, reply.Emotions.Confidence)
			}
			fmt.Fprintf(out, "%s: %s\n", name, reply.Text)
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func printStats(ctx context.Context, appState *models.AppState, out io.Writer) error {
	stats, err := appState.Memory.GetCollectionStats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "collection:      %s\n", stats.CollectionName)
	fmt.Fprintf(out, "total items:     %d\n", stats.TotalItems)
	fmt.Fprintf(out, "document chunks: %d\n", stats.DocumentChunks)
	fmt.Fprintf(out, "conversations:   %d\n", stats.Conversations)
	if stats.Approximate {
		fmt.Fprintf(out, "(breakdown sampled from %d records)\n", stats.SampleSize)
	}
	return nil
}

func clearCollection(ctx context.Context, appState *models.AppState, out io.Writer) error {
	if err := appState.Memory.ClearCollection(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "cleared %s\n", appState.Store.CollectionName())
	return nil
}
