// Command example runs the reversed-words pipeline: download a book,
// tokenize it, filter and dedupe the words, find the words whose reversal
// also appears in the text, and print them.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-logr/logr/funcr"

	"github.com/artificial-james/tombflow"
)

const defaultBook = "http://www.gutenberg.org/cache/epub/16452/pg16452.txt"

func fetch(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func tokenize(text string) ([]string, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return words, nil
}

func filterAndDedupe(words []string) ([]string, error) {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 4 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out, nil
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func reversedPairs(words []string) ([]string, error) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	var out []string
	for _, w := range words {
		r := reverse(w)
		if r == w {
			continue
		}
		if _, ok := set[r]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func main() {
	url := defaultBook
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	log := funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{})

	download := tombflow.NewTransform(fetch,
		tombflow.WithName("fetch"), tombflow.WithLogger(log))
	words := tombflow.NewTransform(tokenize,
		tombflow.WithName("tokenize"), tombflow.WithLogger(log))
	filtered := tombflow.NewTransform(filterAndDedupe,
		tombflow.WithName("filter"), tombflow.WithLogger(log))
	pairs := tombflow.NewTransformMany(reversedPairs,
		tombflow.WithName("reversed-pairs"), tombflow.WithLogger(log),
		tombflow.WithParallelism(4))

	var mu sync.Mutex
	var found []string
	report := tombflow.NewAction(func(word string) error {
		mu.Lock()
		found = append(found, word)
		mu.Unlock()
		return nil
	}, tombflow.WithName("report"), tombflow.WithLogger(log))

	download.LinkTo(words, nil, true)
	words.LinkTo(filtered, nil, true)
	filtered.LinkTo(pairs, nil, true)
	pairs.LinkTo(report, nil, true)

	if !download.Post(url) {
		fmt.Fprintln(os.Stderr, "post rejected")
		os.Exit(1)
	}
	download.Complete()

	pipeline := tombflow.NewPipeline(tombflow.WithLogr(log)).
		Add(download, words, filtered, pairs, report)
	if err := pipeline.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline failed: %v\n", err)
		os.Exit(1)
	}

	sort.Strings(found)
	fmt.Printf("Found %d reversed words:\n", len(found))
	for _, w := range found {
		fmt.Println(w)
	}
}
