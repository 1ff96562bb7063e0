package tombflow_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artificial-james/tombflow"
)

// Domain glue for the reversed-words pipeline. These are ordinary
// functions handed to blocks; the concurrency core never inspects them.

func tokenize(text string) ([]string, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return words, nil
}

func filterWords(words []string, minLen int) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < minLen {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// reversedPairs emits every word whose character reversal is also in the
// list and differs from the word itself.
func reversedPairs(words []string) ([]string, error) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	var out []string
	for _, w := range words {
		r := reverse(w)
		if r == w {
			continue // palindromes do not match themselves
		}
		if _, ok := set[r]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func TestFilterWords(t *testing.T) {
	got := filterWords([]string{"a", "bee", "tree", "tree", "owl"}, 4)
	assert.Equal(t, []string{"tree"}, got)
}

func TestReversedPairs(t *testing.T) {
	t.Run("Pairs", func(t *testing.T) {
		got, err := reversedPairs([]string{"tab", "bat", "foo", "oof", "cat"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"tab", "bat", "foo", "oof"}, got)
	})
	t.Run("PalindromeExcluded", func(t *testing.T) {
		got, err := reversedPairs([]string{"deed", "tab", "bat"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"tab", "bat"}, got)
	})
}

// runWordPipeline wires the full reversed-words chain and returns the
// sink's output for one input text.
func runWordPipeline(t *testing.T, text string) []string {
	t.Helper()

	tokenizer := tombflow.NewTransform(tokenize,
		tombflow.WithName("tokenize"))
	filter := tombflow.NewTransform(func(words []string) ([]string, error) {
		return filterWords(words, 3), nil
	}, tombflow.WithName("filter"))
	pairs := tombflow.NewTransformMany(reversedPairs,
		tombflow.WithName("reversed-pairs"), tombflow.WithParallelism(4))
	sink, collected := newCollector[string]()

	tokenizer.LinkTo(filter, nil, true)
	filter.LinkTo(pairs, nil, true)
	pairs.LinkTo(sink, nil, true)

	pipeline := tombflow.NewPipeline().Add(tokenizer, filter, pairs, sink)

	err := tombflow.Feed(context.Background(), tokenizer,
		tombflow.SliceChan(context.Background(), []string{text}))
	require.NoError(t, err)
	require.NoError(t, pipeline.Wait())
	return collected()
}

func TestWordPipeline(t *testing.T) {
	t.Run("EndToEnd", func(t *testing.T) {
		got := runWordPipeline(t, "tab bat foo oof cat")
		assert.ElementsMatch(t, []string{"tab", "bat", "foo", "oof"}, got)
	})
	t.Run("Idempotent", func(t *testing.T) {
		text := "star rats, drawer reward! deed level tab bat"
		first := runWordPipeline(t, text)
		second := runWordPipeline(t, text)
		sort.Strings(first)
		sort.Strings(second)
		assert.Equal(t, first, second)
	})
}

func TestPipelineWait(t *testing.T) {
	t.Run("CombinesFaults", func(t *testing.T) {
		boom := errors.New("boom")
		healthy := tombflow.NewTransform(func(in int) (int, error) {
			return in, nil
		})
		broken := tombflow.NewTransform(func(in int) (int, error) {
			return 0, boom
		})

		healthy.Complete()
		require.True(t, broken.Post(1))

		pipeline := tombflow.NewPipeline().Add(healthy, broken)
		err := pipeline.Wait()
		assert.ErrorIs(t, err, boom)
	})
	t.Run("AllClean", func(t *testing.T) {
		a := tombflow.NewTransform(func(in int) (int, error) { return in, nil })
		b := tombflow.NewTransform(func(in int) (int, error) { return in, nil })
		a.Complete()
		b.Complete()

		assert.NoError(t, tombflow.NewPipeline().Add(a, b).Wait())
	})
	t.Run("ContextExpires", func(t *testing.T) {
		stuck := tombflow.NewTransform(func(in int) (int, error) {
			return in, nil
		}) // never completed

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := tombflow.NewPipeline().Add(stuck).WaitContext(ctx)
		assert.ErrorIs(t, err, context.Canceled)

		stuck.Complete()
		assert.NoError(t, stuck.Wait())
	})
}

func TestFeed(t *testing.T) {
	t.Run("CompletesBlock", func(t *testing.T) {
		block := tombflow.NewTransform(func(in int) (int, error) {
			return in, nil
		})
		sink, collected := newCollector[int]()
		block.LinkTo(sink, nil, true)

		err := tombflow.Feed(context.Background(), block,
			tombflow.SliceChan(context.Background(), []int{1, 2, 3}))
		require.NoError(t, err)

		require.NoError(t, sink.Wait())
		assert.ElementsMatch(t, []int{1, 2, 3}, collected())
	})
	t.Run("RejectedPost", func(t *testing.T) {
		block := tombflow.NewTransform(func(in int) (int, error) {
			return in, nil
		})
		block.Complete()
		require.NoError(t, block.Wait())

		err := tombflow.Feed(context.Background(), block,
			tombflow.SliceChan(context.Background(), []int{1}))
		assert.ErrorIs(t, err, tombflow.ErrPostRejected)
	})
}
