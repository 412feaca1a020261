package chunker

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"kgraph-core/internal/aiprovider"
)

const (
	// minTranslatableLines is the minimum line count a code-like node must
	// have before it's worth sending to the extraction LLM.
	minTranslatableLines = 3
	defaultMaxWorkers     = 3
)

// codeTranslationPrompt constrains the translation output to
// a short description plus 3-5 conceptual labels, no code syntax.
const codeTranslationPrompt = `Describe what the following code block represents in 1-2 sentences, then list 3-5 comma-separated conceptual labels for it. Do not include any code syntax, keywords, or punctuation from the code itself in your answer.

Code block:
%s`

// TranslateCodeBlocks dispatches each code-like node above
// minTranslatableLines to a bounded-parallel worker pool (size maxWorkers,
// default 3) calling extractor, and waits for every translation to
// complete before returning.
// Nodes at or below the line threshold are replaced with a placeholder
// instead of being sent to the LLM.
func TranslateCodeBlocks(ctx context.Context, nodes []string, extractor aiprovider.Extractor, maxWorkers int) ([]string, error) {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	translated := make([]string, len(nodes))
	sem := semaphore.NewWeighted(int64(maxWorkers))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, node := range nodes {
		i, node := i, node
		lineCount := strings.Count(node, "\n") + 1
		if lineCount <= minTranslatableLines {
			translated[i] = "[code block omitted: too short to translate]"
			continue
		}
		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			result, err := extractor.Extract(groupCtx, fmt.Sprintf(codeTranslationPrompt, node))
			if err != nil {
				return fmt.Errorf("translate code block %d: %w", i, err)
			}
			translated[i] = StripCode(result.RawJSON)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return translated, nil
}

// isCodeLike reports whether a DocNode kind is one of the BLOCK_CODE-family
// kinds that go through translation.
func isCodeLike(kind NodeKind) bool {
	switch kind {
	case NodeCode, NodeMermaid, NodeJSON, NodeYAML:
		return true
	default:
		return false
	}
}

// TranslateSections runs code-block translation over an already-grouped
// section list: every BLOCK_CODE-family node across every section is
// collected, sent through TranslateCodeBlocks as one bounded-parallel batch
// (the one fan-out point in an otherwise strictly serial pipeline), and
// the resulting prose is written back into each node's Text in
// place before Chunk ever sees it. A nil extractor leaves sections
// untouched, so word-budget-only deployments without a configured extractor
// don't fail ingestion outright.
func TranslateSections(ctx context.Context, sections []Section, extractor aiprovider.Extractor, maxWorkers int) ([]Section, error) {
	if extractor == nil {
		return sections, nil
	}

	var raw []string
	var locations [][2]int // section index, node index
	for si, sec := range sections {
		for ni, n := range sec.Nodes {
			if isCodeLike(n.Kind) {
				raw = append(raw, n.Text)
				locations = append(locations, [2]int{si, ni})
			}
		}
	}
	if len(raw) == 0 {
		return sections, nil
	}

	translated, err := TranslateCodeBlocks(ctx, raw, extractor, maxWorkers)
	if err != nil {
		return nil, fmt.Errorf("translate code blocks: %w", err)
	}

	out := make([]Section, len(sections))
	copy(out, sections)
	for i, loc := range locations {
		si, ni := loc[0], loc[1]
		nodes := append([]DocNode(nil), out[si].Nodes...)
		nodes[ni].Text = translated[i]
		out[si].Nodes = nodes
	}
	return out, nil
}
