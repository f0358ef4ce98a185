package server

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sahilm/fuzzy"

	"github.com/smuassist/learnmate/knowledge"
)

// Document is one knowledge-base entry loaded from disk.
type Document struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

const (
	// snippetLength bounds the content returned per match.
	snippetLength = 500
	// topK is the number of matches returned per query.
	topK = 3
)

// Store holds the loaded documents and scores queries against them.
type Store struct {
	docs      []indexedDocument
	threshold float64
}

type indexedDocument struct {
	doc    Document
	tokens []string
}

// LoadStore reads every *.json document in dir. Files that fail to parse are
// skipped with a log entry; a missing directory yields an empty store, not an
// error, matching the service's degraded-but-running posture.
func LoadStore(dir string, threshold float64) (*Store, error) {
	if threshold <= 0 {
		threshold = 60
	}
	store := &Store{threshold: threshold}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("knowledge-base: data directory not found", "dir", dir)
			return store, nil
		}
		return nil, errors.Wrapf(err, "read data directory %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Error("knowledge-base: failed to read document", "path", path, "error", err)
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			slog.Error("knowledge-base: failed to parse document", "path", path, "error", err)
			continue
		}
		store.add(doc)
		slog.Info("knowledge-base: loaded document", "file", entry.Name(), "title", doc.Title)
	}

	slog.Info("knowledge-base: store ready", "documents", len(store.docs))
	return store, nil
}

func (s *Store) add(doc Document) {
	s.docs = append(s.docs, indexedDocument{doc: doc, tokens: tokenize(doc.Title + " " + doc.Text)})
}

// Count returns the number of loaded documents.
func (s *Store) Count() int {
	return len(s.docs)
}

// Search scores every document against the query and returns the top matches
// above the relevance threshold, best first.
func (s *Store) Search(query string) knowledge.SearchResult {
	queryTokens := tokenize(query)

	var matches []knowledge.Document
	for _, indexed := range s.docs {
		score := scoreTokens(queryTokens, indexed.tokens)
		if score <= s.threshold {
			continue
		}
		matches = append(matches, knowledge.Document{
			Title:   indexed.doc.Title,
			Content: snippet(indexed.doc.Text),
			Score:   score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	result := knowledge.SearchResult{
		Results:      matches,
		HasKnowledge: len(matches) > 0,
	}
	if len(matches) > 0 {
		result.HighestScore = matches[0].Score
	}
	return result
}

// scoreTokens computes a 0-100 token-set relevance score: the share of query
// tokens found in the document, where a query token counts as found on an
// exact hit or a fuzzy match against the document's token set.
func scoreTokens(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 || len(docTokens) == 0 {
		return 0
	}

	docSet := make(map[string]struct{}, len(docTokens))
	for _, t := range docTokens {
		docSet[t] = struct{}{}
	}

	matched := 0
	for _, qt := range queryTokens {
		if _, ok := docSet[qt]; ok {
			matched++
			continue
		}
		if len(fuzzy.Find(qt, docTokens)) > 0 {
			matched++
		}
	}
	return 100 * float64(matched) / float64(len(queryTokens))
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func snippet(text string) string {
	if len(text) <= snippetLength {
		return text
	}
	return text[:snippetLength] + "..."
}
