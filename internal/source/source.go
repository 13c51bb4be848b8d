// Package source adapts raw, heterogeneous comment records into pipeline candidates.
package source

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/jonathan/comment-insights/internal/types"
)

// UnknownAuthor is the username assigned when a record names no author
const UnknownAuthor = "unknown"

// Key aliases in lookup order. YouTube Data API names are accepted alongside
// the dashboard's own collector keys.
var (
	idKeys         = []string{"id", "comment_id", "commentId"}
	textKeys       = []string{"text", "content", "textOriginal", "textDisplay"}
	authorKeys     = []string{"author", "username", "authorDisplayName"}
	likeKeys       = []string{"likes", "like_count", "likeCount"}
	createdKeys    = []string{"created_at", "publishedAt", "published_at"}
	verifiedKeys   = []string{"is_verified", "verified"}
	reputationKeys = []string{"reputation_score", "reputation"}
)

// htmlPattern detects markup or entities worth running through an HTML parser
var htmlPattern = regexp.MustCompile(`<(?:br|a|b|i|p|span|div|strong|em)[\s/>]|</[a-z]+>|&(?:[a-zA-Z]+|#[0-9]+|#x[0-9a-fA-F]+);`)

// CommentSource converts raw comment records into candidates.
// It never fails: malformed records become candidates with empty content,
// which the quality filter later rejects as too short.
type CommentSource struct{}

// NewCommentSource creates a CommentSource
func NewCommentSource() *CommentSource {
	return &CommentSource{}
}

// Adapt converts each raw record into a Candidate, preserving input order.
func (s *CommentSource) Adapt(raw []types.RawComment) []*types.Candidate {
	candidates := make([]*types.Candidate, 0, len(raw))
	for i, record := range raw {
		candidates = append(candidates, adaptOne(i, record))
	}
	return candidates
}

func adaptOne(index int, record types.RawComment) *types.Candidate {
	id := lookupString(record, idKeys)
	if id == "" {
		id = strconv.Itoa(index)
	}

	author := lookupString(record, authorKeys)
	if author == "" {
		author = UnknownAuthor
	}

	likes := 0
	if v, ok := lookupNumber(record, likeKeys); ok && v > 0 {
		likes = int(math.Min(v, math.MaxInt32))
	}

	reputation, _ := lookupNumber(record, reputationKeys)

	return &types.Candidate{
		ID:      id,
		Content: NormalizeText(lookupString(record, textKeys)),
		Author: types.AuthorInfo{
			Username:        author,
			IsVerified:      lookupBool(record, verifiedKeys),
			ReputationScore: reputation,
		},
		CreatedAt: lookupTime(record, createdKeys),
		LikeCount: likes,
	}
}

// NormalizeText converts HTML-formatted comment bodies to plain text and
// applies Unicode NFC so decomposed Hangul matches keyword lists.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	if htmlPattern.MatchString(text) {
		text = stripHTML(text)
	}
	return norm.NFC.String(text)
}

func stripHTML(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(doc.Text())
}

func lookup(record types.RawComment, keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := record[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupString(record types.RawComment, keys []string) string {
	v, ok := lookup(record, keys)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case map[string]any:
		// Nested author objects, e.g. {"username": "..."} or {"name": "..."}
		for _, key := range []string{"username", "name", "displayName"} {
			if s, ok := val[key].(string); ok {
				return s
			}
		}
	}
	return ""
}

func lookupNumber(record types.RawComment, keys []string) (float64, bool) {
	v, ok := lookup(record, keys)
	if !ok {
		return 0, false
	}
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", ""), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func lookupBool(record types.RawComment, keys []string) bool {
	v, ok := lookup(record, keys)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	}
	return false
}

func lookupTime(record types.RawComment, keys []string) *time.Time {
	v, ok := lookup(record, keys)
	if !ok {
		return nil
	}
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return &val
	case *time.Time:
		return val
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return &t
			}
		}
	}
	return nil
}
