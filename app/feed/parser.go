package feed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Run decodes a ranking document and flattens nested arrays of any depth into
// a single list, keeping depth-first document order.
func (p *Parser) Run(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	var extra interface{}
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after feed document")
	}

	root, ok := doc.([]interface{})
	if !ok {
		return nil, fmt.Errorf("feed document must be a JSON array, got %s", describe(doc))
	}

	entries := make([]Entry, 0, len(root))
	if err := p.flatten(root, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (p *Parser) flatten(values []interface{}, entries *[]Entry) error {
	for _, value := range values {
		switch v := value.(type) {
		case []interface{}:
			if err := p.flatten(v, entries); err != nil {
				return err
			}
		case map[string]interface{}:
			*entries = append(*entries, p.normalizeEntry(v))
		default:
			return fmt.Errorf("unexpected %s in feed at entry %d", describe(value), len(*entries))
		}
	}
	return nil
}

func (p *Parser) normalizeEntry(obj map[string]interface{}) Entry {
	return Entry{
		Name:        stringValue(obj["name"]),
		AppID:       stringValue(obj["app_id"]),
		OS:          stringValue(obj["os"]),
		BundleID:    stringValue(obj["bundle_id"]),
		Version:     stringValue(obj["version"]),
		PublisherID: stringValue(obj["publisher_id"]),
		Rating:      ratingValue(obj["rating"]),
	}
}

// stringValue accepts JSON strings and numbers; numeric store and publisher
// IDs are common in the feeds.
func stringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func ratingValue(value interface{}) float64 {
	var (
		rating float64
		err    error
	)

	switch v := value.(type) {
	case json.Number:
		rating, err = v.Float64()
	case string:
		rating, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return math.Inf(-1)
	}

	if err != nil || math.IsNaN(rating) {
		return math.Inf(-1)
	}
	return rating
}

func describe(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", value)
	}
}
