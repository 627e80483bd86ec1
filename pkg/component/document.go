package component

import "fmt"

// Document is a normalized fingerprint: one record per component, keyed by
// component key.
type Document map[string]Values

// NewDocument returns a document with every component at its defaults.
func NewDocument() Document {
	doc := make(Document, len(registry))
	for _, c := range registry {
		doc[c.Key] = c.Empty()
	}
	return doc
}

// Complete reports an error unless doc holds exactly the registered
// components, each with exactly its declared fields.
func (doc Document) Complete() error {
	if len(doc) != len(registry) {
		return fmt.Errorf("document has %d components, want %d", len(doc), len(registry))
	}
	for _, c := range registry {
		rec, ok := doc[c.Key]
		if !ok {
			return fmt.Errorf("document is missing component %s", c.Key)
		}
		if len(rec) != len(c.Fields) {
			return fmt.Errorf("component %s has %d fields, want %d", c.Key, len(rec), len(c.Fields))
		}
		for _, f := range c.Fields {
			if _, ok := rec[f.Name]; !ok {
				return fmt.Errorf("component %s is missing field %s", c.Key, f.Name)
			}
		}
	}
	return nil
}
