package render

import (
	"io"

	"github.com/bjaus/pivot/frame"
	"gopkg.in/yaml.v3"
)

type yamlRenderer struct{}

func (yamlRenderer) Format() Format    { return YAML }
func (yamlRenderer) MediaType() string { return "application/yaml" }

// Render writes one mapping per row, index fields first, keys in column
// order.
func (yamlRenderer) Render(w io.Writer, f *frame.Frame, _ Options) error {
	fl := flatten(f)
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range fl.rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for j, name := range fl.names {
			key := &yaml.Node{}
			key.SetString(name)
			val := &yaml.Node{}
			if err := val.Encode(row[j]); err != nil {
				return err
			}
			m.Content = append(m.Content, key, val)
		}
		doc.Content = append(doc.Content, m)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
