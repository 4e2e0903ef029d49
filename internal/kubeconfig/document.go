package kubeconfig

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is a kubeconfig held as a yaml.v3 node tree. Lookups walk the tree
// and mutations patch single scalar nodes, so key order, comments and fields
// the updater does not know about survive a round trip. Each mutation is also
// recorded against the original bytes, so Encode rewrites only the changed
// lines and keeps the file's own indentation.
type Document struct {
	node *yaml.Node // DocumentNode
	root *yaml.Node // top-level MappingNode

	src     *source
	patches []patch
	patched map[*yaml.Node]bool
	// broken is set once a mutation cannot be expressed as a patch; Encode
	// then re-serializes the whole tree.
	broken bool
}

// ParseDocument parses raw kubeconfig bytes. An empty input yields an empty
// document.
func ParseDocument(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	if node.Kind == 0 {
		root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		return &Document{
			node:    &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}},
			root:    root,
			patched: map[*yaml.Node]bool{},
			broken:  true,
		}, nil
	}

	if node.Kind != yaml.DocumentNode || len(node.Content) != 1 || node.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level of kubeconfig must be a mapping")
	}
	return &Document{
		node:    &node,
		root:    node.Content[0],
		src:     newSource(data),
		patched: map[*yaml.Node]bool{},
	}, nil
}

// Encode returns the original bytes with every recorded change spliced in.
// When a change could not be located in the source it serializes the whole
// node tree instead.
func (d *Document) Encode() ([]byte, error) {
	if out, ok := d.splice(); ok {
		return out, nil
	}
	return d.encodeTree()
}

func (d *Document) encodeTree() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Contexts returns every context in document order.
func (d *Document) Contexts() []Context {
	var contexts []Context
	for _, item := range d.entries(sectionContexts) {
		name := scalar(mappingValue(item, "name"))
		record := mappingValue(item, recordContext)
		contexts = append(contexts, Context{
			Name:      name,
			Cluster:   scalar(mappingValue(record, "cluster")),
			User:      scalar(mappingValue(record, "user")),
			Namespace: scalar(mappingValue(record, "namespace")),
		})
	}
	return contexts
}

// FindContext looks a context up by name.
func (d *Document) FindContext(name string) (Context, bool) {
	for _, c := range d.Contexts() {
		if c.Name == name {
			return c, true
		}
	}
	return Context{}, false
}

// FindCluster looks a cluster up by name.
func (d *Document) FindCluster(name string) (Cluster, bool) {
	item := d.entry(sectionClusters, name)
	if item == nil {
		return Cluster{}, false
	}
	record := mappingValue(item, recordCluster)
	return Cluster{
		Name:                     name,
		Server:                   scalar(mappingValue(record, FieldServer)),
		CertificateAuthorityData: scalar(mappingValue(record, FieldCertificateAuthorityData)),
		ServerUser:               scalar(mappingValue(record, FieldServerUser)),
	}, true
}

// FindUser looks a user up by name.
func (d *Document) FindUser(name string) (User, bool) {
	item := d.entry(sectionUsers, name)
	if item == nil {
		return User{}, false
	}
	record := mappingValue(item, recordUser)
	return User{
		Name:                  name,
		ClientCertificateData: scalar(mappingValue(record, FieldClientCertificateData)),
		ClientKeyData:         scalar(mappingValue(record, FieldClientKeyData)),
	}, true
}

// SetClusterField sets a single key of the named cluster record. It reports
// whether the document changed.
func (d *Document) SetClusterField(name, field, value string) (bool, error) {
	return d.setField(sectionClusters, recordCluster, name, field, value)
}

// SetUserField sets a single key of the named user record. It reports
// whether the document changed.
func (d *Document) SetUserField(name, field, value string) (bool, error) {
	return d.setField(sectionUsers, recordUser, name, field, value)
}

func (d *Document) setField(section, recordKey, name, field, value string) (bool, error) {
	item := d.entry(section, name)
	if item == nil {
		return false, fmt.Errorf("%s %q: %w", recordKey, name, ErrEntryNotFound)
	}

	recordName, record := mappingPair(item, recordKey)
	switch {
	case record == nil:
		d.broken = true
		recordName = stringNode(recordKey)
		record = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		item.Content = append(item.Content, recordName, record)
	case record.Kind == yaml.ScalarNode && record.Tag == "!!null":
		// "cluster:" with no body decodes as null.
		d.broken = true
		record.Kind = yaml.MappingNode
		record.Tag = "!!map"
		record.Value = ""
	case record.Kind != yaml.MappingNode:
		return false, fmt.Errorf("%s %q: %q is not a mapping", recordKey, name, recordKey)
	}

	if key, existing := mappingPair(record, field); existing != nil {
		if existing.Kind == yaml.ScalarNode && existing.Tag != "!!null" && existing.Value == value {
			return false, nil
		}
		d.patchValue(key, existing)
		existing.Kind = yaml.ScalarNode
		existing.Tag = "!!str"
		existing.Value = value
		existing.Content = nil
		existing.Alias = nil
		if existing.Style&(yaml.LiteralStyle|yaml.FoldedStyle|yaml.FlowStyle) != 0 {
			existing.Style = 0
		}
		return true, nil
	}

	d.patchRecord(recordName, record)
	record.Content = append(record.Content, stringNode(field), stringNode(value))
	return true, nil
}

// entries returns the items of a top-level list such as "clusters".
func (d *Document) entries(section string) []*yaml.Node {
	list := mappingValue(d.root, section)
	if list == nil || list.Kind != yaml.SequenceNode {
		return nil
	}
	var items []*yaml.Node
	for _, item := range list.Content {
		if item.Kind == yaml.MappingNode {
			items = append(items, item)
		}
	}
	return items
}

// entry returns the first item of section whose name matches.
func (d *Document) entry(section, name string) *yaml.Node {
	if name == "" {
		return nil
	}
	for _, item := range d.entries(section) {
		if scalar(mappingValue(item, "name")) == name {
			return item
		}
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	_, v := mappingPair(m, key)
	return v
}

func mappingPair(m *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i], m.Content[i+1]
		}
	}
	return nil, nil
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
