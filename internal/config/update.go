package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetHost adds or replaces hosts.<name> in the config file at configPath.
// It preserves the existing YAML structure and comments. A missing file
// is created.
func SetHost(configPath, name string, h Host) error {
	root, err := readDocument(configPath)
	if err != nil {
		return err
	}
	docNode := root.Content[0]

	hostsNode := findMapValue(docNode, "hosts")
	if hostsNode == nil || hostsNode.Kind != yaml.MappingNode {
		if hostsNode != nil {
			removeMapKey(docNode, "hosts")
		}
		hostsNode = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		docNode.Content = append(docNode.Content, scalar("hosts"), hostsNode)
	}

	// A flow-style "{}" would otherwise render every host inline.
	hostsNode.Style = 0

	entry := hostNode(h)
	if existing := findMapValue(hostsNode, name); existing != nil {
		// Keep comments attached to the old entry.
		entry.HeadComment = existing.HeadComment
		entry.LineComment = existing.LineComment
		*existing = *entry
	} else {
		hostsNode.Content = append(hostsNode.Content, scalar(name), entry)
	}

	return writeDocument(configPath, root)
}

// RemoveHost deletes hosts.<name> from the config file. It reports whether
// the host was there.
func RemoveHost(configPath, name string) (bool, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	root, err := parseDocument(data)
	if err != nil {
		return false, err
	}

	hostsNode := findMapValue(root.Content[0], "hosts")
	if hostsNode == nil || !removeMapKey(hostsNode, name) {
		return false, nil
	}

	return true, writeDocument(configPath, root)
}

func readDocument(configPath string) (*yaml.Node, error) {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		doc.Content = append(doc.Content,
			scalar("version"), scalar(strconv.Itoa(CurrentConfigVersion)))
		doc.Content[1].Tag = "!!int"
		return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}}, nil
	}
	return parseDocument(data)
}

func parseDocument(data []byte) (*yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("invalid YAML document structure")
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected mapping at document root")
	}
	return &root, nil
}

func writeDocument(configPath string, root *yaml.Node) error {
	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if err := os.WriteFile(configPath, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// hostNode renders h as a mapping, omitting empty fields.
func hostNode(h Host) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key, value string) {
		if value != "" {
			n.Content = append(n.Content, scalar(key), scalar(value))
		}
	}
	add("host", h.Host)
	if h.Port != 0 {
		port := scalar(strconv.Itoa(h.Port))
		port.Tag = "!!int"
		n.Content = append(n.Content, scalar("port"), port)
	}
	add("user", h.User)
	add("key", h.Key)
	add("pub_key", h.PubKey)
	add("remote_dir", h.RemoteDir)
	return n
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}

func removeMapKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if k := node.Content[i]; k.Kind == yaml.ScalarNode && strings.EqualFold(k.Value, key) {
			node.Content = append(node.Content[:i], node.Content[i+2:]...)
			return true
		}
	}
	return false
}
