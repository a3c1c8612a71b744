package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClusterMap resolves software builds and release trains to their product
// cluster, from a nested YAML document of the form
//
//	Cluster 4.3:
//	  VR21: ["0010", "0011"]
//
// The document is read once and never mutated. Lookups walk the tree in
// document order, which keeps ambiguous entries deterministic.
type ClusterMap struct {
	root *yaml.Node
}

func NewClusterMap(path string) (*ClusterMap, error) {
	ext := path[strings.LastIndex(path, ".")+1:]
	if ext != "yaml" && ext != "yml" {
		return nil, fmt.Errorf("cluster map must be a yaml file: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster map %s: %w", path, err)
	}
	return NewClusterMapFromBytes(data)
}

func NewClusterMapFromBytes(data []byte) (*ClusterMap, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse cluster map: %w", err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	return &ClusterMap{root: root}, nil
}

// Lookup returns the cluster/version classification of a software build or
// version string. Empty input yields an empty result, never an error.
// Identifiers of exactly 4 characters with an E in third position are
// pre-release builds and match leaf entries by 2 character prefix. The
// depth first search stops at the first branch that yields a hit.
func (c *ClusterMap) Lookup(identifier string) map[string][]string {
	result := map[string][]string{}
	if identifier == "" || c == nil || c.root == nil {
		return result
	}

	pre := len(identifier) == 4 && identifier[2] == 'E'
	prefix := ""
	if pre {
		prefix = identifier[:2]
	}

	var paths []string
	var walk func(node *yaml.Node, path string) bool
	walk = func(node *yaml.Node, path string) bool {
		switch node.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(node.Content); i += 2 {
				key := node.Content[i].Value
				value := node.Content[i+1]
				if walk(value, path+"/"+key) {
					return true
				}
				if key == identifier {
					paths = append(paths, strings.TrimPrefix(path, "/"))
					return true
				}
			}
		case yaml.SequenceNode:
			for _, item := range node.Content {
				leaf := item.Value
				if !pre && leaf == identifier {
					paths = append(paths, strings.TrimPrefix(path, "/"))
					return true
				}
				if pre && len(leaf) >= 2 && leaf[:2] == prefix {
					paths = append(paths, strings.TrimPrefix(path, "/"))
					return true
				}
			}
		}
		return false
	}
	walk(c.root, "")

	if len(paths) == 0 {
		return result
	}

	result["cluster"] = []string{}
	result["version"] = []string{}
	for _, p := range paths {
		parts := strings.Split(p, "/")
		switch len(parts) {
		case 2:
			result["cluster"] = append(result["cluster"], parts[0])
			result["version"] = append(result["version"], parts[1])
		case 1:
			result["version"] = append(result["version"], parts[0])
		}
	}
	return result
}

// Clusters returns the cluster names for one identifier, or the default
// when nothing matched.
func (c *ClusterMap) Clusters(identifier, defaultCluster string) []string {
	clvr := c.Lookup(identifier)
	if len(clvr) == 0 {
		if defaultCluster == "" {
			return nil
		}
		return []string{defaultCluster}
	}
	return clvr["cluster"]
}

// Versions returns the release trains for one identifier.
func (c *ClusterMap) Versions(identifier string) []string {
	return c.Lookup(identifier)["version"]
}

// AudiClusters unions the cluster lookups over all supplied software
// builds and versions. An empty union falls back to the default; the "-"
// sentinel is dropped as soon as any real value is present. The result is
// sorted for determinism.
func (c *ClusterMap) AudiClusters(softwares, versions []string, defaultCluster string) []string {
	identifiers := append(append([]string{}, softwares...), versions...)
	if len(identifiers) == 0 {
		return []string{defaultCluster}
	}

	var clusters []string
	for _, identifier := range identifiers {
		clusters = append(clusters, c.Clusters(identifier, defaultCluster)...)
	}
	if len(clusters) == 0 {
		return []string{defaultCluster}
	}

	unique := make(map[string]bool)
	for _, cluster := range clusters {
		unique[cluster] = true
	}
	if len(unique) > 1 {
		delete(unique, "-")
	}

	result := make([]string, 0, len(unique))
	for cluster := range unique {
		result = append(result, cluster)
	}
	sort.Strings(result)
	return result
}
