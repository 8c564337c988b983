// Package loader reads graph, problem and plan descriptions from YAML files.
//
// Graph:
//
//	0:
//	  pos: {x: 100, y: 100}
//	  neigh: [1, 3]
//
// Problem (goal-driven agents):
//
//	d1a0c4e9b2f3: {v: 0, g: 8}
//
// Plans (replay):
//
//	d1a0c4e9b2f3: {plan: [0, 1, 2], order: [0, 0, 1]}
package loader

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// id decodes any YAML scalar (integer or string) to its literal text.
type id string

func (i *id) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: id must be a scalar", value.Line)
	}
	*i = id(value.Value)
	return nil
}

type nodeFile map[id]struct {
	Pos struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
	} `yaml:"pos"`
	Neigh []id `yaml:"neigh"`
}

type problemFile map[id]struct {
	V id `yaml:"v"`
	G id `yaml:"g"`
}

type planFile map[id]struct {
	Plan  []id  `yaml:"plan"`
	Order []int `yaml:"order"`
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ParseGraph decodes a graph description.
func ParseGraph(data []byte) (core.GraphSpec, error) {
	var f nodeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	spec := make(core.GraphSpec, len(f))
	for k, n := range f {
		neigh := make([]core.NodeID, len(n.Neigh))
		for i, u := range n.Neigh {
			neigh[i] = core.NodeID(u)
		}
		spec[core.NodeID(k)] = core.NodeSpec{
			Pos:       core.Pos{X: n.Pos.X, Y: n.Pos.Y},
			Neighbors: neigh,
		}
	}
	return spec, nil
}

// LoadGraph reads and validates a graph file.
func LoadGraph(path string) (*core.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	spec, err := ParseGraph(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	g, err := core.NewGraph(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid graph %s: %w", path, err)
	}
	return g, nil
}

// LoadProblem reads start/goal pairs.
func LoadProblem(path string) (map[core.AgentID]core.AgentSpec, error) {
	var f problemFile
	if err := decodeFile(path, &f); err != nil {
		return nil, err
	}
	out := make(map[core.AgentID]core.AgentSpec, len(f))
	for k, a := range f {
		out[core.AgentID(k)] = core.AgentSpec{Start: core.NodeID(a.V), Goal: core.NodeID(a.G)}
	}
	return out, nil
}

// LoadPlans reads precomputed plans.
func LoadPlans(path string) (map[core.AgentID]core.PlanSpec, error) {
	var f planFile
	if err := decodeFile(path, &f); err != nil {
		return nil, err
	}
	out := make(map[core.AgentID]core.PlanSpec, len(f))
	for k, p := range f {
		plan := make([]core.NodeID, len(p.Plan))
		for i, v := range p.Plan {
			plan[i] = core.NodeID(v)
		}
		out[core.AgentID(k)] = core.PlanSpec{Plan: plan, Order: p.Order}
	}
	return out, nil
}

// WriteProblem writes start/goal pairs in the problem format, agents sorted
// by id.
func WriteProblem(w io.Writer, agents map[core.AgentID]core.AgentSpec) error {
	ids := make([]core.AgentID, 0, len(agents))
	for k := range agents {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range ids {
		a := agents[k]
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(k)},
			&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "v"},
				{Kind: yaml.ScalarNode, Value: string(a.Start), Style: yaml.SingleQuotedStyle},
				{Kind: yaml.ScalarNode, Value: "g"},
				{Kind: yaml.ScalarNode, Value: string(a.Goal), Style: yaml.SingleQuotedStyle},
			}},
		)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// WriteGraph writes a graph description, nodes in NodeIDLess order.
func WriteGraph(w io.Writer, spec core.GraphSpec) error {
	ids := make([]core.NodeID, 0, len(spec))
	for k := range spec {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return core.NodeIDLess(ids[i], ids[j]) })

	scalar := func(v string) *yaml.Node { return &yaml.Node{Kind: yaml.ScalarNode, Value: v} }
	num := func(f float64) *yaml.Node { return scalar(strconv.FormatFloat(f, 'g', -1, 64)) }

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range ids {
		n := spec[k]
		neigh := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, u := range n.Neighbors {
			neigh.Content = append(neigh.Content, scalar(string(u)))
		}
		doc.Content = append(doc.Content,
			scalar(string(k)),
			&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
				scalar("pos"),
				{Kind: yaml.MappingNode, Style: yaml.FlowStyle, Content: []*yaml.Node{
					scalar("x"), num(n.Pos.X),
					scalar("y"), num(n.Pos.Y),
				}},
				scalar("neigh"),
				neigh,
			}},
		)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
