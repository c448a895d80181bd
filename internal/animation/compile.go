package animation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compiled is a validated rig ready for playback. It is immutable and safe
// for concurrent use.
type Compiled struct {
	animationType AnimationType
	progress      []float64
	base          map[string]r3.Vec
	// tracks[joint][i] is the transformation of joint at keyframe i, or nil.
	tracks map[string][]Transformation
	order  []string
	moving map[string]bool
}

// Compile validates rig and derives its evaluation order and moving-joint
// set. Joint names are lower-cased and keyframes sorted by progress.
func Compile(rig Rig) (*Compiled, error) {
	if len(rig.Keyframes) == 0 {
		return nil, fmt.Errorf("%w: no keyframes", ErrInvalidRig)
	}

	c := &Compiled{
		animationType: rig.AnimationType,
		base:          make(map[string]r3.Vec, len(rig.BasePoints)),
		tracks:        make(map[string][]Transformation),
		moving:        make(map[string]bool),
	}
	switch c.animationType {
	case "":
		c.animationType = Loop
	case Loop, Oscillating:
	default:
		return nil, fmt.Errorf("%w: unknown animation type %q", ErrInvalidRig, rig.AnimationType)
	}

	for name, p := range rig.BasePoints {
		c.base[normalize(name)] = p.vec()
	}

	keyframes := make([]Keyframe, len(rig.Keyframes))
	copy(keyframes, rig.Keyframes)
	sort.SliceStable(keyframes, func(i, j int) bool {
		return keyframes[i].Progress < keyframes[j].Progress
	})

	// Joints in order of first appearance; this stabilises the
	// topological sort so independent joints keep their authored order.
	var appearance []string
	seen := make(map[string]bool)
	note := func(name string) {
		if !seen[name] {
			seen[name] = true
			appearance = append(appearance, name)
		}
	}

	c.progress = make([]float64, len(keyframes))
	for i, kf := range keyframes {
		if kf.Progress < 0 || kf.Progress > 1 {
			return nil, fmt.Errorf("%w: keyframe progress %v outside [0,1]", ErrInvalidRig, kf.Progress)
		}
		c.progress[i] = kf.Progress

		for _, raw := range kf.Transformations {
			t, err := normalizeTransformation(raw)
			if err != nil {
				return nil, fmt.Errorf("keyframe %d: %w", i, err)
			}
			joint := t.Target()
			track, ok := c.tracks[joint]
			if !ok {
				track = make([]Transformation, len(keyframes))
				c.tracks[joint] = track
			}
			if track[i] != nil {
				return nil, fmt.Errorf("%w: keyframe %d transforms %q twice", ErrInvalidRig, i, joint)
			}
			track[i] = t

			note(joint)
			note(t.Anchor())
			c.moving[joint] = true
			c.moving[t.Anchor()] = true
		}
	}

	for _, name := range appearance {
		_, isBase := c.base[name]
		_, isTarget := c.tracks[name]
		if !isBase && !isTarget {
			return nil, fmt.Errorf("%w: joint %q is neither a base point nor transformed", ErrInvalidRig, name)
		}
	}

	order, err := dependencyOrder(appearance, c.tracks)
	if err != nil {
		return nil, err
	}
	c.order = order

	return c, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeTransformation(t Transformation) (Transformation, error) {
	switch t := t.(type) {
	case RelativeTranslate:
		t.Joint = normalize(t.Joint)
		t.RelativeTo = normalize(t.RelativeTo)
		if t.Joint == "" || t.RelativeTo == "" {
			return nil, fmt.Errorf("%w: relative_translate needs joint and relativeTo", ErrInvalidRig)
		}
		return t, nil
	case RotateAroundJoint:
		t.Joint = normalize(t.Joint)
		t.PivotJoint = normalize(t.PivotJoint)
		t.Axis = Axis(normalize(string(t.Axis)))
		if t.Joint == "" || t.PivotJoint == "" {
			return nil, fmt.Errorf("%w: rotate_around_joint needs joint and pivotJoint", ErrInvalidRig)
		}
		switch t.Axis {
		case AxisX, AxisY, AxisZ:
		default:
			return nil, fmt.Errorf("%w: unknown axis %q", ErrInvalidRig, t.Axis)
		}
		return t, nil
	case nil:
		return nil, fmt.Errorf("%w: empty transformation", ErrInvalidRig)
	default:
		return nil, fmt.Errorf("%w: unsupported transformation %T", ErrInvalidRig, t)
	}
}

// dependencyOrder sorts the transformed joints so every anchor is resolved
// before the joints positioned from it.
func dependencyOrder(appearance []string, tracks map[string][]Transformation) ([]string, error) {
	ids := make(map[string]int64, len(appearance))
	names := make(map[int64]string, len(appearance))
	g := simple.NewDirectedGraph()
	for i, name := range appearance {
		id := int64(i)
		ids[name] = id
		names[id] = name
		g.AddNode(simple.Node(id))
	}

	for _, name := range appearance {
		for _, t := range tracks[name] {
			if t == nil {
				continue
			}
			anchor := t.Anchor()
			if anchor == name {
				return nil, fmt.Errorf("%w: joint %q depends on itself", ErrInvalidRig, name)
			}
			g.SetEdge(g.NewEdge(simple.Node(ids[anchor]), simple.Node(ids[name])))
		}
	}

	sorted, err := topo.SortStabilized(g, byID)
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) && len(cycles) > 0 {
			return nil, fmt.Errorf("%w: dependency cycle among %v", ErrInvalidRig, cycleNames(cycles[0], names))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRig, err)
	}

	order := make([]string, 0, len(tracks))
	for _, n := range sorted {
		name := names[n.ID()]
		if _, ok := tracks[name]; ok {
			order = append(order, name)
		}
	}
	return order, nil
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

func cycleNames(nodes []graph.Node, names map[int64]string) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = names[n.ID()]
	}
	sort.Strings(out)
	return out
}

// AnimationType returns the playback curve, defaulting to Loop.
func (c *Compiled) AnimationType() AnimationType {
	return c.animationType
}

// Order returns the transformed joints in evaluation order.
func (c *Compiled) Order() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Moving returns the sorted set of joints that are transformed or serve as
// an anchor for a transformation.
func (c *Compiled) Moving() []string {
	out := make([]string, 0, len(c.moving))
	for name := range c.moving {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsMoving reports whether joint belongs to the moving set.
func (c *Compiled) IsMoving(joint string) bool {
	return c.moving[joint]
}
