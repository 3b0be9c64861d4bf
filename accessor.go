package points

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
)

const (
	DefaultNodeSize = float32(4)
)

// DefaultNodeColor is #b3b3b3, fully opaque.
var DefaultNodeColor = mgl32.Vec4{179.0 / 255, 179.0 / 255, 179.0 / 255, 1}

// NumericAccessor resolves a per-node number. ok is false when the node
// has no value and the caller's default applies.
type NumericAccessor interface {
	Resolve(n *Node) (v float32, ok bool)
}

// ColorAccessor resolves a per-node RGBA colour in [0, 1].
type ColorAccessor interface {
	Resolve(n *Node) (c mgl32.Vec4, ok bool)
}

type ConstantNumber float32

func (c ConstantNumber) Resolve(*Node) (float32, bool) { return float32(c), true }

// NodeSizeField reads Node.Size.
type NodeSizeField struct{}

func (NodeSizeField) Resolve(n *Node) (float32, bool) {
	if n == nil || n.Size == nil {
		return 0, false
	}
	return *n.Size, true
}

// ValueField reads a named entry of Node.Values.
type ValueField string

func (f ValueField) Resolve(n *Node) (float32, bool) {
	if n == nil {
		return 0, false
	}
	v, ok := n.Values[string(f)]
	return v, ok
}

type NumberFunc func(n *Node) (float32, bool)

func (f NumberFunc) Resolve(n *Node) (float32, bool) { return f(n) }

type ConstantColor mgl32.Vec4

func (c ConstantColor) Resolve(*Node) (mgl32.Vec4, bool) { return mgl32.Vec4(c), true }

// NodeColorField parses Node.Color. Unparseable colours count as missing.
type NodeColorField struct{}

func (NodeColorField) Resolve(n *Node) (mgl32.Vec4, bool) {
	if n == nil || n.Color == "" {
		return mgl32.Vec4{}, false
	}
	c, err := ParseColor(n.Color)
	if err != nil {
		return mgl32.Vec4{}, false
	}
	return c, true
}

type ColorFunc func(n *Node) (mgl32.Vec4, bool)

func (f ColorFunc) Resolve(n *Node) (mgl32.Vec4, bool) { return f(n) }

// ParseColor accepts #rgb, #rgba, #rrggbb, #rrggbbaa and CSS colour names.
func ParseColor(s string) (mgl32.Vec4, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if !strings.HasPrefix(s, "#") {
		c, ok := colornames.Map[s]
		if !ok {
			return mgl32.Vec4{}, fmt.Errorf("unknown colour %q", s)
		}
		return mgl32.Vec4{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}, nil
	}

	hex := s[1:]
	switch len(hex) {
	case 3, 4:
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	case 6, 8:
	default:
		return mgl32.Vec4{}, fmt.Errorf("bad colour %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return mgl32.Vec4{}, fmt.Errorf("bad colour %q: %w", s, err)
	}
	return mgl32.Vec4{
		float32(v>>24&0xff) / 255,
		float32(v>>16&0xff) / 255,
		float32(v>>8&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}
